package repository

import (
	"context"
	"fmt"

	"closer-backend/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresMemoryRepository handles database operations for memories
type PostgresMemoryRepository struct {
	db *pgxpool.Pool
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db *pgxpool.Pool) *PostgresMemoryRepository {
	return &PostgresMemoryRepository{db: db}
}

// Create creates a new memory
func (r *PostgresMemoryRepository) Create(ctx context.Context, memory *models.Memory) error {
	query := `
		INSERT INTO memories (id, user_id, couple_id, text, photo_url, color, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		memory.ID, memory.UserID, memory.CoupleID, memory.Text, memory.PhotoURL, memory.Color, memory.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create memory: %w", err)
	}
	return nil
}

// buildListByCouple returns the page query and the count query for a couple's feed
func buildListByCouple(coupleID string, limit, offset int) (string, []any, string, []any, error) {
	pageSQL, pageArgs, err := psql.
		Select("m.id", "m.user_id", "u.email", "m.couple_id", "m.text", "m.photo_url", "m.color", "m.created_at").
		From("memories m").
		Join("users u ON u.id = m.user_id").
		Where(sq.Eq{"m.couple_id": coupleID}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("failed to build memories query: %w", err)
	}

	countSQL, countArgs, err := psql.
		Select("COUNT(*)").
		From("memories").
		Where(sq.Eq{"couple_id": coupleID}).
		ToSql()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("failed to build memories count query: %w", err)
	}
	return pageSQL, pageArgs, countSQL, countArgs, nil
}

// ListByCouple retrieves a newest-first page of the couple's memories with the total count.
// Both reads share one snapshot so the total matches the page.
func (r *PostgresMemoryRepository) ListByCouple(ctx context.Context, coupleID string, limit, offset int) ([]models.Memory, int, error) {
	pageSQL, pageArgs, countSQL, countArgs, err := buildListByCouple(coupleID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var (
		memories []models.Memory
		total    int
	)
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err = withTx(ctx, r.db, opts, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count memories: %w", err)
		}

		rows, err := tx.Query(ctx, pageSQL, pageArgs...)
		if err != nil {
			return fmt.Errorf("failed to get memories: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var m models.Memory
			err := rows.Scan(&m.ID, &m.UserID, &m.AuthorEmail, &m.CoupleID, &m.Text, &m.PhotoURL, &m.Color, &m.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to scan memory: %w", err)
			}
			memories = append(memories, m)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating memories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return memories, total, nil
}

// DeleteOwned deletes a memory authored by userID
func (r *PostgresMemoryRepository) DeleteOwned(ctx context.Context, id, userID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM memories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrMemoryNotFound
	}
	return nil
}
