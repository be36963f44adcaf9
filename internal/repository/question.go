package repository

import (
	"context"
	"errors"
	"fmt"

	"closer-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const questionColumns = `id, position, text, category, is_active`

// PostgresQuestionRepository handles database operations for questions
type PostgresQuestionRepository struct {
	db *pgxpool.Pool
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(db *pgxpool.Pool) *PostgresQuestionRepository {
	return &PostgresQuestionRepository{db: db}
}

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	if err := row.Scan(&q.ID, &q.Position, &q.Text, &q.Category, &q.IsActive); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListActive retrieves active questions ordered by position
func (r *PostgresQuestionRepository) ListActive(ctx context.Context) ([]models.Question, error) {
	rows, err := r.db.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE is_active ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questions, nil
}

// GetByID retrieves a question by ID
func (r *PostgresQuestionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	q, err := scanQuestion(r.db.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

// Sync upserts the given questions by position and deactivates every other position.
// Existing ids are kept so stored answers stay attached.
func (r *PostgresQuestionRepository) Sync(ctx context.Context, questions []models.Question) error {
	return withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		positions := make([]int32, 0, len(questions))
		for _, q := range questions {
			_, err := tx.Exec(ctx, `
				INSERT INTO questions (id, position, text, category, is_active)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (position) DO UPDATE
				SET text = EXCLUDED.text, category = EXCLUDED.category, is_active = EXCLUDED.is_active
			`, q.ID, q.Position, q.Text, q.Category, q.IsActive)
			if err != nil {
				return fmt.Errorf("failed to upsert question %d: %w", q.Position, err)
			}
			positions = append(positions, int32(q.Position))
		}

		if _, err := tx.Exec(ctx, `UPDATE questions SET is_active = FALSE WHERE NOT (position = ANY($1))`, positions); err != nil {
			return fmt.Errorf("failed to deactivate removed questions: %w", err)
		}
		return nil
	})
}
