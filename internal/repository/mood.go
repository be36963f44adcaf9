package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"closer-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const moodColumns = `id, user_id, couple_id, day, color, created_at, updated_at`

// PostgresMoodRepository handles database operations for moods
type PostgresMoodRepository struct {
	db *pgxpool.Pool
}

// NewMoodRepository creates a new mood repository
func NewMoodRepository(db *pgxpool.Pool) *PostgresMoodRepository {
	return &PostgresMoodRepository{db: db}
}

func scanMood(row pgx.Row) (*models.Mood, error) {
	var mood models.Mood
	if err := row.Scan(&mood.ID, &mood.UserID, &mood.CoupleID, &mood.Date, &mood.Color, &mood.CreatedAt, &mood.UpdatedAt); err != nil {
		return nil, err
	}
	mood.Date = localDay(mood.Date)
	return &mood, nil
}

// Upsert writes the mood for its user and day. The unique index on (user_id, day)
// serializes concurrent writers; the last one wins.
func (r *PostgresMoodRepository) Upsert(ctx context.Context, mood *models.Mood) (*models.Mood, error) {
	query := `
		INSERT INTO moods (id, user_id, couple_id, day, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id, day) DO UPDATE
		SET color = EXCLUDED.color, couple_id = EXCLUDED.couple_id, updated_at = EXCLUDED.updated_at
		RETURNING ` + moodColumns
	saved, err := scanMood(r.db.QueryRow(ctx, query,
		mood.ID, mood.UserID, mood.CoupleID, mood.Date, mood.Color, mood.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert mood: %w", err)
	}
	return saved, nil
}

// GetForDay retrieves the user's mood for the given day
func (r *PostgresMoodRepository) GetForDay(ctx context.Context, userID string, day time.Time) (*models.Mood, error) {
	mood, err := scanMood(r.db.QueryRow(ctx,
		`SELECT `+moodColumns+` FROM moods WHERE user_id = $1 AND day = $2`, userID, day,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mood: %w", err)
	}
	return mood, nil
}
