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

const answerColumns = `id, user_id, couple_id, question_id, day, answer_text, created_at, updated_at`

// PostgresAnswerRepository handles database operations for answers
type PostgresAnswerRepository struct {
	db *pgxpool.Pool
}

// NewAnswerRepository creates a new answer repository
func NewAnswerRepository(db *pgxpool.Pool) *PostgresAnswerRepository {
	return &PostgresAnswerRepository{db: db}
}

func scanAnswer(row pgx.Row) (*models.Answer, error) {
	var answer models.Answer
	err := row.Scan(
		&answer.ID, &answer.UserID, &answer.CoupleID, &answer.QuestionID, &answer.Date,
		&answer.AnswerText, &answer.CreatedAt, &answer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	answer.Date = localDay(answer.Date)
	return &answer, nil
}

// Upsert writes the answer for its user, question and day
func (r *PostgresAnswerRepository) Upsert(ctx context.Context, answer *models.Answer) (*models.Answer, error) {
	query := `
		INSERT INTO answers (id, user_id, couple_id, question_id, day, answer_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id, question_id, day) DO UPDATE
		SET answer_text = EXCLUDED.answer_text, couple_id = EXCLUDED.couple_id, updated_at = EXCLUDED.updated_at
		RETURNING ` + answerColumns
	saved, err := scanAnswer(r.db.QueryRow(ctx, query,
		answer.ID, answer.UserID, answer.CoupleID, answer.QuestionID, answer.Date, answer.AnswerText, answer.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert answer: %w", err)
	}
	return saved, nil
}

// GetForDay retrieves the user's latest answer on the given day
func (r *PostgresAnswerRepository) GetForDay(ctx context.Context, userID string, day time.Time) (*models.Answer, error) {
	query := `
		SELECT ` + answerColumns + `
		FROM answers
		WHERE user_id = $1 AND day = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`
	answer, err := scanAnswer(r.db.QueryRow(ctx, query, userID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}
	return answer, nil
}
