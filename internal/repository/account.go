package repository

import (
	"context"
	"errors"
	"fmt"

	"closer-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAccountRepository deletes accounts together with their owned rows
type PostgresAccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

// DeleteAccount unlinks the partner and deletes the user with its moods, answers and memories
func (r *PostgresAccountRepository) DeleteAccount(ctx context.Context, userID string) (*string, error) {
	var partnerID *string

	err := withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT partner_id FROM users WHERE id = $1`, userID).Scan(&partnerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrUserNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		ids := []string{userID}
		if partnerID != nil {
			ids = append(ids, *partnerID)
		}
		locked, err := lockUsers(ctx, tx, ids...)
		if err != nil {
			return err
		}
		user, ok := locked[userID]
		if !ok {
			return models.ErrUserNotFound
		}
		if !samePtr(user.PartnerID, partnerID) {
			return fmt.Errorf("couple link of user %s changed during account deletion", userID)
		}

		if partnerID != nil {
			tag, err := tx.Exec(ctx,
				`UPDATE users SET partner_id = NULL, couple_id = NULL, updated_at = now() WHERE id = $1 AND partner_id = $2`,
				*partnerID, userID,
			)
			if err != nil {
				return fmt.Errorf("failed to unlink partner: %w", err)
			}
			if tag.RowsAffected() != 1 {
				return models.ErrPairingInvariant.Wrap(fmt.Errorf("partner %s does not link back to %s", *partnerID, userID))
			}
		}

		for _, table := range []string{"moods", "answers", "memories"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
				return fmt.Errorf("failed to delete %s: %w", table, err)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return partnerID, nil
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
