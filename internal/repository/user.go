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

const userColumns = `id, email, password_hash, is_verified, email_verify_token, invite_code, partner_id, couple_id, created_at, updated_at`

// PostgresUserRepository handles database operations for users
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.IsVerified, &user.EmailVerifyToken,
		&user.InviteCode, &user.PartnerID, &user.CoupleID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, is_verified, email_verify_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.IsVerified, user.EmailVerifyToken, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return models.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.UpdatedAt = user.CreatedAt
	return nil
}

// DeleteUnverified removes a user that never verified its email
func (r *PostgresUserRepository) DeleteUnverified(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1 AND is_verified = FALSE`, id)
	if err != nil {
		return fmt.Errorf("failed to delete unverified user: %w", err)
	}
	return nil
}

// PurgeUnverified deletes unverified users created before cutoff
func (r *PostgresUserRepository) PurgeUnverified(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE is_verified = FALSE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge unverified users: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by exact email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// ConsumeVerifyToken verifies the token holder and clears the token
func (r *PostgresUserRepository) ConsumeVerifyToken(ctx context.Context, token string) (*models.User, error) {
	query := `
		UPDATE users
		SET is_verified = TRUE, email_verify_token = NULL, updated_at = now()
		WHERE email_verify_token = $1
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}
	return user, nil
}

// InviteCodeExists checks if a code is currently held by any user
func (r *PostgresUserRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE invite_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check invite code existence: %w", err)
	}
	return exists, nil
}

// SetInviteCode stores the code on an unpaired user
func (r *PostgresUserRepository) SetInviteCode(ctx context.Context, userID, code string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET invite_code = $1, updated_at = now() WHERE id = $2 AND couple_id IS NULL`,
		code, userID,
	)
	if err != nil {
		if isUniqueViolation(err, "users_invite_code_key") {
			return ErrInviteCodeTaken
		}
		return fmt.Errorf("failed to set invite code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
		return models.ErrAlreadyPaired
	}
	return nil
}

// Pair links the requester and the code holder in a single transaction.
// Both rows are locked in id order so concurrent redemptions cannot deadlock.
func (r *PostgresUserRepository) Pair(ctx context.Context, requesterID, code string) (*models.User, *models.User, error) {
	var requester, partner *models.User

	err := withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var holderID string
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE invite_code = $1`, code).Scan(&holderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrInvalidCode
			}
			return fmt.Errorf("failed to look up invite code: %w", err)
		}
		if holderID == requesterID {
			return models.ErrSelfRedemption
		}

		locked, err := lockUsers(ctx, tx, requesterID, holderID)
		if err != nil {
			return err
		}
		current, ok := locked[requesterID]
		if !ok {
			return models.ErrUserNotFound
		}
		holder, ok := locked[holderID]
		if !ok || holder.InviteCode == nil || *holder.InviteCode != code {
			return models.ErrInvalidCode
		}
		if current.IsPaired() || current.PartnerID != nil {
			return models.ErrAlreadyPaired
		}
		if holder.IsPaired() || holder.PartnerID != nil {
			return models.ErrPairingInvariant.Wrap(fmt.Errorf("user %s holds an invite code while paired", holderID))
		}

		// The couple id is the holder's id. Records a survivor kept from an earlier
		// couple they held the code for share this id, so a new partner pairing
		// through the survivor's code sees that older feed.
		coupleID := holder.ID
		if requester, err = linkPartner(ctx, tx, requesterID, holderID, coupleID); err != nil {
			return err
		}
		if partner, err = linkPartner(ctx, tx, holderID, requesterID, coupleID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return requester, partner, nil
}

func lockUsers(ctx context.Context, tx pgx.Tx, ids ...string) (map[string]*models.User, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock users: %w", err)
	}
	defer rows.Close()

	users := make(map[string]*models.User, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func linkPartner(ctx context.Context, tx pgx.Tx, userID, partnerID, coupleID string) (*models.User, error) {
	query := `
		UPDATE users
		SET partner_id = $2, couple_id = $3, invite_code = NULL, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(tx.QueryRow(ctx, query, userID, partnerID, coupleID))
	if err != nil {
		return nil, fmt.Errorf("failed to link partner: %w", err)
	}
	return user, nil
}
