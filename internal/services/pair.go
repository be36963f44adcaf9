package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"closer-backend/internal/metrics"
	"closer-backend/internal/models"
	"closer-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	inviteCodeLength      = 6
	inviteCodeMaxAttempts = 10
)

var inviteCodeSpace = big.NewInt(1_000_000)

// PairService handles invite codes and couple formation
type PairService struct {
	users    repository.UserRepository
	metrics  metrics.Recorder
	generate func() (string, error)
}

// NewPairService creates a new pair service
func NewPairService(users repository.UserRepository, rec metrics.Recorder) *PairService {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &PairService{
		users:    users,
		metrics:  rec,
		generate: generateInviteCode,
	}
}

// generateInviteCode returns a random zero-padded 6-digit code
func generateInviteCode() (string, error) {
	n, err := rand.Int(rand.Reader, inviteCodeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func isInviteCode(code string) bool {
	if len(code) != inviteCodeLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// GenerateInviteCode assigns a fresh code to an unpaired user, replacing any previous one.
// Codes already held by someone are skipped; the unique index catches the remaining race.
func (s *PairService) GenerateInviteCode(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.IsPaired() {
		return "", models.ErrAlreadyPaired
	}

	for i := 0; i < inviteCodeMaxAttempts; i++ {
		code, err := s.generate()
		if err != nil {
			return "", err
		}

		exists, err := s.users.InviteCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code existence: %w", err)
		}
		if exists {
			continue
		}

		err = s.users.SetInviteCode(ctx, userID, code)
		if errors.Is(err, repository.ErrInviteCodeTaken) {
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", fmt.Errorf("failed to generate unique invite code after %d attempts", inviteCodeMaxAttempts)
}

// RedeemInviteCode pairs the requester with the holder of code and returns the updated requester
func (s *PairService) RedeemInviteCode(ctx context.Context, userID, code string) (*models.User, error) {
	if code == "" {
		return nil, models.NewValidationError("Invite code is required")
	}
	if !isInviteCode(code) {
		return nil, models.ErrInvalidCode
	}

	requester, partner, err := s.users.Pair(ctx, userID, code)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPairing()
	log.Info().
		Str("user_id", requester.ID).
		Str("partner_id", partner.ID).
		Str("couple_id", *requester.CoupleID).
		Msg("Couple formed")
	return requester, nil
}
