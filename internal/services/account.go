package services

import (
	"context"

	"closer-backend/internal/metrics"
	"closer-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// AccountService deletes accounts
type AccountService struct {
	accounts repository.AccountRepository
	metrics  metrics.Recorder
}

// NewAccountService creates a new account service
func NewAccountService(accounts repository.AccountRepository, rec metrics.Recorder) *AccountService {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &AccountService{accounts: accounts, metrics: rec}
}

// DeleteAccount removes the user with its moods, answers and memories and
// leaves the former partner unpaired. Nothing changes when any step fails.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	partnerID, err := s.accounts.DeleteAccount(ctx, userID)
	if err != nil {
		return err
	}

	s.metrics.RecordAccountDeleted()
	event := log.Info().Str("user_id", userID)
	if partnerID != nil {
		event = event.Str("former_partner_id", *partnerID)
	}
	event.Msg("Account deleted")
	return nil
}
