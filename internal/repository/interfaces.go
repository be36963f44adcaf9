package repository

import (
	"context"
	"errors"
	"time"

	"closer-backend/internal/models"
)

var (
	// ErrNotFound is returned by lookups that found no row
	ErrNotFound = errors.New("not found")
	// ErrInviteCodeTaken is returned when another user holds the code being assigned
	ErrInviteCodeTaken = errors.New("invite code already taken")
)

// UserRepository persists users and the couple link between them
type UserRepository interface {
	// Create inserts a new user. Returns models.ErrDuplicateEmail when the email exists.
	Create(ctx context.Context, user *models.User) error
	// DeleteUnverified removes a user that never verified its email
	DeleteUnverified(ctx context.Context, id string) error
	// PurgeUnverified removes every unverified user created before cutoff and returns how many were removed
	PurgeUnverified(ctx context.Context, cutoff time.Time) (int64, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// ConsumeVerifyToken marks the token holder verified and clears the token in one step.
	// Returns models.ErrInvalidToken when no user holds the token.
	ConsumeVerifyToken(ctx context.Context, token string) (*models.User, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	// SetInviteCode stores code on an unpaired user. Returns ErrInviteCodeTaken on a
	// uniqueness conflict and models.ErrAlreadyPaired when the user has a couple.
	SetInviteCode(ctx context.Context, userID, code string) error
	// Pair links requester with the holder of code atomically and returns both updated users
	Pair(ctx context.Context, requesterID, code string) (requester, partner *models.User, err error)
}

// AccountRepository removes a user and everything it owns
type AccountRepository interface {
	// DeleteAccount unlinks the partner, deletes the user's moods, answers and
	// memories, and deletes the user, all-or-nothing. Returns the former partner id.
	DeleteAccount(ctx context.Context, userID string) (partnerID *string, err error)
}

// MoodRepository persists one mood per user per day
type MoodRepository interface {
	// Upsert inserts or replaces the mood for (mood.UserID, mood.Date)
	Upsert(ctx context.Context, mood *models.Mood) (*models.Mood, error)
	GetForDay(ctx context.Context, userID string, day time.Time) (*models.Mood, error)
}

// AnswerRepository persists one answer per user, question and day
type AnswerRepository interface {
	// Upsert inserts or replaces the answer for (answer.UserID, answer.QuestionID, answer.Date)
	Upsert(ctx context.Context, answer *models.Answer) (*models.Answer, error)
	// GetForDay returns the most recently written answer of the user on day
	GetForDay(ctx context.Context, userID string, day time.Time) (*models.Answer, error)
}

// QuestionRepository reads the seeded question set
type QuestionRepository interface {
	// ListActive returns active questions ordered by position
	ListActive(ctx context.Context) ([]models.Question, error)
	GetByID(ctx context.Context, id string) (*models.Question, error)
	// Sync upserts questions by position and deactivates positions not in the list
	Sync(ctx context.Context, questions []models.Question) error
}

// MemoryRepository persists the couple feed
type MemoryRepository interface {
	Create(ctx context.Context, memory *models.Memory) error
	// ListByCouple returns a newest-first page and the total count for the couple
	ListByCouple(ctx context.Context, coupleID string, limit, offset int) ([]models.Memory, int, error)
	// DeleteOwned deletes the memory only if userID authored it. Returns models.ErrMemoryNotFound otherwise.
	DeleteOwned(ctx context.Context, id, userID string) error
}

// Store bundles the repositories of one backing store
type Store struct {
	Users     UserRepository
	Accounts  AccountRepository
	Moods     MoodRepository
	Answers   AnswerRepository
	Questions QuestionRepository
	Memories  MemoryRepository
}

// DayKey formats a day window start as the calendar date used in unique keys
func DayKey(day time.Time) string {
	return day.Format("2006-01-02")
}
