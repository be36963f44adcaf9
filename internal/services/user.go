package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"closer-backend/internal/auth"
	"closer-backend/internal/mailer"
	"closer-backend/internal/metrics"
	"closer-backend/internal/models"
	"closer-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const verifyTokenBytes = 32

// UserService handles registration, email verification, login and token checks
type UserService struct {
	users         repository.UserRepository
	hasher        *auth.PasswordHasher
	tokens        *auth.JWTManager
	sender        mailer.Sender
	publicBaseURL string
	metrics       metrics.Recorder
	now           func() time.Time
}

// NewUserService creates a new user service
func NewUserService(
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.JWTManager,
	sender mailer.Sender,
	publicBaseURL string,
	rec metrics.Recorder,
) *UserService {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &UserService{
		users:         users,
		hasher:        hasher,
		tokens:        tokens,
		sender:        sender,
		publicBaseURL: publicBaseURL,
		metrics:       rec,
		now:           time.Now,
	}
}

// normalizeEmail trims surrounding whitespace. Case is kept as typed.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", models.NewValidationError("Invalid email address")
	}
	return email, nil
}

func validateCredentials(email, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", models.NewValidationError("Email and password are required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return "", models.NewValidationError(fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return normalizeEmail(email)
}

func generateVerifyToken() (string, error) {
	b := make([]byte, verifyTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Register creates an unverified user and emails the verification link.
// When the email cannot be sent the user is removed again and EMAIL_DELIVERY_FAILED is returned.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email, err := validateCredentials(email, password)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	token, err := generateVerifyToken()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:               uuid.New().String(),
		Email:            email,
		PasswordHash:     hash,
		EmailVerifyToken: &token,
		CreatedAt:        s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sender.SendVerification(ctx, email, mailer.VerificationURL(s.publicBaseURL, token)); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to send verification email")
		if delErr := s.users.DeleteUnverified(context.WithoutCancel(ctx), user.ID); delErr != nil {
			log.Error().Err(delErr).Str("user_id", user.ID).Msg("Failed to remove user after email failure")
		}
		return nil, models.ErrEmailDeliveryFailed.Wrap(err)
	}

	s.metrics.RecordSignup()
	log.Info().Str("user_id", user.ID).Msg("User registered")
	return user, nil
}

// VerifyEmail consumes a verification token
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, models.ErrInvalidToken
	}
	user, err := s.users.ConsumeVerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordVerification()
	log.Info().Str("user_id", user.ID).Msg("Email verified")
	return user, nil
}

// Login checks the credentials and returns a session token.
// Unknown email and wrong password produce the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.hasher.CheckDummy(password)
			s.metrics.RecordLogin(false)
			return "", models.ErrInvalidCredentials
		}
		return "", err
	}

	if !s.hasher.Check(user.PasswordHash, password) {
		s.metrics.RecordLogin(false)
		return "", models.ErrInvalidCredentials
	}
	if !user.IsVerified {
		s.metrics.RecordLogin(false)
		return "", models.ErrNotVerified
	}

	token, _, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return "", err
	}
	s.metrics.RecordLogin(true)
	return token, nil
}

// Authenticate validates a session token and returns the user id
func (s *UserService) Authenticate(token string) (string, error) {
	userID, err := s.tokens.VerifyToken(token)
	if err != nil {
		return "", models.ErrUnauthorized.Wrap(err)
	}
	return userID, nil
}
