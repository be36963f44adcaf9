package services

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strings"
	"time"

	"closer-backend/internal/metrics"
	"closer-backend/internal/models"
	"closer-backend/internal/repository"
	"closer-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultPage       = 1
	defaultPageLimit  = 10
	maxPageLimit      = 100
	maxMemoryLength   = 2000
	maxPhotoURLLength = 2048

	// maxPage keeps (page-1)*limit inside a 32-bit int
	maxPage = math.MaxInt32 / maxPageLimit
)

// MemoryService handles the shared couple feed
type MemoryService struct {
	users    repository.UserRepository
	moods    repository.MoodRepository
	memories repository.MemoryRepository
	uploader storage.PhotoUploader
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewMemoryService creates a new memory service. uploader may be nil when photo uploads are disabled.
func NewMemoryService(store *repository.Store, uploader storage.PhotoUploader, rec metrics.Recorder) *MemoryService {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &MemoryService{
		users:    store.Users,
		moods:    store.Moods,
		memories: store.Memories,
		uploader: uploader,
		metrics:  rec,
		now:      time.Now,
	}
}

// MemoryPage is one page of a couple's feed
type MemoryPage struct {
	Memories   []models.Memory   `json:"memories"`
	Pagination models.Pagination `json:"pagination"`
}

func (s *MemoryService) coupleOf(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsPaired() {
		return nil, models.ErrNotPaired
	}
	return user, nil
}

func validatePhotoURL(raw string) error {
	if len(raw) > maxPhotoURLLength {
		return models.NewValidationError("Photo URL is too long")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.NewValidationError("Photo URL must be an http or https URL")
	}
	return nil
}

// PostMemory appends a memory to the author's couple feed. The memory's color is the
// author's mood color at this moment, or the default white when no mood is set today.
func (s *MemoryService) PostMemory(ctx context.Context, userID, text string, photoURL *string) (*models.Memory, error) {
	text, err := cleanText(text)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, models.NewValidationError("Text is required")
	}
	if len([]rune(text)) > maxMemoryLength {
		return nil, models.NewValidationError("Text is too long")
	}
	if photoURL != nil {
		trimmed := strings.TrimSpace(*photoURL)
		if trimmed == "" {
			photoURL = nil
		} else if err := validatePhotoURL(trimmed); err != nil {
			return nil, err
		} else {
			photoURL = &trimmed
		}
	}

	user, err := s.coupleOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	color := models.DefaultMemoryColor
	mood, err := s.moods.GetForDay(ctx, user.ID, DayWindowAt(now).Start)
	switch {
	case err == nil:
		color = mood.Color
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	memory := &models.Memory{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		AuthorEmail: user.Email,
		CoupleID:    *user.CoupleID,
		Text:        text,
		PhotoURL:    photoURL,
		Color:       color,
		CreatedAt:   now,
	}
	if err := s.memories.Create(ctx, memory); err != nil {
		return nil, err
	}

	s.metrics.RecordMemory()
	log.Info().Str("user_id", user.ID).Str("memory_id", memory.ID).Msg("Memory posted")
	return memory, nil
}

// NormalizePage applies the feed defaults: page below 1 becomes 1, limit below 1
// becomes 10 and limit above 100 is capped. Very large pages are clamped so the
// offset never overflows; they still land past the end of any feed.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// ListMemories returns a newest-first page of the requester's couple feed
func (s *MemoryService) ListMemories(ctx context.Context, userID string, page, limit int) (*MemoryPage, error) {
	user, err := s.coupleOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	page, limit = NormalizePage(page, limit)
	skip := (page - 1) * limit

	memories, total, err := s.memories.ListByCouple(ctx, *user.CoupleID, limit, skip)
	if err != nil {
		return nil, err
	}
	if memories == nil {
		memories = []models.Memory{}
	}

	return &MemoryPage{
		Memories: memories,
		Pagination: models.Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasMore: skip+len(memories) < total,
		},
	}, nil
}

// DeleteMemory removes a memory authored by the requester. A missing memory and
// someone else's memory produce the same error.
func (s *MemoryService) DeleteMemory(ctx context.Context, memoryID, userID string) error {
	if strings.TrimSpace(memoryID) == "" {
		return models.ErrMemoryNotFound
	}
	if err := s.memories.DeleteOwned(ctx, memoryID, userID); err != nil {
		return err
	}
	log.Info().Str("user_id", userID).Str("memory_id", memoryID).Msg("Memory deleted")
	return nil
}

// PresignPhotoUpload returns a presigned upload into the requester's couple folder
func (s *MemoryService) PresignPhotoUpload(ctx context.Context, userID, contentType string) (*storage.Upload, error) {
	if s.uploader == nil {
		return nil, models.ErrPhotoUploadsDisabled
	}
	user, err := s.coupleOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	upload, err := s.uploader.PresignUpload(ctx, *user.CoupleID, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedContentType) {
			return nil, models.NewValidationError("Content type must be image/jpeg, image/png, image/webp or image/heic")
		}
		return nil, err
	}
	return upload, nil
}
