package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"closer-backend/internal/metrics"
	"closer-backend/internal/models"
	"closer-backend/internal/repository"

	"github.com/google/uuid"
)

const maxAnswerLength = 2000

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// DailyService handles moods, answers and the partner's view of them
type DailyService struct {
	users     repository.UserRepository
	moods     repository.MoodRepository
	answers   repository.AnswerRepository
	questions repository.QuestionRepository
	metrics   metrics.Recorder
	now       func() time.Time
}

// NewDailyService creates a new daily service
func NewDailyService(store *repository.Store, rec metrics.Recorder) *DailyService {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &DailyService{
		users:     store.Users,
		moods:     store.Moods,
		answers:   store.Answers,
		questions: store.Questions,
		metrics:   rec,
		now:       time.Now,
	}
}

// Today returns the current local day window
func (s *DailyService) Today() DayWindow {
	return DayWindowAt(s.now())
}

// SetMood records the user's color for today, replacing an earlier one from the same day
func (s *DailyService) SetMood(ctx context.Context, userID, color string) (*models.Mood, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return nil, models.NewValidationError("Color is required")
	}
	if !colorPattern.MatchString(color) {
		return nil, models.NewValidationError("Color must be a hex value like #FF8800")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	mood, err := s.moods.Upsert(ctx, &models.Mood{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		CoupleID:  user.CoupleID,
		Date:      DayWindowAt(now).Start,
		Color:     color,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMood()
	return mood, nil
}

// TodaysQuestion returns the question of the current day for a known user
func (s *DailyService) TodaysQuestion(ctx context.Context, userID string) (*models.Question, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	active, err := s.questions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return QuestionForDay(active, s.now())
}

// QuestionForDay picks active[dayOfYear % len(active)], where dayOfYear is 1-based
// and taken from the local calendar date of t. active must be in a stable order.
func QuestionForDay(active []models.Question, t time.Time) (*models.Question, error) {
	if len(active) == 0 {
		return nil, models.ErrNoActiveQuestions
	}
	q := active[t.In(time.Local).YearDay()%len(active)]
	return &q, nil
}

// SubmitAnswer records the user's answer to an active question for today
func (s *DailyService) SubmitAnswer(ctx context.Context, userID, questionID, text string) (*models.Answer, error) {
	text, err := cleanText(text)
	if err != nil {
		return nil, err
	}
	if text == "" || strings.TrimSpace(questionID) == "" {
		return nil, models.NewValidationError("Answer text and question id are required")
	}
	if len([]rune(text)) > maxAnswerLength {
		return nil, models.NewValidationError("Answer is too long")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsPaired() {
		return nil, models.ErrNotPaired
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.ErrInvalidQuestion
		}
		return nil, err
	}
	if !question.IsActive {
		return nil, models.ErrInvalidQuestion
	}

	now := s.now()
	answer, err := s.answers.Upsert(ctx, &models.Answer{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		CoupleID:   *user.CoupleID,
		QuestionID: question.ID,
		Date:       DayWindowAt(now).Start,
		AnswerText: text,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAnswer()
	return answer, nil
}

func (s *DailyService) partnerOf(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.PartnerID == nil {
		return "", models.ErrNoPartner
	}
	return *user.PartnerID, nil
}

// GetPartnerMood returns the partner's mood for today
func (s *DailyService) GetPartnerMood(ctx context.Context, userID string) (*models.Mood, error) {
	partnerID, err := s.partnerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	mood, err := s.moods.GetForDay(ctx, partnerID, s.Today().Start)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.ErrMoodNotSetToday
		}
		return nil, err
	}
	return mood, nil
}

// GetPartnerAnswer returns the partner's latest answer of today
func (s *DailyService) GetPartnerAnswer(ctx context.Context, userID string) (*models.Answer, error) {
	partnerID, err := s.partnerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	answer, err := s.answers.GetForDay(ctx, partnerID, s.Today().Start)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.ErrNotAnsweredToday
		}
		return nil, err
	}
	return answer, nil
}
