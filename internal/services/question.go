package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"closer-backend/internal/models"
	"closer-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// QuestionFile is the on-disk format of the question set
type QuestionFile struct {
	Questions []QuestionEntry `yaml:"questions"`
}

// QuestionEntry is one seeded question. Inactive entries keep their slot in the order.
type QuestionEntry struct {
	Text     string `yaml:"text"`
	Category string `yaml:"category"`
	Inactive bool   `yaml:"inactive"`
}

// ParseQuestions decodes a question file. Positions follow file order starting at 1.
func ParseQuestions(data []byte) ([]models.Question, error) {
	var file QuestionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse questions: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("question file has no questions")
	}

	questions := make([]models.Question, 0, len(file.Questions))
	for i, e := range file.Questions {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return nil, fmt.Errorf("question %d has no text", i+1)
		}
		questions = append(questions, models.Question{
			ID:       uuid.New().String(),
			Text:     text,
			Category: strings.TrimSpace(e.Category),
			IsActive: !e.Inactive,
			Position: i + 1,
		})
	}
	return questions, nil
}

// QuestionService maintains the seeded question set
type QuestionService struct {
	questions repository.QuestionRepository
}

// NewQuestionService creates a new question service
func NewQuestionService(questions repository.QuestionRepository) *QuestionService {
	return &QuestionService{questions: questions}
}

// SeedFromFile replaces the question set with the contents of a YAML file
func (s *QuestionService) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read question file: %w", err)
	}
	questions, err := ParseQuestions(data)
	if err != nil {
		return 0, err
	}
	if err := s.questions.Sync(ctx, questions); err != nil {
		return 0, err
	}
	log.Info().Int("count", len(questions)).Str("file", path).Msg("Questions seeded")
	return len(questions), nil
}
