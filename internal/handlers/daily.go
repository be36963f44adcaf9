package handlers

import (
	"net/http"

	"closer-backend/internal/middleware"
	"closer-backend/internal/models"
	"closer-backend/internal/services"
)

// DailyHandler handles moods, the question of the day and answers
type DailyHandler struct {
	dailyService *services.DailyService
}

// NewDailyHandler creates a new daily handler
func NewDailyHandler(dailyService *services.DailyService) *DailyHandler {
	return &DailyHandler{
		dailyService: dailyService,
	}
}

// SetMoodRequest is the body of POST /api/mood
type SetMoodRequest struct {
	Color string `json:"color"`
}

// MoodResponse confirms a stored mood
type MoodResponse struct {
	Message string       `json:"message"`
	Mood    *models.Mood `json:"mood"`
}

// PartnerMoodResponse carries the partner's mood of today
type PartnerMoodResponse struct {
	PartnerMood *models.Mood `json:"partnerMood"`
}

// QuestionView is the client view of a question
type QuestionView struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// QuestionResponse carries the question of the day
type QuestionResponse struct {
	Question QuestionView `json:"question"`
}

// SubmitAnswerRequest is the body of POST /api/question/answer
type SubmitAnswerRequest struct {
	AnswerText string `json:"answerText"`
	QuestionID string `json:"questionId"`
}

// AnswerResponse confirms a stored answer
type AnswerResponse struct {
	Message string         `json:"message"`
	Answer  *models.Answer `json:"answer"`
}

// PartnerAnswerResponse carries the partner's latest answer of today
type PartnerAnswerResponse struct {
	PartnerAnswer *models.Answer `json:"partnerAnswer"`
}

// SetMood handles POST /api/mood
func (h *DailyHandler) SetMood(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SetMoodRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	mood, err := h.dailyService.SetMood(r.Context(), userID, req.Color)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, MoodResponse{Message: "Mood updated successfully", Mood: mood})
}

// PartnerMood handles GET /api/mood/partner
func (h *DailyHandler) PartnerMood(w http.ResponseWriter, r *http.Request) {
	mood, err := h.dailyService.GetPartnerMood(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, PartnerMoodResponse{PartnerMood: mood})
}

// TodaysQuestion handles GET /api/question/today
func (h *DailyHandler) TodaysQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.dailyService.TodaysQuestion(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, QuestionResponse{
		Question: QuestionView{ID: q.ID, Text: q.Text, Category: q.Category},
	})
}

// SubmitAnswer handles POST /api/question/answer
func (h *DailyHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SubmitAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	answer, err := h.dailyService.SubmitAnswer(r.Context(), userID, req.QuestionID, req.AnswerText)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, AnswerResponse{Message: "Answer saved", Answer: answer})
}

// PartnerAnswer handles GET /api/question/partner
func (h *DailyHandler) PartnerAnswer(w http.ResponseWriter, r *http.Request) {
	answer, err := h.dailyService.GetPartnerAnswer(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, PartnerAnswerResponse{PartnerAnswer: answer})
}
