package handlers

import (
	"net/http"
	"strconv"

	"closer-backend/internal/middleware"
	"closer-backend/internal/models"
	"closer-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MemoryHandler handles the couple memory feed
type MemoryHandler struct {
	memoryService *services.MemoryService
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(memoryService *services.MemoryService) *MemoryHandler {
	return &MemoryHandler{
		memoryService: memoryService,
	}
}

// PostMemoryRequest is the body of POST /api/memoryfeed
type PostMemoryRequest struct {
	Text     string  `json:"text"`
	PhotoURL *string `json:"photoUrl"`
}

// MemoryResponse confirms a stored memory
type MemoryResponse struct {
	Message string         `json:"message"`
	Memory  *models.Memory `json:"memory"`
}

// PhotoUploadRequest is the body of POST /api/memoryfeed/photo-upload
type PhotoUploadRequest struct {
	ContentType string `json:"contentType"`
}

// PostMemory handles POST /api/memoryfeed
func (h *MemoryHandler) PostMemory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req PostMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	memory, err := h.memoryService.PostMemory(r.Context(), userID, req.Text, req.PhotoURL)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, MemoryResponse{Message: "Memory added to the jar", Memory: memory})
}

// ListMemories handles GET /api/memoryfeed?page=&limit=
func (h *MemoryHandler) ListMemories(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	// Non-numeric values fall back to the defaults
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.memoryService.ListMemories(r.Context(), userID, page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// DeleteMemory handles DELETE /api/memoryfeed/{id}
func (h *MemoryHandler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.memoryService.DeleteMemory(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "Memory deleted successfully"})
}

// PhotoUpload handles POST /api/memoryfeed/photo-upload
func (h *MemoryHandler) PhotoUpload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req PhotoUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "image/jpeg" // Default
	}

	upload, err := h.memoryService.PresignPhotoUpload(r.Context(), userID, req.ContentType)
	if err != nil {
		respondError(w, r, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("content_type", req.ContentType).
		Msg("Pre-signed upload URL generated")

	respondJSON(w, http.StatusOK, upload)
}
