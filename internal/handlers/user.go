package handlers

import (
	"net/http"

	"closer-backend/internal/middleware"
	"closer-backend/internal/services"
)

// UserHandler handles operations on the authenticated user's account
type UserHandler struct {
	accountService *services.AccountService
}

// NewUserHandler creates a new user handler
func NewUserHandler(accountService *services.AccountService) *UserHandler {
	return &UserHandler{
		accountService: accountService,
	}
}

// DeleteUser handles DELETE /api/user
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.accountService.DeleteAccount(r.Context(), userID); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted successfully"})
}
