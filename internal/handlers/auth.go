package handlers

import (
	"net/http"

	"closer-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// AuthHandler handles signup, email verification and login
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

// CredentialsRequest is the body of signup and login
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session token
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if _, err := h.userService.Register(r.Context(), req.Email, req.Password); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "User created successfully, email sent!"})
}

// Verify handles GET /api/auth/verify/{token}
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if _, err := h.userService.VerifyEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "Email verified successfully!"})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	token, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{Message: "Login is successful", Token: token})
}
