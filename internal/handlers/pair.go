package handlers

import (
	"net/http"

	"closer-backend/internal/middleware"
	"closer-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PairHandler handles invite codes
type PairHandler struct {
	pairService *services.PairService
}

// NewPairHandler creates a new pair handler
func NewPairHandler(pairService *services.PairService) *PairHandler {
	return &PairHandler{
		pairService: pairService,
	}
}

// InviteCodeResponse carries a freshly generated invite code
type InviteCodeResponse struct {
	InviteCode string `json:"inviteCode"`
}

// UseInviteRequest is the body of POST /api/invite/use
type UseInviteRequest struct {
	InviteCode string `json:"inviteCode"`
}

// UseInviteResponse confirms a pairing
type UseInviteResponse struct {
	Message  string `json:"message"`
	CoupleID string `json:"coupleId"`
}

// GenerateInvite handles POST /api/invite/generate
func (h *PairHandler) GenerateInvite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	code, err := h.pairService.GenerateInviteCode(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, InviteCodeResponse{InviteCode: code})
}

// UseInvite handles POST /api/invite/use
func (h *PairHandler) UseInvite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UseInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.pairService.RedeemInviteCode(r.Context(), userID, req.InviteCode)
	if err != nil {
		log.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("Failed to redeem invite code")
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, UseInviteResponse{
		Message:  "The couple was created successfully",
		CoupleID: *user.CoupleID,
	})
}
