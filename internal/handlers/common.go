package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"closer-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 64 << 10

// MessageResponse is the body of operations that only confirm success
type MessageResponse struct {
	Message string `json:"message"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError sends an error response. Errors that are not APIErrors are
// logged and answered with a generic 500 so internal detail never leaks.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := models.AsAPIError(err)
	if !ok {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		apiErr = models.ErrInternal
	} else if apiErr.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", apiErr.Code).Str("path", r.URL.Path).Msg("Request failed")
	}
	respondJSON(w, apiErr.Status, apiErr.Body())
}

// decodeJSON reads a JSON body into dst. An empty body is treated as {}.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}
