package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"closer-backend/internal/models"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenAuthenticator resolves a bearer token to a user id
type TokenAuthenticator interface {
	Authenticate(token string) (string, error)
}

// AuthMiddleware creates a middleware for JWT authentication
func AuthMiddleware(tokens TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, models.ErrUnauthorized.WithMessage("Authorization header required"))
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, models.ErrUnauthorized.WithMessage("Invalid authorization header format"))
				return
			}

			userID, err := tokens.Authenticate(parts[1])
			if err != nil {
				writeError(w, models.ErrUnauthorized.WithMessage("Invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID stores the authenticated user id in ctx
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// writeError sends an APIError as the JSON error envelope
func writeError(w http.ResponseWriter, err *models.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	json.NewEncoder(w).Encode(err.Body())
}
