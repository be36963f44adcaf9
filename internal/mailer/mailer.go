// Package mailer delivers verification emails.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"closer-backend/internal/config"

	"github.com/doyensec/safeurl"
	"github.com/rs/zerolog/log"
)

const verificationSubject = "Verify your email for our app CLOSER"

// Sender sends the verification link to a freshly registered address
type Sender interface {
	SendVerification(ctx context.Context, to, verifyURL string) error
}

// VerificationURL builds the link a user follows to verify its email
func VerificationURL(publicBaseURL, token string) string {
	return strings.TrimRight(publicBaseURL, "/") + "/api/auth/verify/" + url.PathEscape(token)
}

// NewSafeClient returns an HTTP client that refuses private, loopback and
// metadata addresses and only speaks https on 443.
func NewSafeClient(timeout time.Duration) *http.Client {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("https").
		SetAllowedPorts(443).
		Build()
	return safeurl.Client(cfg).Client
}

// New returns the sender selected by cfg.Provider
func New(cfg config.MailConfig) (Sender, error) {
	switch cfg.Provider {
	case config.MailProviderBrevo:
		return NewBrevoSender(cfg, NewSafeClient(10*time.Second)), nil
	case config.MailProviderLog:
		return LogSender{}, nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// BrevoSender sends transactional email through the Brevo HTTP API
type BrevoSender struct {
	client      *http.Client
	endpoint    string
	apiKey      string
	senderName  string
	senderEmail string
}

// NewBrevoSender creates a Brevo sender using client for the API calls
func NewBrevoSender(cfg config.MailConfig, client *http.Client) *BrevoSender {
	return &BrevoSender{
		client:      client,
		endpoint:    cfg.BrevoEndpoint,
		apiKey:      cfg.BrevoAPIKey,
		senderName:  cfg.SenderName,
		senderEmail: cfg.SenderEmail,
	}
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// SendVerification posts the verification email. Any non-2xx answer is an error.
func (s *BrevoSender) SendVerification(ctx context.Context, to, verifyURL string) error {
	link := html.EscapeString(verifyURL)
	payload := brevoEmail{
		Sender:  brevoAddress{Name: s.senderName, Email: s.senderEmail},
		To:      []brevoAddress{{Email: to}},
		Subject: verificationSubject,
		HTMLContent: "<p>Click the link below to verify your email:</p>" +
			`<a href="` + link + `">` + link + `</a>`,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// LogSender writes the verification link to the log instead of sending mail.
// Used for local development.
type LogSender struct{}

// SendVerification logs the link
func (LogSender) SendVerification(_ context.Context, to, verifyURL string) error {
	log.Info().Str("to", to).Str("verify_url", verifyURL).Msg("Verification email (log provider)")
	return nil
}
