package services

import (
	"html"
	"strings"
	"time"

	"closer-backend/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

// DayWindow is the half-open local calendar day [Start, End)
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// DayWindowAt returns the server-local calendar day containing t
func DayWindowAt(t time.Time) DayWindow {
	t = t.In(time.Local)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
	return DayWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// Contains reports whether t falls inside the window
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// textPolicy allows no markup at all; it is used to detect tags, not to rewrite text
var textPolicy = bluemonday.StrictPolicy()

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// cleanText trims surrounding whitespace and normalizes line endings. Text the
// policy would change, such as HTML tags or comments, is rejected rather than
// stored altered. Stray angle brackets that do not form a tag are kept as written.
func cleanText(s string) (string, error) {
	s = strings.TrimSpace(lineEndings.Replace(s))
	if html.UnescapeString(textPolicy.Sanitize(s)) != html.UnescapeString(s) {
		return "", models.NewValidationError("Text must not contain HTML markup")
	}
	return s, nil
}
