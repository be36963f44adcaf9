package models

import "time"

// DefaultMemoryColor is stamped on a memory when its author has no mood today
const DefaultMemoryColor = "#FFFFFF"

// User represents an account. PartnerID and CoupleID are either both set or both nil.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	IsVerified       bool      `json:"isVerified"`
	EmailVerifyToken *string   `json:"-"`
	InviteCode       *string   `json:"inviteCode,omitempty"`
	PartnerID        *string   `json:"partnerId"`
	CoupleID         *string   `json:"coupleId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// IsPaired reports whether the user currently belongs to a couple
func (u *User) IsPaired() bool {
	return u.CoupleID != nil && *u.CoupleID != ""
}

// Mood is a user's color for one calendar day
type Mood struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CoupleID  *string   `json:"coupleId"`
	Date      time.Time `json:"date"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Answer is a user's reply to a question on one calendar day
type Answer struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	CoupleID   string    `json:"coupleId"`
	QuestionID string    `json:"questionId"`
	Date       time.Time `json:"date"`
	AnswerText string    `json:"answerText"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Question is an entry of the externally seeded question set.
// Position is the stable ordering key used by the daily rotation.
type Question struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	IsActive bool   `json:"isActive"`
	Position int    `json:"-"`
}

// Memory is an entry in a couple's shared feed
type Memory struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	AuthorEmail string    `json:"authorEmail,omitempty"`
	CoupleID    string    `json:"coupleId"`
	Text        string    `json:"text"`
	PhotoURL    *string   `json:"photoUrl"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Pagination describes an offset page of a listing
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}
