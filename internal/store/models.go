package store

import (
	"strings"
	"time"

	"snippets/api/internal/snippet"
)

// User is a full account row. The digest-facing slice of it (category,
// reminder opt-in, view filter) travels as snippet.Author; the rest is
// auth plumbing. Email is the primary key, stored lowercase.
type User struct {
	Email                 string
	DisplayName           string
	PasswordHash          string
	IsAdmin               bool
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	Category              string
	WantsEmail            bool
	WantsToView           string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewUser returns an unverified account with default digest settings.
func NewUser(email, displayName string) User {
	return User{
		Email:       strings.ToLower(email),
		DisplayName: displayName,
		Category:    snippet.DefaultCategory,
		WantsEmail:  true,
		WantsToView: snippet.DefaultWantsToView,
	}
}

// Author returns the digest-facing slice of the account.
func (u User) Author() snippet.Author {
	return snippet.Author{
		Email:       u.Email,
		Category:    u.Category,
		WantsEmail:  u.WantsEmail,
		WantsToView: u.WantsToView,
	}
}

// CommitInfo describes one entry in a user's snippet edit log.
type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}
