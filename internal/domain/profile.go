package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCurrency is assigned to lazily created profiles.
const DefaultCurrency = "EUR"

// Profile represents a profiles row (one per user).
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Username  *string   `json:"username"`
	FullName  *string   `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate holds the editable profile fields. An empty string clears
// an optional field.
type ProfileUpdate struct {
	Username  *string `json:"username" validate:"omitempty,max=50"`
	FullName  *string `json:"full_name" validate:"omitempty,max=120"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=500"`
	Currency  *string `json:"currency" validate:"omitempty,min=3,max=4"`
}

// Apply mutates p with the update.
func (u ProfileUpdate) Apply(p *Profile, now time.Time) {
	if u.Username != nil {
		p.Username = blankToNil(u.Username)
	}
	if u.FullName != nil {
		p.FullName = blankToNil(u.FullName)
	}
	if u.AvatarURL != nil {
		p.AvatarURL = blankToNil(u.AvatarURL)
	}
	if u.Currency != nil {
		p.Currency = *u.Currency
	}
	p.UpdatedAt = now
}

// AuthUser holds credentials from auth_users.
type AuthUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PasswordResetToken represents a password_reset_tokens row. Only the
// SHA-256 of the token is stored.
type PasswordResetToken struct {
	TokenHash string     `json:"-"`
	UserID    uuid.UUID  `json:"user_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Usable reports whether the token can still reset a password at now.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
