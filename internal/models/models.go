package models

import "time"

// SessionState is the cached view of a verified access token.
type SessionState struct {
	TokenID   string    `json:"token_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Revoked   bool      `json:"revoked"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the underlying token is past its expiry.
func (s *SessionState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
