package types

import "time"

// Session binds an opaque token to an authenticated identity until ExpiresAt.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its absolute expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Identity is what a resolved session tells a handler about the caller.
type Identity struct {
	Username string
	Email    string
}
