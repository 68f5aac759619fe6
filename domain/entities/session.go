package entities

import (
	"encoding/json"
	"time"
)

// Session holds the authenticated identity issued after an access-key login.
// Identity survives restarts; ticket data deliberately does not and is always
// refetched from the lottery service.
type Session struct {
	Token       string          `db:"token"`
	Address     string          `db:"address"`
	Profile     json.RawMessage `db:"profile"`
	AccessToken string          `db:"access_token"`
	CreatedAt   time.Time       `db:"created_at"`
	ExpiresAt   time.Time       `db:"expires_at"`
}

// IsExpired returns true if the session is past its expiry time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
