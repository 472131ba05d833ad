package domain

import "time"

// Session is the subset of an HTTP session this service reads.
type Session struct {
	ID      string
	UserID  string
	Expires time.Time
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.Expires.IsZero() && now.After(s.Expires)
}
