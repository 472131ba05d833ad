package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	BusinessName string
	CreatedAt    time.Time
}

// DisplayName returns the best human-readable name for the user.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.BusinessName != "" {
		return u.BusinessName
	}
	return u.Email
}
