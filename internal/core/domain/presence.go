package domain

import "time"

// PresenceEntry describes one live connection of a business.
type PresenceEntry struct {
	ConnectionID string
	UserID       string
	Role         Role
	ConnectedAt  time.Time
	LastLocation *LocationSnapshot
}
