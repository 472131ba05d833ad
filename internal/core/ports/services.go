package ports

import (
	"context"

	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
)

// SessionResolver turns a raw Cookie header into an authenticated user id.
type SessionResolver interface {
	Resolve(ctx context.Context, cookieHeader string) (string, error)
}

// AccessValidator decides whether a user may join a business's broadcast
// group.
type AccessValidator interface {
	HasAccess(ctx context.Context, userID, businessID string) bool
}

// EventBroadcaster fans an event out to every live connection matching the
// audience and returns how many connections it was queued for.
type EventBroadcaster interface {
	Broadcast(audience domain.Audience, event domain.OutboundEvent) int
}

// PresenceReader exposes the live connections of a business.
type PresenceReader interface {
	Presence(businessID string) []domain.PresenceEntry
	ConnectedUsers(userIDs []string) map[string]bool
}

// LocationRelay forwards a worker's location to their business peers.
type LocationRelay interface {
	RelayLocation(sender domain.ConnectionInfo, update domain.LocationUpdate) int
}

// Publisher is the broadcast API called by the rest of the backend. Every
// method stamps the event, fans it out and returns the number of
// connections it was queued for. Errors are returned only for invalid input.
type Publisher interface {
	LocationRelay
	BroadcastToBusiness(businessID string, event domain.RawEvent) (int, error)
	SMSReceived(businessID string, event domain.SMSReceived) (int, error)
	PaymentReceived(userID string, event domain.PaymentReceived) (int, error)
	JobStatusChanged(businessID string, event domain.JobStatusChanged) (int, error)
	TimerEvent(businessID string, event domain.TimerEvent) (int, error)
	DocumentStatusChanged(businessID string, event domain.DocumentStatusChanged) (int, error)
	Notify(userIDs []string, event domain.Notification) (int, error)
	BusinessSettingsChanged(businessID string, event domain.BusinessSettingsChanged) (int, error)
	Shutdown()
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	RecipientUserID string
	Subject         string
	Message         string
	Link            string
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// SessionCookieDecoder extracts and verifies the session id carried by a
// signed cookie in a raw Cookie header.
type SessionCookieDecoder interface {
	SessionIDFromHeader(cookieHeader, name string) (string, error)
}
