package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
	"github.com/lorrc/fieldservice-realtime/internal/validation"
)

// PublisherService implements the broadcast API on top of the connection
// registry. Delivery is best effort; the returned counts are connections the
// event was queued for.
type PublisherService struct {
	broadcaster ports.EventBroadcaster
	presence    ports.PresenceReader
	notifier    ports.Notifier
	now         func() time.Time
	logger      *slog.Logger
	wg          sync.WaitGroup
}

var _ ports.Publisher = (*PublisherService)(nil)

// PublisherOption configures optional collaborators.
type PublisherOption func(*PublisherService)

// WithOfflineNotifier hands generic notifications for users with no live
// connection to notifier. presence tells which users are connected.
func WithOfflineNotifier(presence ports.PresenceReader, notifier ports.Notifier) PublisherOption {
	return func(p *PublisherService) {
		p.presence = presence
		p.notifier = notifier
	}
}

// WithClock overrides the clock used to stamp events.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *PublisherService) {
		p.now = now
	}
}

// NewPublisher creates the broadcast API.
func NewPublisher(broadcaster ports.EventBroadcaster, logger *slog.Logger, opts ...PublisherOption) *PublisherService {
	p := &PublisherService{
		broadcaster: broadcaster,
		now:         time.Now,
		logger:      logger.With("component", "publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RelayLocation sends a worker's location to every other connection of their
// business. The sender's own connections never receive it.
func (p *PublisherService) RelayLocation(sender domain.ConnectionInfo, update domain.LocationUpdate) int {
	if sender.BusinessID == "" || sender.UserID == "" {
		return 0
	}
	return p.publish(
		domain.BusinessPeersAudience(sender.BusinessID, sender.UserID),
		domain.NewTeamLocationUpdate(sender.UserID, update),
	)
}

// BroadcastToBusiness sends an arbitrary event object to a business. The
// event must carry a non-empty string "type". The caller's map is not
// modified.
func (p *PublisherService) BroadcastToBusiness(businessID string, event domain.RawEvent) (int, error) {
	if businessID == "" {
		return 0, apperrors.ErrBusinessIDRequired
	}
	if event.EventType() == "" {
		return 0, fmt.Errorf("%w: type is required", apperrors.ErrInvalidEvent)
	}
	return p.publish(domain.BusinessAudience(businessID), maps.Clone(event)), nil
}

// SMSReceived tells a business about an inbound SMS.
func (p *PublisherService) SMSReceived(businessID string, event domain.SMSReceived) (int, error) {
	event.Envelope = domain.Envelope{Type: domain.EventSMSReceived}
	return p.publishToBusiness(businessID, &event)
}

// PaymentReceived targets a single user on every device, whatever business
// scope their connections were opened for.
func (p *PublisherService) PaymentReceived(userID string, event domain.PaymentReceived) (int, error) {
	if userID == "" {
		return 0, apperrors.ErrUserIDRequired
	}
	event.Envelope = domain.Envelope{Type: domain.EventPaymentReceived}
	if err := validateEvent(&event); err != nil {
		return 0, err
	}
	return p.publish(domain.UsersAudience(userID), &event), nil
}

// JobStatusChanged announces a job status change to a business.
func (p *PublisherService) JobStatusChanged(businessID string, event domain.JobStatusChanged) (int, error) {
	event.Envelope = domain.Envelope{Type: domain.EventJobStatusChanged}
	return p.publishToBusiness(businessID, &event)
}

// TimerEvent announces a job timer action to a business.
func (p *PublisherService) TimerEvent(businessID string, event domain.TimerEvent) (int, error) {
	event.Envelope = domain.Envelope{Type: domain.EventTimer}
	return p.publishToBusiness(businessID, &event)
}

// DocumentStatusChanged announces a quote or invoice status change to a business.
func (p *PublisherService) DocumentStatusChanged(businessID string, event domain.DocumentStatusChanged) (int, error) {
	event.Envelope = domain.Envelope{Type: domain.EventDocumentStatusChanged}
	return p.publishToBusiness(businessID, &event)
}

// BusinessSettingsChanged tells a business's clients to resync its settings.
func (p *PublisherService) BusinessSettingsChanged(businessID string, event domain.BusinessSettingsChanged) (int, error) {
	event.Envelope = domain.Envelope{Type: domain.EventBusinessSettingsChanged}
	return p.publishToBusiness(businessID, &event)
}

// Notify sends a notification to every connection of the listed users.
// Users with no live connection are emailed when an offline notifier is
// configured.
func (p *PublisherService) Notify(userIDs []string, event domain.Notification) (int, error) {
	recipients := uniqueNonEmpty(userIDs)
	if len(recipients) == 0 {
		return 0, apperrors.ErrUserIDRequired
	}
	event.Envelope = domain.Envelope{Type: domain.EventNotification}
	if err := validateEvent(&event); err != nil {
		return 0, err
	}

	delivered := p.publish(domain.UsersAudience(recipients...), &event)
	p.notifyOffline(recipients, event)
	return delivered, nil
}

// Shutdown waits for in-flight offline notifications.
func (p *PublisherService) Shutdown() {
	p.wg.Wait()
}

func (p *PublisherService) publishToBusiness(businessID string, event domain.OutboundEvent) (int, error) {
	if businessID == "" {
		return 0, apperrors.ErrBusinessIDRequired
	}
	if err := validateEvent(event); err != nil {
		return 0, err
	}
	return p.publish(domain.BusinessAudience(businessID), event), nil
}

func (p *PublisherService) publish(audience domain.Audience, event domain.OutboundEvent) int {
	event.SetTimestamp(p.now().UnixMilli())
	delivered := p.broadcaster.Broadcast(audience, event)

	p.logger.Debug("event published",
		"event_type", event.EventType(),
		"business_id", audience.BusinessID,
		"user_count", len(audience.UserIDs),
		"delivered", delivered,
	)
	return delivered
}

func (p *PublisherService) notifyOffline(recipients []string, event domain.Notification) {
	if p.notifier == nil || p.presence == nil {
		return
	}

	connected := p.presence.ConnectedUsers(recipients)
	for _, userID := range recipients {
		if connected[userID] {
			continue
		}

		p.wg.Add(1)
		go func(userID string) {
			defer p.wg.Done()
			// The publishing request may already be done.
			p.notifier.Notify(context.Background(), ports.NotificationParams{
				RecipientUserID: userID,
				Subject:         event.Title,
				Message:         event.Message,
				Link:            event.Link,
			})
		}(userID)
	}
}

func validateEvent(event any) error {
	if verr := validation.ValidateStruct(event); verr != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidEvent, verr.Error())
	}
	return nil
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
