package services

import (
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/lorrc/fieldservice-realtime/internal/core/mocks"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type broadcastCall struct {
	audience domain.Audience
	event    domain.OutboundEvent
}

type recordingBroadcaster struct {
	mu        sync.Mutex
	calls     []broadcastCall
	delivered int
}

func (r *recordingBroadcaster) Broadcast(audience domain.Audience, event domain.OutboundEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, broadcastCall{audience: audience, event: event})
	return r.delivered
}

func (r *recordingBroadcaster) only(t *testing.T) broadcastCall {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.calls, 1)
	return r.calls[0]
}

var fixedNow = time.UnixMilli(1767225600123)

func newTestPublisher(b ports.EventBroadcaster, opts ...PublisherOption) *PublisherService {
	opts = append([]PublisherOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewPublisher(b, testLogger(), opts...)
}

func frame(t *testing.T, event domain.OutboundEvent) map[string]any {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestPublisher_JobStatusChanged(t *testing.T) {
	b := &recordingBroadcaster{delivered: 2}
	p := newTestPublisher(b)

	n, err := p.JobStatusChanged("b1", domain.JobStatusChanged{JobID: "j1", Status: "done"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	call := b.only(t)
	assert.Equal(t, domain.BusinessAudience("b1"), call.audience)
	assert.Equal(t, map[string]any{
		"type":      "job_status_changed",
		"jobId":     "j1",
		"status":    "done",
		"timestamp": float64(fixedNow.UnixMilli()),
	}, frame(t, call.event))
}

func TestPublisher_BusinessScopedEventsRequireBusinessID(t *testing.T) {
	b := &recordingBroadcaster{}
	p := newTestPublisher(b)

	_, err := p.JobStatusChanged("", domain.JobStatusChanged{JobID: "j1", Status: "done"})
	assert.ErrorIs(t, err, apperrors.ErrBusinessIDRequired)

	_, err = p.SMSReceived("", domain.SMSReceived{ConversationID: "c", SenderPhone: "+1"})
	assert.ErrorIs(t, err, apperrors.ErrBusinessIDRequired)

	_, err = p.BroadcastToBusiness("", domain.RawEvent{"type": "x"})
	assert.ErrorIs(t, err, apperrors.ErrBusinessIDRequired)

	assert.Empty(t, b.calls)
}

func TestPublisher_RejectsInvalidEvents(t *testing.T) {
	b := &recordingBroadcaster{}
	p := newTestPublisher(b)

	tests := []struct {
		name    string
		publish func() (int, error)
	}{
		{"job without id", func() (int, error) {
			return p.JobStatusChanged("b1", domain.JobStatusChanged{Status: "done"})
		}},
		{"timer with unknown action", func() (int, error) {
			return p.TimerEvent("b1", domain.TimerEvent{JobID: "j1", UserID: "u1", Action: "rewound"})
		}},
		{"document with unknown type", func() (int, error) {
			return p.DocumentStatusChanged("b1", domain.DocumentStatusChanged{DocumentType: "receipt", DocumentID: "d1", Status: "sent"})
		}},
		{"settings without fields", func() (int, error) {
			return p.BusinessSettingsChanged("b1", domain.BusinessSettingsChanged{})
		}},
		{"payment without invoice", func() (int, error) {
			return p.PaymentReceived("u1", domain.PaymentReceived{Amount: 100})
		}},
		{"notification with unknown severity", func() (int, error) {
			return p.Notify([]string{"u1"}, domain.Notification{Title: "t", Message: "m", Severity: "fatal"})
		}},
		{"raw event without type", func() (int, error) {
			return p.BroadcastToBusiness("b1", domain.RawEvent{"foo": "bar"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := tt.publish()
			assert.ErrorIs(t, err, apperrors.ErrInvalidEvent)
			assert.Zero(t, n)
		})
	}
	assert.Empty(t, b.calls)
}

func TestPublisher_PaymentReceivedTargetsUser(t *testing.T) {
	b := &recordingBroadcaster{delivered: 1}
	p := newTestPublisher(b)

	_, err := p.PaymentReceived("", domain.PaymentReceived{InvoiceNumber: "INV-1"})
	assert.ErrorIs(t, err, apperrors.ErrUserIDRequired)

	n, err := p.PaymentReceived("u1", domain.PaymentReceived{
		Amount:        12500,
		InvoiceNumber: "INV-1",
		ClientName:    "Acme",
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	call := b.only(t)
	assert.Equal(t, domain.UsersAudience("u1"), call.audience)
	assert.Empty(t, call.audience.BusinessID)

	f := frame(t, call.event)
	assert.Equal(t, "payment_received", f["type"])
	assert.Equal(t, float64(12500), f["amount"])
	assert.Equal(t, "INV-1", f["invoiceNumber"])
}

func TestPublisher_TypedEventsCarryTheirType(t *testing.T) {
	amount := int64(900)
	tests := []struct {
		name     string
		publish  func(p *PublisherService) (int, error)
		wantType string
	}{
		{"sms", func(p *PublisherService) (int, error) {
			return p.SMSReceived("b1", domain.SMSReceived{ConversationID: "c1", SenderPhone: "+15550100", Preview: "hi", IsNewConversation: true})
		}, "sms_received"},
		{"timer", func(p *PublisherService) (int, error) {
			return p.TimerEvent("b1", domain.TimerEvent{JobID: "j1", UserID: "u1", Action: domain.TimerPaused, ElapsedSeconds: 60})
		}, "timer_event"},
		{"document", func(p *PublisherService) (int, error) {
			return p.DocumentStatusChanged("b1", domain.DocumentStatusChanged{DocumentType: domain.DocumentInvoice, DocumentID: "d1", Status: "paid", Amount: &amount})
		}, "document_status_changed"},
		{"settings", func(p *PublisherService) (int, error) {
			return p.BusinessSettingsChanged("b1", domain.BusinessSettingsChanged{UpdatedFields: []string{"quoteTemplateId"}, DocumentTemplateID: "tpl-2"})
		}, "business_settings_changed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &recordingBroadcaster{}
			_, err := tt.publish(newTestPublisher(b))
			require.NoError(t, err)

			call := b.only(t)
			assert.Equal(t, domain.BusinessAudience("b1"), call.audience)
			f := frame(t, call.event)
			assert.Equal(t, tt.wantType, f["type"])
			assert.Equal(t, float64(fixedNow.UnixMilli()), f["timestamp"])
		})
	}
}

func TestPublisher_BroadcastToBusinessDoesNotMutateInput(t *testing.T) {
	b := &recordingBroadcaster{}
	p := newTestPublisher(b)

	event := domain.RawEvent{"type": "quote_viewed", "quoteId": "q1"}
	_, err := p.BroadcastToBusiness("b1", event)
	require.NoError(t, err)

	assert.NotContains(t, event, "timestamp")
	f := frame(t, b.only(t).event)
	assert.Equal(t, "quote_viewed", f["type"])
	assert.Equal(t, "q1", f["quoteId"])
	assert.Equal(t, float64(fixedNow.UnixMilli()), f["timestamp"])
}

func TestPublisher_RelayLocationExcludesSender(t *testing.T) {
	b := &recordingBroadcaster{delivered: 3}
	p := newTestPublisher(b)

	speed := 12.5
	status := domain.ActivityDriving
	sender := domain.ConnectionInfo{ID: "c1", UserID: "u1", BusinessID: "b1", Role: domain.RoleWorker}

	n := p.RelayLocation(sender, domain.LocationUpdate{Latitude: 51.5, Longitude: -0.12, Speed: &speed, ActivityStatus: &status})
	assert.Equal(t, 3, n)

	call := b.only(t)
	assert.Equal(t, domain.BusinessPeersAudience("b1", "u1"), call.audience)
	f := frame(t, call.event)
	assert.Equal(t, "team_location_update", f["type"])
	assert.Equal(t, "u1", f["userId"])
	assert.Equal(t, 51.5, f["latitude"])
	assert.Equal(t, "driving", f["activityStatus"])
	assert.NotContains(t, f, "heading")

	assert.Zero(t, p.RelayLocation(domain.ConnectionInfo{UserID: "u1"}, domain.LocationUpdate{}))
}

func TestPublisher_NotifyDedupesRecipients(t *testing.T) {
	b := &recordingBroadcaster{delivered: 2}
	p := newTestPublisher(b)

	_, err := p.Notify([]string{"", ""}, domain.Notification{Title: "t", Message: "m", Severity: domain.SeverityInfo})
	assert.ErrorIs(t, err, apperrors.ErrUserIDRequired)

	n, err := p.Notify([]string{"u1", "u2", "u1", ""}, domain.Notification{Title: "t", Message: "m", Severity: domain.SeveritySuccess})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, domain.UsersAudience("u1", "u2"), b.only(t).audience)
}

func TestPublisher_NotifyEmailsOfflineUsers(t *testing.T) {
	b := &recordingBroadcaster{delivered: 1}
	presence := mocks.NewMockPresenceReader()
	notifier := mocks.NewMockNotifier()

	presence.On("ConnectedUsers", []string{"online", "offline"}).Return(map[string]bool{"online": true})
	notifier.On("Notify", mock.Anything, ports.NotificationParams{
		RecipientUserID: "offline",
		Subject:         "Quote accepted",
		Message:         "Acme accepted Q-12",
		Link:            "/quotes/12",
	}).Once()

	p := newTestPublisher(b, WithOfflineNotifier(presence, notifier))

	_, err := p.Notify([]string{"online", "offline"}, domain.Notification{
		Title:    "Quote accepted",
		Message:  "Acme accepted Q-12",
		Severity: domain.SeveritySuccess,
		Link:     "/quotes/12",
	})
	require.NoError(t, err)

	p.Shutdown()
	presence.AssertExpectations(t)
	notifier.AssertExpectations(t)
}
