package domain

// EventType is the discriminator carried in every outbound frame.
type EventType string

const (
	EventConnected               EventType = "connected"
	EventPong                    EventType = "pong"
	EventTeamLocationUpdate      EventType = "team_location_update"
	EventSMSReceived             EventType = "sms_received"
	EventPaymentReceived         EventType = "payment_received"
	EventJobStatusChanged        EventType = "job_status_changed"
	EventTimer                   EventType = "timer_event"
	EventDocumentStatusChanged   EventType = "document_status_changed"
	EventNotification            EventType = "notification"
	EventBusinessSettingsChanged EventType = "business_settings_changed"
)

// OutboundEvent is anything that can be serialized into a frame. The
// timestamp is stamped at broadcast time, not at business-event time.
type OutboundEvent interface {
	EventType() EventType
	SetTimestamp(ms int64)
}

// Envelope holds the fields shared by every typed frame. It is embedded so
// that frames serialize flat.
type Envelope struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
}

func (e *Envelope) EventType() EventType { return e.Type }

func (e *Envelope) SetTimestamp(ms int64) { e.Timestamp = ms }

// RawEvent is an arbitrary event object published by the generic business
// broadcast. Its "type" key is the discriminator.
type RawEvent map[string]any

func (e RawEvent) EventType() EventType {
	t, _ := e["type"].(string)
	return EventType(t)
}

func (e RawEvent) SetTimestamp(ms int64) { e["timestamp"] = ms }

// Connected acknowledges a successful handshake.
type Connected struct {
	Envelope
	UserID string `json:"userId"`
}

// Pong answers a client ping.
type Pong struct {
	Envelope
}

// TeamLocationUpdate relays a worker's position to their business peers.
type TeamLocationUpdate struct {
	Envelope
	UserID         string          `json:"userId"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	Speed          *float64        `json:"speed,omitempty"`
	Heading        *float64        `json:"heading,omitempty"`
	BatteryLevel   *float64        `json:"batteryLevel,omitempty"`
	IsCharging     *bool           `json:"isCharging,omitempty"`
	ActivityStatus *ActivityStatus `json:"activityStatus,omitempty"`
}

// NewTeamLocationUpdate builds the relay frame for a sender's update.
func NewTeamLocationUpdate(userID string, loc LocationUpdate) *TeamLocationUpdate {
	return &TeamLocationUpdate{
		Envelope:       Envelope{Type: EventTeamLocationUpdate},
		UserID:         userID,
		Latitude:       loc.Latitude,
		Longitude:      loc.Longitude,
		Speed:          loc.Speed,
		Heading:        loc.Heading,
		BatteryLevel:   loc.BatteryLevel,
		IsCharging:     loc.IsCharging,
		ActivityStatus: loc.ActivityStatus,
	}
}

// SMSReceived announces an inbound text message.
type SMSReceived struct {
	Envelope
	ConversationID    string `json:"conversationId" validate:"required"`
	SenderPhone       string `json:"senderPhone" validate:"required"`
	SenderName        string `json:"senderName,omitempty"`
	Preview           string `json:"preview"`
	JobID             string `json:"jobId,omitempty"`
	UnreadCount       int    `json:"unreadCount" validate:"gte=0"`
	IsNewConversation bool   `json:"isNewConversation"`
	IsUnknownSender   bool   `json:"isUnknownSender"`
	IsJobRequest      bool   `json:"isJobRequest"`
}

// PaymentReceived tells one user that money arrived. Amount is in minor units.
type PaymentReceived struct {
	Envelope
	Amount        int64  `json:"amount" validate:"gte=0"`
	InvoiceNumber string `json:"invoiceNumber" validate:"required"`
	ClientName    string `json:"clientName"`
	PaymentMethod string `json:"paymentMethod"`
}

// JobStatusChanged announces a job moving to a new status.
type JobStatusChanged struct {
	Envelope
	JobID     string `json:"jobId" validate:"required"`
	Status    string `json:"status" validate:"required"`
	Title     string `json:"title,omitempty"`
	UpdatedBy string `json:"updatedBy,omitempty"`
}

// TimerAction is a transition of a job timer.
type TimerAction string

const (
	TimerStarted TimerAction = "started"
	TimerStopped TimerAction = "stopped"
	TimerPaused  TimerAction = "paused"
	TimerResumed TimerAction = "resumed"
)

// TimerEvent announces a job timer transition.
type TimerEvent struct {
	Envelope
	JobID          string      `json:"jobId" validate:"required"`
	UserID         string      `json:"userId" validate:"required"`
	Action         TimerAction `json:"action" validate:"required,oneof=started stopped paused resumed"`
	TimeEntryID    string      `json:"timeEntryId,omitempty"`
	ElapsedSeconds int64       `json:"elapsedSeconds" validate:"gte=0"`
}

// DocumentType names the kinds of documents whose status is broadcast.
type DocumentType string

const (
	DocumentQuote   DocumentType = "quote"
	DocumentInvoice DocumentType = "invoice"
)

// DocumentStatusChanged announces a quote or invoice status change.
type DocumentStatusChanged struct {
	Envelope
	DocumentType DocumentType `json:"documentType" validate:"required,oneof=quote invoice"`
	DocumentID   string       `json:"documentId" validate:"required"`
	Status       string       `json:"status" validate:"required"`
	ClientName   string       `json:"clientName,omitempty"`
	Amount       *int64       `json:"amount,omitempty"`
}

// Severity grades a generic notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a user-facing message sent to a list of users.
type Notification struct {
	Envelope
	Title      string   `json:"title" validate:"required"`
	Message    string   `json:"message" validate:"required"`
	Severity   Severity `json:"severity" validate:"required,oneof=info success warning error"`
	Link       string   `json:"link,omitempty"`
	EntityType string   `json:"entityType,omitempty"`
	EntityID   string   `json:"entityId,omitempty"`
}

// BusinessSettingsChanged lets clients resync business preferences.
type BusinessSettingsChanged struct {
	Envelope
	UpdatedFields      []string `json:"updatedFields" validate:"required,min=1,dive,required"`
	DocumentTemplateID string   `json:"documentTemplateId,omitempty"`
}
