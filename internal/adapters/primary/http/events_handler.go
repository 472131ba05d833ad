package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/fieldservice-realtime/internal/adapters/primary/http/middleware"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
	"github.com/lorrc/fieldservice-realtime/internal/validation"
)

// PublishResponse reports how many connections an event was queued for.
type PublishResponse struct {
	Delivered int `json:"delivered"`
}

// BusinessEventRequest is the body of POST /events/business.
type BusinessEventRequest struct {
	BusinessID string          `json:"businessId" validate:"required"`
	Event      domain.RawEvent `json:"event" validate:"required"`
}

// SMSReceivedRequest is the body of POST /events/sms.
type SMSReceivedRequest struct {
	BusinessID string `json:"businessId" validate:"required"`
	domain.SMSReceived
}

// PaymentReceivedRequest is the body of POST /events/payment.
type PaymentReceivedRequest struct {
	UserID string `json:"userId" validate:"required"`
	domain.PaymentReceived
}

// JobStatusChangedRequest is the body of POST /events/job-status.
type JobStatusChangedRequest struct {
	BusinessID string `json:"businessId" validate:"required"`
	domain.JobStatusChanged
}

// TimerEventRequest is the body of POST /events/timer.
type TimerEventRequest struct {
	BusinessID string `json:"businessId" validate:"required"`
	domain.TimerEvent
}

// DocumentStatusChangedRequest is the body of POST /events/document-status.
type DocumentStatusChangedRequest struct {
	BusinessID string `json:"businessId" validate:"required"`
	domain.DocumentStatusChanged
}

// NotificationRequest is the body of POST /events/notification.
type NotificationRequest struct {
	UserIDs []string `json:"userIds" validate:"required,min=1,dive,required"`
	domain.Notification
}

// BusinessSettingsChangedRequest is the body of POST /events/business-settings.
type BusinessSettingsChangedRequest struct {
	BusinessID string `json:"businessId" validate:"required"`
	domain.BusinessSettingsChanged
}

// EventsHandler exposes the broadcast API to other backend processes.
type EventsHandler struct {
	publisher    ports.Publisher
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(publisher ports.Publisher, errorHandler *ErrorHandler, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		publisher:    publisher,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "events"),
	}
}

// RegisterRoutes registers the publish routes. They must be mounted behind
// ServiceAuth.
func (h *EventsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/business", h.HandleBusiness)
		r.Post("/sms", h.HandleSMSReceived)
		r.Post("/payment", h.HandlePaymentReceived)
		r.Post("/job-status", h.HandleJobStatusChanged)
		r.Post("/timer", h.HandleTimerEvent)
		r.Post("/document-status", h.HandleDocumentStatusChanged)
		r.Post("/notification", h.HandleNotification)
		r.Post("/business-settings", h.HandleBusinessSettingsChanged)
	})
}

func (h *EventsHandler) HandleBusiness(w http.ResponseWriter, r *http.Request) {
	publish(h, w, r, func(req *BusinessEventRequest) (int, error) {
		return h.publisher.BroadcastToBusiness(req.BusinessID, req.Event)
	})
}

func (h *EventsHandler) HandleSMSReceived(w http.ResponseWriter, r *http.Request) {
	publish(h, w, r, func(req *SMSReceivedRequest) (int, error) {
		return h.publisher.SMSReceived(req.BusinessID, req.SMSReceived)
	})
}

func (h *EventsHandler) HandlePaymentReceived(w http.ResponseWriter, r *http.Request) {
	publish(h, w, r, func(req *PaymentReceivedRequest) (int, error) {
		return h.publisher.PaymentReceived(req.UserID, req.PaymentReceived)
	})
}

func (h *EventsHandler) HandleJobStatusChanged(w http.ResponseWriter, r *http.Request) {
	publish(h, w, r, func(req *JobStatusChangedRequest) (int, error) {
		return h.publisher.JobStatusChanged(req.BusinessID, req.JobStatusChanged)
	})
}

func (h *EventsHandler) HandleTimerEvent(w http.ResponseWriter, r *http.Request) {
	publish(h, w, r, func(req *TimerEventRequest) (int, error) {
		return h.publisher.TimerEvent(req.BusinessID, req.TimerEvent)
	})
}

func (h *EventsHandler) HandleDocumentStatusChanged(w http.ResponseWriter, r *http.Request) {
	publish(h, w, r, func(req *DocumentStatusChangedRequest) (int, error) {
		return h.publisher.DocumentStatusChanged(req.BusinessID, req.DocumentStatusChanged)
	})
}

func (h *EventsHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	publish(h, w, r, func(req *NotificationRequest) (int, error) {
		return h.publisher.Notify(req.UserIDs, req.Notification)
	})
}

func (h *EventsHandler) HandleBusinessSettingsChanged(w http.ResponseWriter, r *http.Request) {
	publish(h, w, r, func(req *BusinessSettingsChangedRequest) (int, error) {
		return h.publisher.BusinessSettingsChanged(req.BusinessID, req.BusinessSettingsChanged)
	})
}

// publish decodes and validates a request body, hands it to fn and writes
// the delivered count.
func publish[T any](h *EventsHandler, w http.ResponseWriter, r *http.Request, fn func(*T) (int, error)) {
	req, err := validation.DecodeAndValidate[T](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	delivered, err := fn(req)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	service := ""
	if claims, ok := mw.GetServiceClaims(r.Context()); ok {
		service = claims.Service
	}
	h.logger.Debug("event published over http",
		"path", r.URL.Path,
		"service", service,
		"delivered", delivered,
	)

	WriteAccepted(w, PublishResponse{Delivered: delivered})
}
