package websocket

import (
	"log/slog"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
	"github.com/lorrc/fieldservice-realtime/internal/infrastructure/metrics"
	"github.com/lorrc/fieldservice-realtime/internal/validation"
)

// Inbound frame types.
const (
	FramePing           = "ping"
	FrameLocationUpdate = "location_update"
)

// ClientMessage is the envelope of every frame sent by a client.
type ClientMessage struct {
	Type string `json:"type"`
}

// LocationFrame is the body of a location_update frame.
type LocationFrame struct {
	Latitude       *float64 `json:"latitude" validate:"required,latitude"`
	Longitude      *float64 `json:"longitude" validate:"required,longitude"`
	Speed          *float64 `json:"speed"`
	Heading        *float64 `json:"heading"`
	BatteryLevel   *float64 `json:"batteryLevel"`
	IsCharging     *bool    `json:"isCharging"`
	ActivityStatus *string  `json:"activityStatus" validate:"omitempty,oneof=online driving working idle offline"`
}

// ToDomain converts a validated frame. Optional readings outside their
// physical range (devices report -1 for unknown speed and heading) are
// dropped rather than relayed.
func (f *LocationFrame) ToDomain() domain.LocationUpdate {
	update := domain.LocationUpdate{
		Latitude:     *f.Latitude,
		Longitude:    *f.Longitude,
		Speed:        within(f.Speed, 0, math.MaxFloat64),
		Heading:      within(f.Heading, 0, 360),
		BatteryLevel: within(f.BatteryLevel, 0, 100),
		IsCharging:   f.IsCharging,
	}
	if f.ActivityStatus != nil {
		status := domain.ActivityStatus(*f.ActivityStatus)
		update.ActivityStatus = &status
	}
	return update
}

func within(v *float64, lo, hi float64) *float64 {
	if v == nil || *v < lo || *v > hi {
		return nil
	}
	return v
}

// Router dispatches inbound frames. Bad frames are logged and dropped; they
// never close the connection.
type Router struct {
	hub    *Hub
	relay  ports.LocationRelay
	now    func() time.Time
	logger *slog.Logger
}

// NewRouter creates a router relaying locations through relay.
func NewRouter(hub *Hub, relay ports.LocationRelay, logger *slog.Logger) *Router {
	return &Router{
		hub:    hub,
		relay:  relay,
		now:    time.Now,
		logger: logger.With("component", "websocket_router"),
	}
}

// Route handles one raw frame from client.
func (r *Router) Route(client *Client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.logger.Warn("failed to unmarshal client message", "error", err)
		metrics.RecordFrame("", metrics.FrameMalformed)
		return
	}

	switch msg.Type {
	case FramePing:
		r.handlePing(client)

	case FrameLocationUpdate:
		r.handleLocation(client, raw)

	default:
		client.logger.Debug("received unknown message type", "type", msg.Type)
		metrics.RecordFrame("unknown", metrics.FrameUnknown)
	}
}

func (r *Router) handlePing(client *Client) {
	pong := &domain.Pong{Envelope: domain.Envelope{Type: domain.EventPong}}
	pong.SetTimestamp(r.now().UnixMilli())
	r.hub.SendTo(client, pong)
	metrics.RecordFrame(FramePing, metrics.FrameHandled)
}

func (r *Router) handleLocation(client *Client, raw []byte) {
	if _, ok := r.hub.Lookup(client.ID()); !ok {
		client.logger.Debug("dropping location from unregistered connection")
		metrics.RecordFrame(FrameLocationUpdate, metrics.FrameStale)
		return
	}

	var frame LocationFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		client.logger.Warn("failed to unmarshal location update", "error", err)
		metrics.RecordFrame(FrameLocationUpdate, metrics.FrameMalformed)
		return
	}

	if verr := validation.ValidateStruct(&frame); verr != nil {
		client.logger.Warn("invalid location update", "error", verr.Error())
		metrics.RecordFrame(FrameLocationUpdate, metrics.FrameInvalid)
		return
	}

	if !client.limiter.Allow() {
		client.logger.Debug("location update rate limited")
		metrics.RecordFrame(FrameLocationUpdate, metrics.FrameRateLimited)
		return
	}

	update := frame.ToDomain()
	client.setLastLocation(update, r.now())
	delivered := r.relay.RelayLocation(client.Info(), update)

	client.logger.Debug("location relayed", "delivered", delivered)
	metrics.RecordFrame(FrameLocationUpdate, metrics.FrameHandled)
}
