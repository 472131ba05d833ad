package websocket

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
	"github.com/lorrc/fieldservice-realtime/internal/infrastructure/metrics"
)

// ErrHubClosed is returned when registering after Shutdown.
var ErrHubClosed = errors.New("hub is shut down")

// Hub is the registry of live connections keyed by connection id. It is the
// only shared mutable state of the realtime subsystem.
type Hub struct {
	// clients maps connection IDs to their client
	clients map[string]*Client

	// closed is set by Shutdown; no registrations are accepted after it
	closed bool

	// mu protects clients and closed. It is never held while writing to a
	// socket.
	mu sync.RWMutex

	// pumps tracks running read/write pumps
	pumps sync.WaitGroup

	logger *slog.Logger
}

var (
	_ ports.EventBroadcaster = (*Hub)(nil)
	_ ports.PresenceReader   = (*Hub)(nil)
)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger.With("component", "websocket_hub"),
	}
}

// Register adds a client and queues first as its first frame. The frame is
// queued under the registry lock so no broadcast can overtake it.
func (h *Hub) Register(client *Client, first domain.OutboundEvent) error {
	var msg []byte
	if first != nil {
		var err error
		if msg, err = json.Marshal(first); err != nil {
			return err
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	if _, exists := h.clients[client.ID()]; exists {
		h.mu.Unlock()
		return apperrors.ErrDuplicateConnection
	}
	h.clients[client.ID()] = client
	if msg != nil {
		// The buffer is empty, so this cannot fail on a fresh client.
		_ = client.trySend(msg)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	metrics.WSConnectionsTotal.Inc()
	if first != nil {
		metrics.WSMessagesSent.WithLabelValues(string(first.EventType())).Inc()
	}

	h.logger.Info("client registered",
		"connection_id", client.ID(),
		"user_id", client.info.UserID,
		"business_id", client.info.BusinessID,
		"role", client.info.Role,
		"total_connections", total,
	)
	return nil
}

// Start runs the client's pumps. The hub tracks them so Shutdown can wait.
// Once Shutdown has begun no pumps are started and ErrHubClosed is returned;
// the caller still owns the connection.
func (h *Hub) Start(client *Client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	// Added under mu so every Add happens before Shutdown's Wait.
	h.pumps.Add(2)
	h.mu.Unlock()

	go func() {
		defer h.pumps.Done()
		client.WritePump()
	}()
	go func() {
		defer h.pumps.Done()
		client.ReadPump()
	}()
	return nil
}

// Remove deletes a connection from the registry and closes it. It reports
// whether the connection was present; removing twice is a no-op.
func (h *Hub) Remove(connectionID string) bool {
	h.mu.Lock()
	client, ok := h.clients[connectionID]
	if ok {
		delete(h.clients, connectionID)
	}
	h.mu.Unlock()

	if !ok {
		return false
	}

	client.Close(CloseNormalClosure, "")
	metrics.WSConnections.Dec()

	h.logger.Info("client unregistered",
		"connection_id", connectionID,
		"user_id", client.info.UserID,
		"business_id", client.info.BusinessID,
	)
	return true
}

// Lookup returns the registered client for a connection id.
func (h *Hub) Lookup(connectionID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connectionID]
	return client, ok
}

// Broadcast serializes the event once and queues it on every connection
// matching the audience. It never blocks: a connection whose buffer is full
// is evicted and the fan-out continues.
func (h *Hub) Broadcast(audience domain.Audience, event domain.OutboundEvent) int {
	if audience.IsEmpty() {
		return 0
	}

	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event",
			"event_type", event.EventType(),
			"error", err,
		)
		return 0
	}

	targets := h.snapshot(func(c *Client) bool {
		return audience.Matches(c.info)
	})

	delivered := 0
	for _, client := range targets {
		if h.deliver(client, msg) {
			delivered++
		}
	}

	metrics.RecordBroadcast(string(event.EventType()), delivered)
	h.logger.Debug("broadcasting event",
		"event_type", event.EventType(),
		"business_id", audience.BusinessID,
		"client_count", delivered,
	)
	return delivered
}

// SendTo queues an event for a single connection.
func (h *Hub) SendTo(client *Client, event domain.OutboundEvent) bool {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", "event_type", event.EventType(), "error", err)
		return false
	}
	if !h.deliver(client, msg) {
		return false
	}
	metrics.WSMessagesSent.WithLabelValues(string(event.EventType())).Inc()
	return true
}

// Presence lists the live connections of a business, oldest first.
func (h *Hub) Presence(businessID string) []domain.PresenceEntry {
	clients := h.snapshot(func(c *Client) bool {
		return c.info.BusinessID == businessID
	})

	entries := make([]domain.PresenceEntry, 0, len(clients))
	for _, c := range clients {
		entries = append(entries, domain.PresenceEntry{
			ConnectionID: c.info.ID,
			UserID:       c.info.UserID,
			Role:         c.info.Role,
			ConnectedAt:  c.info.ConnectedAt,
			LastLocation: c.LastLocation(),
		})
	}
	slices.SortFunc(entries, func(a, b domain.PresenceEntry) int {
		return a.ConnectedAt.Compare(b.ConnectedAt)
	})
	return entries
}

// ConnectedUsers reports which of the given users hold at least one live
// connection.
func (h *Hub) ConnectedUsers(userIDs []string) map[string]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	connected := make(map[string]bool, len(userIDs))
	for _, c := range h.clients {
		if slices.Contains(userIDs, c.info.UserID) {
			connected[c.info.UserID] = true
		}
	}
	return connected
}

// GetClientCount returns the total number of registered connections
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection with CloseGoingAway, refuses new
// registrations and waits for the pumps to exit or ctx to end.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	clear(h.clients)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close(CloseGoingAway, ReasonShutdown)
	}
	metrics.WSConnections.Sub(float64(len(clients)))
	h.logger.Info("hub shutting down", "closed_connections", len(clients))

	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver queues msg on one client, evicting it if its buffer is full.
func (h *Hub) deliver(client *Client, msg []byte) bool {
	err := client.trySend(msg)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errSendBufferFull):
		h.evict(client)
	}
	return false
}

func (h *Hub) evict(client *Client) {
	h.logger.Warn("client send buffer full, evicting",
		"connection_id", client.ID(),
		"user_id", client.info.UserID,
		"business_id", client.info.BusinessID,
	)
	client.Close(CloseSendOverflow, ReasonSendOverflow)
	if h.Remove(client.ID()) {
		metrics.WSEvictions.Inc()
	}
}

// snapshot copies the matching clients so no lock is held while sending.
func (h *Hub) snapshot(match func(*Client) bool) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		if match(c) {
			clients = append(clients, c)
		}
	}
	return clients
}
