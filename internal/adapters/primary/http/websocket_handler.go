package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	mw "github.com/lorrc/fieldservice-realtime/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/fieldservice-realtime/internal/adapters/primary/websocket"
	"github.com/lorrc/fieldservice-realtime/internal/config"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
	"github.com/lorrc/fieldservice-realtime/internal/infrastructure/metrics"
)

// WebSocketHandler upgrades connections and walks them through
// authentication and authorization before registering them with the hub.
type WebSocketHandler struct {
	hub      *wsAdapter.Hub
	router   *wsAdapter.Router
	sessions ports.SessionResolver
	access   ports.AccessValidator
	opts     wsAdapter.Options
	upgrader websocket.Upgrader
	now      func() time.Time
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	router *wsAdapter.Router,
	sessions ports.SessionResolver,
	access ports.AccessValidator,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:      hub,
		router:   router,
		sessions: sessions,
		access:   access,
		opts:     wsAdapter.OptionsFromConfig(cfg.WebSocket),
		now:      time.Now,
		logger:   logger.With("handler", "websocket"),
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg *config.Config) func(r *http.Request) bool {
	allowedOrigins := cfg.WebSocket.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if cfg.IsDevelopment() {
			if origin != "" {
				h.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		// Check against allowed origins
		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		originHost := parsedOrigin.Host

		for _, allowed := range allowedOrigins {
			// Support wildcard subdomains like "*.example.com"
			if strings.HasPrefix(allowed, "*.") {
				suffix := allowed[1:] // Remove the "*", keep ".example.com"
				if strings.HasSuffix(originHost, suffix) || originHost == allowed[2:] {
					return true
				}
			} else if originHost == allowed {
				return true
			}
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// ServeHTTP handles WebSocket connection requests. The socket is upgraded
// first so that every rejection reaches the client as a close code.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(
		"request_id", GetRequestID(ctx),
		"remote_addr", r.RemoteAddr,
	)

	// 1. Upgrade the connection
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("failed to upgrade websocket connection", "error", err)
		return
	}

	// 2. Authenticate with the session cookie
	userID, err := h.sessions.Resolve(ctx, mw.CookieHeader(r))
	if err != nil {
		h.reject(conn, logger, wsAdapter.CloseAuthRequired, wsAdapter.ReasonAuthRequired, metrics.RejectAuthentication, err)
		return
	}
	logger = logger.With("user_id", userID)

	// 3. Parse the requested business scope
	query := r.URL.Query()
	businessID := strings.TrimSpace(query.Get("businessId"))
	if businessID == "" {
		h.reject(conn, logger, wsAdapter.CloseMissingBusinessID, wsAdapter.ReasonMissingBusinessID, metrics.RejectMissingBusiness, nil)
		return
	}
	logger = logger.With("business_id", businessID)

	// 4. Authorize
	if !h.access.HasAccess(ctx, userID, businessID) {
		h.reject(conn, logger, wsAdapter.CloseAccessDenied, wsAdapter.ReasonAccessDenied, metrics.RejectAccessDenied, nil)
		return
	}

	// 5. Register under a fresh connection id and acknowledge
	info := domain.ConnectionInfo{
		ID:          uuid.NewString(),
		UserID:      userID,
		BusinessID:  businessID,
		Role:        domain.RoleFromFlag(query.Get("isWorker")),
		ConnectedAt: h.now(),
	}
	client := wsAdapter.NewClient(h.hub, h.router, conn, info, h.opts, h.logger)

	connected := &domain.Connected{
		Envelope: domain.Envelope{Type: domain.EventConnected},
		UserID:   userID,
	}
	connected.SetTimestamp(info.ConnectedAt.UnixMilli())

	if err := h.hub.Register(client, connected); err != nil {
		h.reject(conn, logger, wsAdapter.CloseSetupError, wsAdapter.ReasonSetupError, metrics.RejectSetupError, err)
		return
	}

	logger.Info("websocket connection established",
		"connection_id", info.ID,
		"role", info.Role,
	)

	// 6. Start the I/O pumps in new goroutines
	if err := h.hub.Start(client); err != nil {
		logger.Info("hub shut down before connection started", "connection_id", info.ID)
		wsAdapter.Reject(conn, wsAdapter.CloseGoingAway, wsAdapter.ReasonShutdown, h.opts.WriteWait)
	}
}

func (h *WebSocketHandler) reject(conn *websocket.Conn, logger *slog.Logger, code int, reason, metric string, err error) {
	attrs := []any{"close_code", code, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.Warn("websocket connection rejected", attrs...)
	metrics.RecordRejection(metric)
	wsAdapter.Reject(conn, code, reason, h.opts.WriteWait)
}
