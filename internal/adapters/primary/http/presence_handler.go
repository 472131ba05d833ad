package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/fieldservice-realtime/internal/adapters/primary/http/middleware"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
)

// LocationDTO is a last known position in presence responses.
type LocationDTO struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Speed          *float64 `json:"speed,omitempty"`
	Heading        *float64 `json:"heading,omitempty"`
	BatteryLevel   *float64 `json:"batteryLevel,omitempty"`
	IsCharging     *bool    `json:"isCharging,omitempty"`
	ActivityStatus string   `json:"activityStatus,omitempty"`
	ReportedAt     string   `json:"reportedAt"`
}

// PresenceEntryDTO is one live connection in presence responses.
type PresenceEntryDTO struct {
	ConnectionID string       `json:"connectionId"`
	UserID       string       `json:"userId"`
	Role         string       `json:"role"`
	ConnectedAt  string       `json:"connectedAt"`
	LastLocation *LocationDTO `json:"lastLocation,omitempty"`
}

func toPresenceEntryDTO(e domain.PresenceEntry) PresenceEntryDTO {
	dto := PresenceEntryDTO{
		ConnectionID: e.ConnectionID,
		UserID:       e.UserID,
		Role:         string(e.Role),
		ConnectedAt:  e.ConnectedAt.UTC().Format(time.RFC3339),
	}
	if loc := e.LastLocation; loc != nil {
		dto.LastLocation = &LocationDTO{
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			Speed:        loc.Speed,
			Heading:      loc.Heading,
			BatteryLevel: loc.BatteryLevel,
			IsCharging:   loc.IsCharging,
			ReportedAt:   loc.ReportedAt.UTC().Format(time.RFC3339),
		}
		if loc.ActivityStatus != nil {
			dto.LastLocation.ActivityStatus = string(*loc.ActivityStatus)
		}
	}
	return dto
}

// PresenceHandler serves the live connection list of a business.
type PresenceHandler struct {
	presence     ports.PresenceReader
	access       ports.AccessValidator
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewPresenceHandler creates a new PresenceHandler.
func NewPresenceHandler(
	presence ports.PresenceReader,
	access ports.AccessValidator,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *PresenceHandler {
	return &PresenceHandler{
		presence:     presence,
		access:       access,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "presence"),
	}
}

// RegisterRoutes registers the presence routes. They must be mounted behind
// SessionAuth.
func (h *PresenceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/businesses/{businessId}/presence", h.HandleGetPresence)
}

// HandleGetPresence handles GET /businesses/{businessId}/presence.
func (h *PresenceHandler) HandleGetPresence(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.GetSessionUserID(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthenticated)
		return
	}

	businessID := strings.TrimSpace(chi.URLParam(r, "businessId"))
	if businessID == "" {
		h.errorHandler.Handle(w, r, apperrors.ErrBusinessIDRequired)
		return
	}

	if !h.access.HasAccess(r.Context(), userID, businessID) {
		h.errorHandler.Handle(w, r, apperrors.ErrAccessDenied)
		return
	}

	entries := h.presence.Presence(businessID)
	dtos := make([]PresenceEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toPresenceEntryDTO(e))
	}

	WriteList(w, dtos)
}
