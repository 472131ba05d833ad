package services

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
)

// AccessService decides which business broadcast groups a user may join.
type AccessService struct {
	members ports.TeamMemberRepository
	logger  *slog.Logger
}

var _ ports.AccessValidator = (*AccessService)(nil)

// NewAccessService creates a new access validator.
func NewAccessService(members ports.TeamMemberRepository, logger *slog.Logger) *AccessService {
	return &AccessService{
		members: members,
		logger:  logger.With("component", "access_service"),
	}
}

// HasAccess reports whether userID owns businessID or is an accepted member
// of its team. Lookup failures deny access.
func (s *AccessService) HasAccess(ctx context.Context, userID, businessID string) bool {
	if userID == "" || businessID == "" {
		return false
	}

	// A business is identified by its owner's user id.
	if userID == businessID {
		return true
	}

	member, err := s.members.GetByUserAndBusiness(ctx, userID, businessID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrTeamMemberNotFound) {
			s.logger.WarnContext(ctx, "team member lookup failed, denying access",
				"user_id", userID,
				"business_id", businessID,
				"error", err,
			)
		}
		return false
	}

	return member.IsAccepted()
}
