package ports

import (
	"context"

	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
)

// UserRepository reads users owned by the main backend.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// TeamMemberRepository reads team memberships linking users to businesses.
type TeamMemberRepository interface {
	// GetByUserAndBusiness returns apperrors.ErrTeamMemberNotFound when the
	// user has no membership in the business.
	GetByUserAndBusiness(ctx context.Context, userID, businessID string) (*domain.TeamMember, error)
}

// SessionStore reads sessions written by the HTTP layer.
type SessionStore interface {
	// Get returns apperrors.ErrSessionNotFound or apperrors.ErrSessionExpired
	// when the session cannot be used.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
