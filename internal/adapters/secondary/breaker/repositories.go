package breaker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lorrc/fieldservice-realtime/internal/config"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
	gobreaker "github.com/sony/gobreaker/v2"
)

// SessionStore wraps a ports.SessionStore with a circuit breaker.
type SessionStore struct {
	next ports.SessionStore
	cb   *gobreaker.CircuitBreaker[*domain.Session]
}

var _ ports.SessionStore = (*SessionStore)(nil)

func NewSessionStore(next ports.SessionStore, cfg config.BreakerConfig, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		next: next,
		cb: newBreaker[*domain.Session](NameSessions, cfg, func(err error) bool {
			return errors.Is(err, apperrors.ErrSessionNotFound) || errors.Is(err, apperrors.ErrSessionExpired)
		}, logger),
	}
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	return execute(s.cb, func() (*domain.Session, error) {
		return s.next.Get(ctx, sessionID)
	})
}

// State returns the breaker's current state.
func (s *SessionStore) State() gobreaker.State {
	return s.cb.State()
}

// TeamMemberRepository wraps a ports.TeamMemberRepository with a circuit
// breaker. An open breaker surfaces as an error, which denies access.
type TeamMemberRepository struct {
	next ports.TeamMemberRepository
	cb   *gobreaker.CircuitBreaker[*domain.TeamMember]
}

var _ ports.TeamMemberRepository = (*TeamMemberRepository)(nil)

func NewTeamMemberRepository(next ports.TeamMemberRepository, cfg config.BreakerConfig, logger *slog.Logger) *TeamMemberRepository {
	return &TeamMemberRepository{
		next: next,
		cb: newBreaker[*domain.TeamMember](NameTeamMembers, cfg, func(err error) bool {
			return errors.Is(err, apperrors.ErrTeamMemberNotFound)
		}, logger),
	}
}

func (r *TeamMemberRepository) GetByUserAndBusiness(ctx context.Context, userID, businessID string) (*domain.TeamMember, error) {
	return execute(r.cb, func() (*domain.TeamMember, error) {
		return r.next.GetByUserAndBusiness(ctx, userID, businessID)
	})
}

// State returns the breaker's current state.
func (r *TeamMemberRepository) State() gobreaker.State {
	return r.cb.State()
}

// UserRepository wraps a ports.UserRepository with a circuit breaker.
type UserRepository struct {
	next ports.UserRepository
	cb   *gobreaker.CircuitBreaker[*domain.User]
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(next ports.UserRepository, cfg config.BreakerConfig, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		next: next,
		cb: newBreaker[*domain.User](NameUsers, cfg, func(err error) bool {
			return errors.Is(err, apperrors.ErrUserNotFound)
		}, logger),
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return execute(r.cb, func() (*domain.User, error) {
		return r.next.GetByID(ctx, id)
	})
}
