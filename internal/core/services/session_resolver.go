package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
)

// SessionResolverService resolves the HTTP layer's session cookie to a user id.
type SessionResolverService struct {
	decoder    ports.SessionCookieDecoder
	store      ports.SessionStore
	cookieName string
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

var _ ports.SessionResolver = (*SessionResolverService)(nil)

// NewSessionResolver creates a resolver. A zero timeout means lookups are
// bounded only by the caller's context.
func NewSessionResolver(
	decoder ports.SessionCookieDecoder,
	store ports.SessionStore,
	cookieName string,
	timeout time.Duration,
	logger *slog.Logger,
) *SessionResolverService {
	return &SessionResolverService{
		decoder:    decoder,
		store:      store,
		cookieName: cookieName,
		timeout:    timeout,
		now:        time.Now,
		logger:     logger.With("component", "session_resolver"),
	}
}

// Resolve returns the user id for the session named by the cookie header.
// Every failure wraps apperrors.ErrUnauthenticated; there are no retries.
func (s *SessionResolverService) Resolve(ctx context.Context, cookieHeader string) (string, error) {
	sessionID, err := s.decoder.SessionIDFromHeader(cookieHeader, s.cookieName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.logger.DebugContext(ctx, "session lookup failed", "error", err)
		return "", fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, err)
	}

	if session.IsExpired(s.now()) {
		return "", fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, apperrors.ErrSessionExpired)
	}

	if session.UserID == "" {
		return "", fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, apperrors.ErrSessionNoUser)
	}

	return session.UserID, nil
}
