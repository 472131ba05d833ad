package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
)

// SessionStore reads sessions persisted by the HTTP layer in the session
// table. Rows are never written here.
type SessionStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool, now: time.Now}
}

// sessionData is the part of the serialized session this service reads.
// Login stores the user id either directly or under passport.
type sessionData struct {
	UserID   json.RawMessage `json:"userId"`
	Passport struct {
		User json.RawMessage `json:"user"`
	} `json:"passport"`
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	const query = `
SELECT sess, expire
FROM session
WHERE sid = $1
`

	var (
		raw    []byte
		expire time.Time
	)
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(&raw, &expire)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, err
	}

	session := &domain.Session{ID: sessionID, Expires: expire}
	if session.IsExpired(s.now()) {
		return nil, apperrors.ErrSessionExpired
	}

	var data sessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}

	session.UserID = userIDFromJSON(data.UserID)
	if session.UserID == "" {
		session.UserID = userIDFromJSON(data.Passport.User)
	}
	return session, nil
}

// userIDFromJSON accepts a string or numeric id.
func userIDFromJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return n.String()
		}
	}
	return ""
}
