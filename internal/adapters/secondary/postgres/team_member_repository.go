package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
)

type TeamMemberRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TeamMemberRepository = (*TeamMemberRepository)(nil)

func NewTeamMemberRepository(pool *pgxpool.Pool) *TeamMemberRepository {
	return &TeamMemberRepository{pool: pool}
}

// GetByUserAndBusiness returns the user's membership in the business. When a
// user was invited more than once, an accepted row wins over the newest.
func (r *TeamMemberRepository) GetByUserAndBusiness(ctx context.Context, userID, businessID string) (*domain.TeamMember, error) {
	const query = `
SELECT id, user_id, business_id, role, status
FROM team_members
WHERE user_id = $1 AND business_id = $2
ORDER BY (status = 'accepted') DESC, created_at DESC
LIMIT 1
`

	var (
		member domain.TeamMember
		status string
	)
	err := r.pool.QueryRow(ctx, query, userID, businessID).Scan(
		&member.ID,
		&member.UserID,
		&member.BusinessID,
		&member.Role,
		&status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTeamMemberNotFound
		}
		return nil, err
	}

	member.Status = domain.TeamMemberStatus(status)
	return &member, nil
}
