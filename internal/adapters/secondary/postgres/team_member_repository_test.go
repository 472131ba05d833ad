package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertTeamMember(t *testing.T, businessID, userID string, status domain.TeamMemberStatus) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO team_members (business_id, user_id, status) VALUES ($1, $2, $3)`,
		businessID, userID, string(status),
	)
	require.NoError(t, err, "Failed to insert team member")
}

func TestTeamMemberRepository_GetByUserAndBusiness(t *testing.T) {
	ctx := context.Background()
	repo := NewTeamMemberRepository(testPool)

	owner := insertUser(t, "owner."+uuid.NewString()+"@example.com", "", "Acme Plumbing")
	tech := insertUser(t, "tech."+uuid.NewString()+"@example.com", "Tomas", "")
	insertTeamMember(t, owner, tech, domain.TeamMemberAccepted)

	member, err := repo.GetByUserAndBusiness(ctx, tech, owner)
	require.NoError(t, err)
	assert.Equal(t, tech, member.UserID)
	assert.Equal(t, owner, member.BusinessID)
	assert.Equal(t, "technician", member.Role)
	assert.True(t, member.IsAccepted())
}

func TestTeamMemberRepository_PrefersAcceptedRow(t *testing.T) {
	ctx := context.Background()
	repo := NewTeamMemberRepository(testPool)

	owner := insertUser(t, "owner."+uuid.NewString()+"@example.com", "", "Acme HVAC")
	tech := insertUser(t, "tech."+uuid.NewString()+"@example.com", "Rui", "")
	insertTeamMember(t, owner, tech, domain.TeamMemberAccepted)
	insertTeamMember(t, owner, tech, domain.TeamMemberInvited)

	member, err := repo.GetByUserAndBusiness(ctx, tech, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.TeamMemberAccepted, member.Status)
}

func TestTeamMemberRepository_PendingInvite(t *testing.T) {
	ctx := context.Background()
	repo := NewTeamMemberRepository(testPool)

	owner := insertUser(t, "owner."+uuid.NewString()+"@example.com", "", "Acme Electric")
	tech := insertUser(t, "tech."+uuid.NewString()+"@example.com", "Ines", "")
	insertTeamMember(t, owner, tech, domain.TeamMemberInvited)

	member, err := repo.GetByUserAndBusiness(ctx, tech, owner)
	require.NoError(t, err)
	assert.False(t, member.IsAccepted())
}

func TestTeamMemberRepository_NotFound(t *testing.T) {
	repo := NewTeamMemberRepository(testPool)

	owner := insertUser(t, "owner."+uuid.NewString()+"@example.com", "", "Acme Roofing")
	stranger := insertUser(t, "stranger."+uuid.NewString()+"@example.com", "Sam", "")

	member, err := repo.GetByUserAndBusiness(context.Background(), stranger, owner)
	assert.Nil(t, member)
	assert.ErrorIs(t, err, apperrors.ErrTeamMemberNotFound)
}
