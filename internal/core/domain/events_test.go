package domain

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawEvent(t *testing.T) {
	e := RawEvent{"type": "quote_viewed", "quoteId": "q1"}
	assert.Equal(t, EventType("quote_viewed"), e.EventType())

	e.SetTimestamp(1700000000000)
	assert.Equal(t, int64(1700000000000), e["timestamp"])

	assert.Empty(t, RawEvent{"type": 7}.EventType())
	assert.Empty(t, RawEvent{}.EventType())
}

func TestTeamLocationUpdate_OmitsAbsentFields(t *testing.T) {
	battery := 64.0
	update := NewTeamLocationUpdate("u1", LocationUpdate{Latitude: 10.5, Longitude: 20.25, BatteryLevel: &battery})
	update.SetTimestamp(42)

	data, err := json.Marshal(update)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "team_location_update",
		"timestamp": 42,
		"userId": "u1",
		"latitude": 10.5,
		"longitude": 20.25,
		"batteryLevel": 64
	}`, string(data))
}

func TestSession_IsExpired(t *testing.T) {
	now := mustTime(t, "2026-05-01T12:00:00Z")

	assert.False(t, (&Session{}).IsExpired(now))
	assert.False(t, (&Session{Expires: now.Add(1)}).IsExpired(now))
	assert.True(t, (&Session{Expires: now.Add(-1)}).IsExpired(now))
}

func TestTeamMember_IsAccepted(t *testing.T) {
	var missing *TeamMember
	assert.False(t, missing.IsAccepted())
	assert.False(t, (&TeamMember{Status: TeamMemberInvited}).IsAccepted())
	assert.True(t, (&TeamMember{Status: TeamMemberAccepted}).IsAccepted())
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ana Lima", (&User{FirstName: "Ana", LastName: "Lima"}).DisplayName())
	assert.Equal(t, "Acme", (&User{BusinessName: "Acme", Email: "a@acme.test"}).DisplayName())
	assert.Equal(t, "a@acme.test", (&User{Email: "a@acme.test"}).DisplayName())
}
