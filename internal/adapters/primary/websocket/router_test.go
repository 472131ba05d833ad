package websocket

import (
	"sync"
	"testing"

	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayCall struct {
	sender domain.ConnectionInfo
	update domain.LocationUpdate
}

type recordingRelay struct {
	mu    sync.Mutex
	calls []relayCall
}

func (r *recordingRelay) RelayLocation(sender domain.ConnectionInfo, update domain.LocationUpdate) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, relayCall{sender: sender, update: update})
	return 1
}

func (r *recordingRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newRoutedClient(t *testing.T, opts Options) (*Hub, *Router, *recordingRelay, *Client) {
	t.Helper()
	hub := NewHub(testLogger())
	relay := &recordingRelay{}
	router := NewRouter(hub, relay, testLogger())
	c := NewClient(hub, router, nil, domain.ConnectionInfo{ID: "c1", UserID: "worker", BusinessID: "b1", Role: domain.RoleWorker}, opts, testLogger())
	require.NoError(t, hub.Register(c, nil))
	return hub, router, relay, c
}

func TestRouter_PingGetsPong(t *testing.T) {
	_, router, relay, c := newRoutedClient(t, testOptions())

	router.Route(c, []byte(`{"type":"ping"}`))

	frames := drain(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, "pong", frames[0]["type"])
	assert.NotZero(t, frames[0]["timestamp"])
	assert.Zero(t, relay.count())
}

func TestRouter_IgnoresUnknownAndMalformedFrames(t *testing.T) {
	_, router, relay, c := newRoutedClient(t, testOptions())

	for _, raw := range []string{
		`{"type":"subscribe","channel":"all"}`,
		`{"type":`,
		`not json`,
		`{}`,
	} {
		router.Route(c, []byte(raw))
	}

	assert.Empty(t, drain(t, c))
	assert.Zero(t, relay.count())
	assert.False(t, c.Closed())
}

func TestRouter_RelaysValidLocation(t *testing.T) {
	_, router, relay, c := newRoutedClient(t, testOptions())

	router.Route(c, []byte(`{"type":"location_update","latitude":51.5,"longitude":-0.12,"heading":90,"batteryLevel":77,"isCharging":false,"activityStatus":"working"}`))

	require.Equal(t, 1, relay.count())
	call := relay.calls[0]
	assert.Equal(t, "worker", call.sender.UserID)
	assert.Equal(t, "b1", call.sender.BusinessID)
	assert.Equal(t, 51.5, call.update.Latitude)
	require.NotNil(t, call.update.Heading)
	assert.Equal(t, 90.0, *call.update.Heading)
	require.NotNil(t, call.update.ActivityStatus)
	assert.Equal(t, domain.ActivityWorking, *call.update.ActivityStatus)
	assert.Nil(t, call.update.Speed)

	last := c.LastLocation()
	require.NotNil(t, last)
	assert.Equal(t, -0.12, last.Longitude)
	assert.False(t, last.ReportedAt.IsZero())
}

func TestRouter_DropsInvalidLocation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing latitude", `{"type":"location_update","longitude":10}`},
		{"latitude out of range", `{"type":"location_update","latitude":91,"longitude":10}`},
		{"longitude out of range", `{"type":"location_update","latitude":10,"longitude":-181}`},
		{"unknown activity", `{"type":"location_update","latitude":10,"longitude":10,"activityStatus":"flying"}`},
		{"wrong type", `{"type":"location_update","latitude":"north","longitude":10}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router, relay, c := newRoutedClient(t, testOptions())
			router.Route(c, []byte(tt.raw))
			assert.Zero(t, relay.count())
			assert.Nil(t, c.LastLocation())
			assert.False(t, c.Closed())
		})
	}
}

func TestRouter_RelaysLocationWithUnknownReadings(t *testing.T) {
	_, router, relay, c := newRoutedClient(t, testOptions())

	router.Route(c, []byte(`{"type":"location_update","latitude":40.7,"longitude":-74.0,"speed":-1,"heading":-1,"batteryLevel":101}`))

	require.Equal(t, 1, relay.count())
	update := relay.calls[0].update
	assert.Equal(t, 40.7, update.Latitude)
	assert.Nil(t, update.Speed)
	assert.Nil(t, update.Heading)
	assert.Nil(t, update.BatteryLevel)
	assert.NotNil(t, c.LastLocation())
}

func TestRouter_KeepsReadingsAtRangeBounds(t *testing.T) {
	_, router, relay, c := newRoutedClient(t, testOptions())

	router.Route(c, []byte(`{"type":"location_update","latitude":1,"longitude":1,"speed":0,"heading":360,"batteryLevel":0}`))

	require.Equal(t, 1, relay.count())
	update := relay.calls[0].update
	require.NotNil(t, update.Speed)
	assert.Zero(t, *update.Speed)
	require.NotNil(t, update.Heading)
	assert.Equal(t, 360.0, *update.Heading)
	require.NotNil(t, update.BatteryLevel)
	assert.Zero(t, *update.BatteryLevel)
}

func TestRouter_InvalidFramesDoNotSpendRateBudget(t *testing.T) {
	opts := testOptions()
	opts.LocationRPS = 0.001
	opts.LocationBurst = 1
	_, router, relay, c := newRoutedClient(t, opts)

	router.Route(c, []byte(`{"type":"location_update","latitude":"north","longitude":1}`))
	router.Route(c, []byte(`{"type":"location_update","latitude":95,"longitude":1}`))
	router.Route(c, []byte(`{"type":"location_update","latitude":1,"longitude":1}`))

	assert.Equal(t, 1, relay.count())
}

func TestRouter_RateLimitsLocation(t *testing.T) {
	opts := testOptions()
	opts.LocationRPS = 0.001
	opts.LocationBurst = 2
	_, router, relay, c := newRoutedClient(t, opts)

	for range 5 {
		router.Route(c, []byte(`{"type":"location_update","latitude":1,"longitude":1}`))
	}

	assert.Equal(t, 2, relay.count())
}

func TestRouter_DropsLocationAfterRemoval(t *testing.T) {
	hub, router, relay, c := newRoutedClient(t, testOptions())
	require.True(t, hub.Remove(c.ID()))

	router.Route(c, []byte(`{"type":"location_update","latitude":1,"longitude":1}`))

	assert.Zero(t, relay.count())
}
