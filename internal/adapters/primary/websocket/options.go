package websocket

import (
	"time"

	"github.com/lorrc/fieldservice-realtime/internal/config"
)

// Options tunes per-connection behavior.
type Options struct {
	// Time allowed to write a message to the peer.
	WriteWait time.Duration
	// Time allowed to read the next frame or pong from the peer.
	PongWait time.Duration
	// Send pings to peer with this period. Must be less than PongWait.
	PingInterval time.Duration
	// Maximum message size allowed from peer.
	MaxMessageSize int64
	// Outbound frames buffered per connection before it is evicted.
	SendBufferSize int
	// Sustained location_update frames per second accepted per connection.
	LocationRPS   float64
	LocationBurst int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   54 * time.Second,
		MaxMessageSize: 4096,
		SendBufferSize: 256,
		LocationRPS:    2,
		LocationBurst:  5,
	}
}

// OptionsFromConfig builds Options from the websocket configuration.
func OptionsFromConfig(cfg config.WebSocketConfig) Options {
	return Options{
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
		PingInterval:   cfg.PingInterval,
		MaxMessageSize: cfg.MaxMessageSize,
		SendBufferSize: cfg.SendBufferSize,
		LocationRPS:    cfg.LocationRPS,
		LocationBurst:  cfg.LocationBurst,
	}
}
