package surge

import (
	"time"

	"go.uber.org/zap"
)

// Config holds the engine and server configuration. All values are fixed for
// the lifetime of the server; zero values take the defaults below.
type Config struct {
	// Port is the TCP port a constructed front end should listen on.
	// Ignored when a Frontend is attached explicitly.
	// Default: 8080
	Port int

	// DispatcherPoolSize is the fixed number of dispatch workers.
	// The pool never resizes.
	// Default: 10
	DispatcherPoolSize int

	// MaxBufferPoolSize is the number of pre-allocated response buffers.
	// Exhaustion degrades to one-off allocation, never blocking.
	// Default: 100
	MaxBufferPoolSize int

	// MaxMessageSize is the capacity of each pooled response buffer.
	// Larger responses fall back to a one-off allocation sized to fit.
	// Default: 65535
	MaxMessageSize int

	// MissingContentTimeout is the abandonment window for connections whose
	// request body never finishes arriving. Zero disables the reaper.
	// Default: 0 (disabled)
	MissingContentTimeout time.Duration

	// ProbeInterval is the reaper's fixed first delay and period.
	// Default: MissingContentTimeout (matching sweep and window)
	ProbeInterval time.Duration

	// Handler is the application handler table. Required.
	Handler Handler

	// Filters is the request/response filter chain.
	// Default: an empty pass-through chain
	Filters *Filters

	// InlineDispatch selects the agent-backed dispatcher pool, running
	// handlers inline on the delivering goroutine instead of dedicated
	// worker goroutines.
	// Default: false (channel-backed workers)
	InlineDispatch bool

	// Logger receives engine and server logging.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

// DefaultConfig returns the default configuration. The Handler still has to
// be supplied.
func DefaultConfig() Config {
	return Config{
		Port:               8080,
		DispatcherPoolSize: 10,
		MaxBufferPoolSize:  100,
		MaxMessageSize:     65535,
	}
}

// withDefaults fills zero values with their defaults.
func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.DispatcherPoolSize == 0 {
		c.DispatcherPoolSize = 10
	}
	if c.MaxBufferPoolSize == 0 {
		c.MaxBufferPoolSize = 100
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 65535
	}
	if c.ProbeInterval == 0 {
		c.ProbeInterval = c.MissingContentTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
