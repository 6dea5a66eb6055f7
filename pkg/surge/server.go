package surge

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ServerState is the orchestrator's lifecycle state.
// Servers are single-use: once stopped they never restart.
type ServerState int32

const (
	// StateCreated is the initial state after construction
	StateCreated ServerState = iota

	// StateStarted indicates the transport is bound and the reaper armed
	StateStarted

	// StateStopping indicates shutdown is in progress
	StateStopping

	// StateStopped is terminal
	StateStopped
)

// String returns the string representation of the server state.
func (s ServerState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// frontendStopTimeout bounds how long shutdown waits for the transport.
const frontendStopTimeout = 5 * time.Second

// Server orchestrates the engine, the optional network front end, and the
// missing-content reaper through the Created → Started → Stopping → Stopped
// lifecycle.
type Server struct {
	config   Config
	engine   *Engine
	frontend Frontend
	logger   *zap.Logger

	state      atomic.Int32
	reaperStop chan struct{}
	reaperDone chan struct{}
}

// New constructs a server and its engine. Construction failures are fatal:
// the server does not partially start and is not retried internally.
func New(config Config) (*Server, error) {
	config = config.withDefaults()

	engine, err := NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("surge: failed to start server because: %w", err)
	}

	return &Server{
		config: config,
		engine: engine,
		logger: config.Logger.Named("surge.server"),
	}, nil
}

// Engine returns the server's engine, which implements ChannelConsumer for
// transport front ends and for tests driving the pipeline directly.
func (s *Server) Engine() *Engine {
	return s.engine
}

// State returns the current lifecycle state.
func (s *Server) State() ServerState {
	return ServerState(s.state.Load())
}

// AttachFrontend attaches a network front end. Only legal before StartUp.
func (s *Server) AttachFrontend(frontend Frontend) error {
	if s.State() != StateCreated {
		return ErrFrontendAttached
	}
	s.frontend = frontend
	return nil
}

// StartUp transitions Created → Started: it binds the attached front end (if
// any) and arms the reaper when a positive abandonment timeout is
// configured. A bind failure is fatal and leaves the server stopped.
func (s *Server) StartUp() error {
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateStarted)) {
		return ErrServerNotStartable
	}

	start := time.Now()

	if s.frontend != nil {
		if err := s.frontend.Start(); err != nil {
			s.state.Store(int32(StateStopped))
			return fmt.Errorf("surge: failed to start server because: %w", err)
		}
	}

	if s.config.MissingContentTimeout > 0 {
		s.reaperStop = make(chan struct{})
		s.reaperDone = make(chan struct{})
		go s.runReaper(s.config.ProbeInterval)
	}

	s.logger.Info("server started",
		zap.Int("port", s.config.Port),
		zap.Int("dispatcherPoolSize", s.config.DispatcherPoolSize),
		zap.Duration("startup", time.Since(start)))
	return nil
}

// ShutDown transitions Started → Stopping → Stopped: stop the reaper, run
// one final sweep to flush pending entries, stop the transport, then the
// dispatcher pool and filter chain. Stopping an already stopped server is a
// no-op.
func (s *Server) ShutDown() error {
	switch {
	case s.state.CompareAndSwap(int32(StateStarted), int32(StateStopping)):
	case s.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)):
		// Never started; nothing to unwind.
		return nil
	default:
		return nil
	}

	s.logger.Info("server stopping")

	if s.reaperStop != nil {
		close(s.reaperStop)
		<-s.reaperDone
	}

	s.engine.FailTimedOutMissingContentRequests()

	if s.frontend != nil {
		ctx, cancel := context.WithTimeout(context.Background(), frontendStopTimeout)
		if err := s.frontend.Stop(ctx); err != nil {
			s.logger.Error("frontend stop failed", zap.Error(err))
		}
		cancel()
	}

	s.engine.Stop()

	s.state.Store(int32(StateStopped))
	s.logger.Info("server stopped")
	return nil
}

// runReaper drives the periodic sweep: fixed first delay, then fixed period.
func (s *Server) runReaper(interval time.Duration) {
	defer close(s.reaperDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.engine.FailTimedOutMissingContentRequests()
		case <-s.reaperStop:
			return
		}
	}
}
