// Package agent provides the gnet-backed network front end for the surge
// engine: an event-loop transport that owns the listening socket, delivers
// inbound bytes to the engine's channel consumer, and writes serialized
// responses back with optional close-after-write.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/gnet/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/watt-toolkit/surge/pkg/surge"
)

// ErrNoConsumer indicates construction without a channel consumer.
var ErrNoConsumer = errors.New("agent: channel consumer is required")

// bootTimeout bounds how long Start waits for the event engine to come up.
const bootTimeout = 5 * time.Second

// Config holds the front end's configuration.
type Config struct {
	// Port is the TCP port to listen on.
	// Default: 8080
	Port int

	// Multicore runs one event loop per core.
	// Default: false
	Multicore bool

	// NumEventLoop overrides the event loop count when positive.
	NumEventLoop int

	// ReusePort enables SO_REUSEPORT.
	// Default: false
	ReusePort bool

	// ReadBufferPoolSize is the number of pre-allocated inbound buffers.
	// Default: 100
	ReadBufferPoolSize int

	// ReadBufferSize is the capacity of each inbound buffer.
	// Default: 65535
	ReadBufferSize int

	// Logger receives front-end logging.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadBufferPoolSize == 0 {
		c.ReadBufferPoolSize = 100
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = 65535
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Agent is the gnet event handler implementing surge.Frontend. One agent
// serves one listening address for the lifetime of its server.
type Agent struct {
	gnet.BuiltinEventEngine

	consumer    surge.ChannelConsumer
	config      Config
	logger      *zap.Logger
	inboundPool *surge.ConsumerBufferPool

	eng     gnet.Engine
	conns   *xsync.MapOf[string, *channelContext]
	booted  chan struct{}
	runErr  chan error
	stopped atomic.Bool
}

// New creates an agent that delivers inbound events to the given consumer.
func New(config Config, consumer surge.ChannelConsumer) (*Agent, error) {
	if consumer == nil {
		return nil, ErrNoConsumer
	}
	config = config.withDefaults()
	return &Agent{
		consumer:    consumer,
		config:      config,
		logger:      config.Logger.Named("surge.agent"),
		inboundPool: surge.NewConsumerBufferPool(config.ReadBufferPoolSize, config.ReadBufferSize),
		conns:       xsync.NewMapOf[string, *channelContext](),
		booted:      make(chan struct{}),
		runErr:      make(chan error, 1),
	}, nil
}

// InboundBufferPool returns the pool backing inbound reads, mainly so callers
// can register its metrics collector.
func (a *Agent) InboundBufferPool() *surge.ConsumerBufferPool {
	return a.inboundPool
}

// Start binds the listening transport and returns once the event engine is
// accepting connections. A bind failure surfaces here.
func (a *Agent) Start() error {
	options := []gnet.Option{
		gnet.WithMulticore(a.config.Multicore),
		gnet.WithReusePort(a.config.ReusePort),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
	}
	if a.config.NumEventLoop > 0 {
		options = append(options, gnet.WithNumEventLoop(a.config.NumEventLoop))
	}

	addr := fmt.Sprintf("tcp://:%d", a.config.Port)
	go func() {
		a.runErr <- gnet.Run(a, addr, options...)
	}()

	select {
	case <-a.booted:
		return nil
	case err := <-a.runErr:
		if err == nil {
			err = errors.New("agent: event engine exited during start-up")
		}
		return err
	case <-time.After(bootTimeout):
		return errors.New("agent: timed out waiting for event engine to start")
	}
}

// Stop closes every connection and shuts the event engine down.
func (a *Agent) Stop(ctx context.Context) error {
	if !a.stopped.CompareAndSwap(false, true) {
		return nil
	}

	a.conns.Range(func(_ string, cc *channelContext) bool {
		cc.Close()
		return true
	})

	return a.eng.Stop(ctx)
}

// OnBoot is called when the event engine is ready to accept connections.
func (a *Agent) OnBoot(eng gnet.Engine) gnet.Action {
	a.eng = eng
	a.logger.Info("listening", zap.Int("port", a.config.Port))
	close(a.booted)
	return gnet.None
}

// OnOpen attaches a channel context to the new connection.
func (a *Agent) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	cc := &channelContext{
		id:     uuid.NewString(),
		conn:   c,
		logger: a.logger,
	}
	c.SetContext(cc)
	a.conns.Store(cc.id, cc)
	return nil, gnet.None
}

// OnClose hands the closing connection to the consumer so its parser session
// and any pending missing-content entry are discarded.
func (a *Agent) OnClose(c gnet.Conn, err error) gnet.Action {
	cc, ok := c.Context().(*channelContext)
	if !ok {
		return gnet.None
	}
	a.conns.Delete(cc.id)
	a.consumer.CloseWith(cc, nil)
	if err != nil {
		a.logger.Debug("connection closed",
			zap.String("connection", cc.id),
			zap.Error(err))
	}
	return gnet.None
}

// OnTraffic leases an inbound buffer, copies the read into it, and delivers
// it to the consumer. The consumer releases the lease.
func (a *Agent) OnTraffic(c gnet.Conn) gnet.Action {
	cc, ok := c.Context().(*channelContext)
	if !ok {
		return gnet.Close
	}

	data, err := c.Next(-1)
	if err != nil {
		a.logger.Error("read failed",
			zap.String("connection", cc.id),
			zap.Error(err))
		return gnet.Close
	}

	buffer := a.inboundPool.Acquire("Agent#OnTraffic")
	_, _ = buffer.Write(data)
	a.consumer.Consume(cc, buffer)
	return gnet.None
}

// channelContext adapts one gnet connection to surge.RequestResponseContext.
// Consumer-data access is serialized by the engine, so a plain field is
// enough.
type channelContext struct {
	id           string
	conn         gnet.Conn
	logger       *zap.Logger
	consumerData any
}

// ID implements surge.RequestResponseContext.
func (cc *channelContext) ID() string {
	return cc.id
}

// RespondWith writes the serialized response asynchronously; the buffer
// lease is released once the write completes, and the connection closes
// afterwards when requested.
func (cc *channelContext) RespondWith(buffer *surge.ConsumerBuffer, closeAfterResponse bool) {
	err := cc.conn.AsyncWrite(buffer.Bytes(), func(c gnet.Conn, err error) error {
		buffer.Release()
		if err != nil {
			cc.logger.Error("response write failed",
				zap.String("connection", cc.id),
				zap.Error(err))
			return nil
		}
		if closeAfterResponse {
			return c.Close()
		}
		return nil
	})
	if err != nil {
		buffer.Release()
		cc.logger.Error("response write rejected",
			zap.String("connection", cc.id),
			zap.Error(err))
	}
}

// Close implements surge.RequestResponseContext.
func (cc *channelContext) Close() {
	_ = cc.conn.Close()
}

// ConsumerData implements surge.RequestResponseContext.
func (cc *channelContext) ConsumerData() any {
	return cc.consumerData
}

// SetConsumerData implements surge.RequestResponseContext.
func (cc *channelContext) SetConsumerData(data any) {
	cc.consumerData = data
}

// HasConsumerData implements surge.RequestResponseContext.
func (cc *channelContext) HasConsumerData() bool {
	return cc.consumerData != nil
}
