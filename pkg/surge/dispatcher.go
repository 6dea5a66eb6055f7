package surge

import (
	"sync"

	"go.uber.org/zap"

	"github.com/watt-toolkit/surge/pkg/surge/http11"
)

// Handler is the application handler table: it receives the filtered request
// inside its Context and eventually resolves ctx.Completes with a response.
// Resolution may happen synchronously inside HandleFor or from any other
// goroutine later.
type Handler interface {
	HandleFor(ctx *Context)
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(ctx *Context)

// HandleFor calls f(ctx).
func (f HandlerFunc) HandleFor(ctx *Context) {
	f(ctx)
}

// Dispatcher executes application handling for one dispatched context.
type Dispatcher interface {
	DispatchFor(ctx *Context)
	Stop()
}

// DispatcherPool selects a Dispatcher for each request. Selection is
// round-robin with wraparound over a fixed worker array; the cursor is only
// ever advanced by the engine's serialized execution, so pools do not
// synchronize it themselves.
type DispatcherPool interface {
	Dispatcher() Dispatcher
	Close()
}

// dispatchQueueDepth bounds each channel-backed worker's inbox.
const dispatchQueueDepth = 32

// handleSafely runs the handler with panic containment: a panicking handler
// must not take down the worker, and its request still gets an answer.
func handleSafely(handler Handler, ctx *Context, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked", zap.Any("panic", r))
			if ctx.Completes != nil && !ctx.Completes.IsCompleted() {
				_ = ctx.Completes.With(http11.Of(http11.StatusInternalServerError))
			}
		}
	}()
	handler.HandleFor(ctx)
}

// queueDispatcher is the channel-backed dispatcher: a dedicated goroutine
// draining a bounded queue.
type queueDispatcher struct {
	queue    chan *Context
	handler  Handler
	logger   *zap.Logger
	done     chan struct{}
	stopOnce sync.Once
}

func newQueueDispatcher(handler Handler, logger *zap.Logger) *queueDispatcher {
	d := &queueDispatcher{
		queue:   make(chan *Context, dispatchQueueDepth),
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *queueDispatcher) run() {
	for ctx := range d.queue {
		handleSafely(d.handler, ctx, d.logger)
	}
	close(d.done)
}

// DispatchFor enqueues the context for the worker goroutine.
func (d *queueDispatcher) DispatchFor(ctx *Context) {
	d.queue <- ctx
}

// Stop closes the queue and waits for the worker to drain it.
func (d *queueDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
		<-d.done
	})
}

// inlineDispatcher is the agent-backed dispatcher: handling runs inline on
// the delivering goroutine, trading isolation for zero hand-off cost.
type inlineDispatcher struct {
	handler Handler
	logger  *zap.Logger
}

func (d *inlineDispatcher) DispatchFor(ctx *Context) {
	handleSafely(d.handler, ctx, d.logger)
}

func (d *inlineDispatcher) Stop() {}

// roundRobinPool is the shared fixed-array pool shape. The post-increment
// wraparound mirrors selection order 0..N-1, 0, 1, ...
type roundRobinPool struct {
	workers []Dispatcher
	index   int
}

func (p *roundRobinPool) Dispatcher() Dispatcher {
	if p.index >= len(p.workers) {
		p.index = 0
	}
	d := p.workers[p.index]
	p.index++
	return d
}

func (p *roundRobinPool) Close() {
	for _, w := range p.workers {
		w.Stop()
	}
}

// NewServerDispatcherPool creates the channel-backed pool: size dedicated
// worker goroutines, each with its own bounded queue.
func NewServerDispatcherPool(size int, handler Handler, logger *zap.Logger) (DispatcherPool, error) {
	if size < 1 {
		return nil, ErrInvalidPoolSize
	}
	if handler == nil {
		return nil, ErrNoHandler
	}
	workers := make([]Dispatcher, size)
	for i := range workers {
		workers[i] = newQueueDispatcher(handler, logger)
	}
	return &roundRobinPool{workers: workers}, nil
}

// NewAgentDispatcherPool creates the agent-backed pool: size inline
// dispatchers that run handlers on the delivering goroutine.
func NewAgentDispatcherPool(size int, handler Handler, logger *zap.Logger) (DispatcherPool, error) {
	if size < 1 {
		return nil, ErrInvalidPoolSize
	}
	if handler == nil {
		return nil, ErrNoHandler
	}
	workers := make([]Dispatcher, size)
	for i := range workers {
		workers[i] = &inlineDispatcher{handler: handler, logger: logger}
	}
	return &roundRobinPool{workers: workers}, nil
}
