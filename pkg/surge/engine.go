package surge

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/watt-toolkit/surge/pkg/surge/http11"
)

// pendingRequest is one missing-content registry entry: a connection whose
// request body has not fully arrived, plus the context that will answer it.
type pendingRequest struct {
	transport RequestResponseContext
	ctx       *Context
}

// EngineStats counts engine-level events. All fields are updated atomically.
type EngineStats struct {
	RequestsDispatched        atomic.Uint64
	ParseFailures             atomic.Uint64
	MissingContentRegistered  atomic.Uint64
	MissingContentExpirations atomic.Uint64
}

// Engine is the request/response engine: it owns every connection's byte
// stream from the transport boundary to the serialized response.
//
// Concurrency model: the engine is a single logical actor. One mutex
// serializes Consume, CloseWith, and the reaper sweep, the three entry
// points that touch the missing-content registry and the dispatcher cursor.
// Response completion deliberately runs outside that lock: it touches only
// state that is immutable after start (filters, sizing) or internally
// synchronized (buffer pool, transport write), so application goroutines can
// resolve responses without re-entering the actor. Exclusion between a sweep
// and a live completion of the same entry comes from the completion object's
// one-shot guard.
//
// The engine performs no blocking I/O: Consume frames and dispatches,
// completion serializes and hands the buffer to the transport.
type Engine struct {
	mu sync.Mutex

	filters                *Filters
	dispatcherPool         DispatcherPool
	requestsMissingContent map[string]*pendingRequest
	missingContentTimeout  time.Duration
	maxMessageSize         int
	responseBufferPool     *ConsumerBufferPool

	logger  *zap.Logger
	stopped atomic.Bool
	stats   EngineStats
}

// NewEngine constructs an engine from the given configuration. Construction
// failures (no handler, bad pool sizing) are fatal and not retried.
func NewEngine(config Config) (*Engine, error) {
	config = config.withDefaults()

	if config.Handler == nil {
		return nil, ErrNoHandler
	}

	logger := config.Logger.Named("surge.engine")

	var (
		pool DispatcherPool
		err  error
	)
	if config.InlineDispatch {
		pool, err = NewAgentDispatcherPool(config.DispatcherPoolSize, config.Handler, logger)
	} else {
		pool, err = NewServerDispatcherPool(config.DispatcherPoolSize, config.Handler, logger)
	}
	if err != nil {
		return nil, err
	}

	filters := config.Filters
	if filters == nil {
		filters = NewFilters(nil, nil)
	}

	return &Engine{
		filters:                filters,
		dispatcherPool:         pool,
		requestsMissingContent: make(map[string]*pendingRequest),
		missingContentTimeout:  config.MissingContentTimeout,
		maxMessageSize:         config.MaxMessageSize,
		responseBufferPool:     NewConsumerBufferPool(config.MaxBufferPoolSize, config.MaxMessageSize),
		logger:                 logger,
	}, nil
}

// Stats returns the engine's counters.
func (e *Engine) Stats() *EngineStats {
	return &e.stats
}

// ResponseBufferPool returns the pool backing outbound response assembly,
// mainly so callers can register its metrics collector.
func (e *Engine) ResponseBufferPool() *ConsumerBufferPool {
	return e.responseBufferPool
}

// Consume delivers one read's worth of bytes for a connection. It frames as
// many complete requests as the bytes allow and dispatches them in arrival
// order, registers the connection when its body is still missing, and
// answers parse failures with 400 on the spot. The inbound buffer lease is
// released exactly once, success or failure.
func (e *Engine) Consume(t RequestResponseContext, buffer *ConsumerBuffer) {
	defer buffer.Release()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped.Load() {
		return
	}

	wasIncompleteContent := false

	var (
		parser *http11.RequestParser
		err    error
	)
	if !t.HasConsumerData() {
		parser, err = http11.ParserFor(buffer.Bytes())
		if err == nil {
			t.SetConsumerData(parser)
		}
	} else {
		parser = t.ConsumerData().(*http11.RequestParser)
		wasIncompleteContent = parser.IsMissingContent()
		err = parser.ParseNext(buffer.Bytes())
	}

	if err != nil {
		e.stats.ParseFailures.Add(1)
		e.logger.Error("request parsing failed",
			zap.String("connection", t.ID()),
			zap.Error(err))
		completes := newResponseCompletes(e, t, false, "", false)
		_ = completes.With(http11.OfWithBody(http11.StatusBadRequest, err.Error()))
		return
	}

	var ctx *Context
	for parser.HasFullRequest() {
		ctx = e.consumeRequest(t, parser.FullRequest(), wasIncompleteContent)
	}

	if parser.IsMissingContent() {
		if _, exists := e.requestsMissingContent[t.ID()]; !exists {
			if ctx == nil {
				// Headers-only connection with no dispatched request yet:
				// synthesize a context so the reaper has something to answer.
				completes := newResponseCompletes(e, t, true, "", true)
				ctx = &Context{Transport: t, Completes: completes}
			}
			e.stats.MissingContentRegistered.Add(1)
			e.requestsMissingContent[t.ID()] = &pendingRequest{transport: t, ctx: ctx}
		}
	}
}

// CloseWith announces a closing connection. A final undispatched request in
// data is filtered and dispatched with keep-alive set, so its response write
// carries the close; either way the parser session and any pending
// missing-content entry are discarded.
func (e *Engine) CloseWith(t RequestResponseContext, data any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped.Load() {
		return
	}

	if request, ok := data.(*http11.Request); ok && request != nil {
		filtered := e.filters.ProcessRequest(request)
		completes := newResponseCompletes(
			e, t, false, filtered.HeaderValueOr(http11.HeaderXCorrelationID, ""), true)
		ctx := &Context{Transport: t, Request: filtered, Completes: completes}
		e.dispatcherPool.Dispatcher().DispatchFor(ctx)
		e.stats.RequestsDispatched.Add(1)
	}

	if t.HasConsumerData() {
		if parser, ok := t.ConsumerData().(*http11.RequestParser); ok {
			parser.Close()
		}
		t.SetConsumerData(nil)
	}
	delete(e.requestsMissingContent, t.ID())
}

// FailTimedOutMissingContentRequests is the reaper sweep: every pending entry
// whose parser session has waited longer than the abandonment timeout gets a
// 400 "missing content" answer and its session torn down; entries whose
// connection is already gone are dropped silently. Removal is deferred to a
// second pass so the registry is not mutated mid-scan.
func (e *Engine) FailTimedOutMissingContentRequests() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped.Load() {
		return
	}
	if len(e.requestsMissingContent) == 0 {
		return
	}

	var toRemove []string

	for id, pending := range e.requestsMissingContent {
		if pending.transport.HasConsumerData() {
			parser, ok := pending.transport.ConsumerData().(*http11.RequestParser)
			if !ok {
				toRemove = append(toRemove, id)
				continue
			}
			if parser.HasMissingContentTimeExpired(e.missingContentTimeout) {
				pending.transport.SetConsumerData(nil)
				parser.Close()
				toRemove = append(toRemove, id)
				e.stats.MissingContentExpirations.Add(1)
				_ = pending.ctx.Completes.With(
					http11.OfWithBody(http11.StatusBadRequest, "Missing content with timeout."))
			}
		} else {
			// Connection already closed and cleaned; idempotent removal.
			toRemove = append(toRemove, id)
		}
	}

	for _, id := range toRemove {
		delete(e.requestsMissingContent, id)
	}
}

// PendingMissingContent returns the number of registered missing-content
// connections.
func (e *Engine) PendingMissingContent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requestsMissingContent)
}

// Stop stops the dispatcher pool and the filter chain. Only the first call
// has any effect; the engine cannot be restarted.
func (e *Engine) Stop() {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}
	e.dispatcherPool.Close()
	e.filters.Stop()
}

// consumeRequest runs one framed request through filtering and dispatch.
// Called with the engine lock held.
func (e *Engine) consumeRequest(
	t RequestResponseContext,
	request *http11.Request,
	wasIncompleteContent bool,
) *Context {
	keepAlive := determineKeepAlive(request)
	filtered := e.filters.ProcessRequest(request)
	completes := newResponseCompletes(
		e, t, false, filtered.HeaderValueOr(http11.HeaderXCorrelationID, ""), keepAlive)
	ctx := &Context{Transport: t, Request: filtered, Completes: completes}

	e.dispatcherPool.Dispatcher().DispatchFor(ctx)
	e.stats.RequestsDispatched.Add(1)

	if wasIncompleteContent {
		delete(e.requestsMissingContent, t.ID())
	}
	return ctx
}

// determineKeepAlive derives the request-side keep-alive flag: a Connection
// header case-insensitively equal to "keep-alive". An absent header means
// eager close.
func determineKeepAlive(request *http11.Request) bool {
	return strings.EqualFold(
		request.HeaderValueOr(http11.HeaderConnection, ""), http11.ValueKeepAlive)
}

// complete is the write-back half of a response completion. Runs on whichever
// goroutine resolved the completion; see the Engine doc comment for why no
// lock is taken here.
func (e *Engine) complete(rc *ResponseCompletes, response http11.Response) {
	filtered := e.filters.ProcessResponse(response)
	completed := filtered.Include(http11.HeaderXCorrelationID, rc.correlationID)
	closeAfterResponse := e.closeAfterResponse(rc, response)

	buffer := e.bufferFor(completed)
	buffer.Fill(completed.AppendTo)

	rc.transport.RespondWith(buffer, closeAfterResponse)
}

// bufferFor leases a transport buffer sized for the response: pooled when the
// response fits the configured maximum, a one-off allocation sized exactly to
// the response when it does not. Oversize is reported, never failed.
func (e *Engine) bufferFor(response http11.Response) *ConsumerBuffer {
	size := response.Size()
	if size < e.maxMessageSize {
		return e.responseBufferPool.Acquire("Engine#bufferFor")
	}
	e.logger.Error("response exceeds max message size, allocating one-off buffer",
		zap.Int("size", size),
		zap.Int("maxMessageSize", e.maxMessageSize),
		zap.Int("overage", size-e.maxMessageSize))
	return NewOneOffBuffer(size)
}

// closeAfterResponse decides whether the connection closes once the response
// is written. The response argument is the unfiltered response: status and
// Connection signals are the application's, not a filter's.
func (e *Engine) closeAfterResponse(rc *ResponseCompletes, response http11.Response) bool {
	// The synthetic missing-content response never drives the close; the
	// timeout (or completion) path already decided the connection's fate.
	if rc.missingContent {
		return false
	}

	// Error statuses close eagerly unless the request asked to keep alive.
	if category := response.StatusCategory(); category == 4 || category == 5 {
		return !rc.keepAlive
	}

	keepAliveAfterResponse := rc.keepAlive ||
		strings.EqualFold(
			response.Headers.ValueOr(http11.HeaderConnection, ""), http11.ValueKeepAlive)
	return !keepAliveAfterResponse
}
