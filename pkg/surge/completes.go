package surge

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/watt-toolkit/surge/pkg/surge/http11"
)

// ResponseCompletes is the single-assignment completion object bound to one
// request. The application (or the reaper, for abandoned requests) resolves
// it exactly once with the response; resolution applies the response filter
// chain, merges the stored correlation id, decides whether the connection
// stays open, serializes into a leased buffer, and writes back to the
// transport as one sequence.
//
// With may be called from any goroutine: everything it touches is either
// immutable after construction or internally synchronized, and the one-shot
// guard makes racing resolutions (live completion vs. reaper) safe: the
// first caller wins.
type ResponseCompletes struct {
	engine         *Engine
	transport      RequestResponseContext
	missingContent bool
	correlationID  string
	keepAlive      bool

	completed atomic.Bool
}

func newResponseCompletes(
	engine *Engine,
	transport RequestResponseContext,
	missingContent bool,
	correlationID string,
	keepAlive bool,
) *ResponseCompletes {
	return &ResponseCompletes{
		engine:         engine,
		transport:      transport,
		missingContent: missingContent,
		correlationID:  correlationID,
		keepAlive:      keepAlive,
	}
}

// With resolves the completion with the given response. The second and any
// later call is a contract violation: it is logged, returns
// ErrAlreadyCompleted, and writes nothing.
func (rc *ResponseCompletes) With(response http11.Response) error {
	if !rc.completed.CompareAndSwap(false, true) {
		rc.engine.logger.Error("response completes resolved twice",
			zap.String("connection", rc.transport.ID()),
			zap.Int("status", response.StatusCode))
		return ErrAlreadyCompleted
	}
	rc.engine.complete(rc, response)
	return nil
}

// IsCompleted reports whether the completion has been resolved.
func (rc *ResponseCompletes) IsCompleted() bool {
	return rc.completed.Load()
}

// KeepAlive returns the request-side keep-alive decision captured at
// dispatch time.
func (rc *ResponseCompletes) KeepAlive() bool {
	return rc.keepAlive
}
