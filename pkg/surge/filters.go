package surge

import (
	"sync/atomic"

	"github.com/watt-toolkit/surge/pkg/surge/http11"
)

// RequestFilter transforms an inbound request before dispatch. The second
// return value reports whether the chain should continue; a false stops
// filtering and uses the returned request as-is.
type RequestFilter interface {
	Filter(request *http11.Request) (*http11.Request, bool)
	Stop()
}

// ResponseFilter transforms an outbound response before serialization, with
// the same chaining contract as RequestFilter.
type ResponseFilter interface {
	Filter(response http11.Response) (http11.Response, bool)
	Stop()
}

// RequestFilterFunc adapts an ordinary function to a stateless RequestFilter.
type RequestFilterFunc func(request *http11.Request) (*http11.Request, bool)

// Filter calls f(request).
func (f RequestFilterFunc) Filter(request *http11.Request) (*http11.Request, bool) {
	return f(request)
}

// Stop is a no-op; a function filter holds no resources.
func (f RequestFilterFunc) Stop() {}

// ResponseFilterFunc adapts an ordinary function to a stateless ResponseFilter.
type ResponseFilterFunc func(response http11.Response) (http11.Response, bool)

// Filter calls f(response).
func (f ResponseFilterFunc) Filter(response http11.Response) (http11.Response, bool) {
	return f(response)
}

// Stop is a no-op; a function filter holds no resources.
func (f ResponseFilterFunc) Stop() {}

// Filters is the filter chain applied around application handling: requests
// on the way in, responses on the way out. The chain is fixed at construction
// and safe for concurrent use; Stop is idempotent and stops every filter.
type Filters struct {
	requestFilters  []RequestFilter
	responseFilters []ResponseFilter
	stopped         atomic.Bool
}

// NewFilters creates a filter chain from the given filters, applied in order.
// Both slices may be nil.
func NewFilters(requestFilters []RequestFilter, responseFilters []ResponseFilter) *Filters {
	return &Filters{
		requestFilters:  requestFilters,
		responseFilters: responseFilters,
	}
}

// ProcessRequest runs the request through the request filter chain.
func (f *Filters) ProcessRequest(request *http11.Request) *http11.Request {
	if f == nil || f.stopped.Load() {
		return request
	}
	for _, filter := range f.requestFilters {
		var proceed bool
		request, proceed = filter.Filter(request)
		if !proceed {
			break
		}
	}
	return request
}

// ProcessResponse runs the response through the response filter chain.
func (f *Filters) ProcessResponse(response http11.Response) http11.Response {
	if f == nil || f.stopped.Load() {
		return response
	}
	for _, filter := range f.responseFilters {
		var proceed bool
		response, proceed = filter.Filter(response)
		if !proceed {
			break
		}
	}
	return response
}

// Stop stops every filter in the chain. Only the first call has any effect.
func (f *Filters) Stop() {
	if f == nil || !f.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, filter := range f.requestFilters {
		filter.Stop()
	}
	for _, filter := range f.responseFilters {
		filter.Stop()
	}
}
