package surge

import "github.com/watt-toolkit/surge/pkg/surge/http11"

// Context carries one logical request through dispatch: the originating
// connection, the filtered request, and the single-use completion object the
// application resolves with its response.
//
// A context synthesized for a headers-only connection whose body never
// arrived has no Request; its completion is resolved by the abandonment
// reaper instead of a handler.
type Context struct {
	Transport RequestResponseContext
	Request   *http11.Request
	Completes *ResponseCompletes
}

// HasRequest reports whether the context carries a parsed request.
func (c *Context) HasRequest() bool {
	return c.Request != nil
}
