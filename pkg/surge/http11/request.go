package http11

// Request is one fully framed HTTP/1.1 request.
//
// Unlike a streaming request object, a Request produced by the incremental
// parser owns all of its data: the parser copies method, URI, headers and body
// out of its accumulation buffer before handing the request over, so a Request
// stays valid for as long as the dispatch pipeline holds it.
type Request struct {
	Method  string
	URI     string // raw path plus optional ?query, undecoded
	Version string // always "HTTP/1.1"
	Headers Headers
	Body    []byte

	// ContentLength is the declared body length; 0 when no body was declared.
	ContentLength int
}

// HeaderValueOr returns the value of the named request header, or the given
// default when absent.
func (r *Request) HeaderValueOr(name, defaultValue string) string {
	return r.Headers.ValueOr(name, defaultValue)
}

// Path returns the URI up to but excluding any query string.
func (r *Request) Path() string {
	for i := 0; i < len(r.URI); i++ {
		if r.URI[i] == '?' {
			return r.URI[:i]
		}
	}
	return r.URI
}

// Query returns the raw query string without the leading '?', or "".
func (r *Request) Query() string {
	for i := 0; i < len(r.URI); i++ {
		if r.URI[i] == '?' {
			return r.URI[i+1:]
		}
	}
	return ""
}
