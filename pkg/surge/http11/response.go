package http11

import (
	"io"
	"strconv"

	json "github.com/goccy/go-json"
)

// Response is one outbound HTTP/1.1 response.
//
// A Response is a plain value: completion code builds it, filters may rewrite
// it, and serialization renders it into a transport buffer. Content-Length is
// derived from the body at serialization time unless a field was set
// explicitly, so filters that replace the body never have to patch it.
type Response struct {
	Version    string // defaults to "HTTP/1.1" when empty
	StatusCode int
	Headers    Headers
	Body       []byte
}

// Of returns a bodyless response with the given status code.
func Of(code int) Response {
	return Response{Version: VersionHTTP11, StatusCode: code}
}

// OfWithBody returns a response with the given status code and textual body.
func OfWithBody(code int, body string) Response {
	return Response{Version: VersionHTTP11, StatusCode: code, Body: []byte(body)}
}

// OfJSON returns a response whose body is the JSON encoding of v, with
// Content-Type set accordingly.
func OfJSON(code int, v interface{}) (Response, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Version:    VersionHTTP11,
		StatusCode: code,
		Headers:    Headers{{Name: HeaderContentType, Value: ContentTypeJSON}},
		Body:       encoded,
	}, nil
}

// Include adds the given header field to the response, replacing any existing
// field of the same name. An empty name or value is a no-op; this is how an
// absent correlation id merges without special-casing at the call site.
func (r Response) Include(name, value string) Response {
	if name == "" || value == "" {
		return r
	}
	r.Headers = r.Headers.Clone().Set(name, value)
	return r
}

// StatusCategory returns the leading digit of the status code (4 for 4xx).
func (r Response) StatusCategory() int {
	return r.StatusCode / 100
}

// StatusText returns the reason phrase for the response status code.
func (r Response) StatusText() string {
	return StatusText(r.StatusCode)
}

func (r Response) version() string {
	if r.Version == "" {
		return VersionHTTP11
	}
	return r.Version
}

// hasContentLength reports whether an explicit Content-Length field is set.
func (r Response) hasContentLength() bool {
	_, ok := r.Headers.Of(HeaderContentLength)
	return ok
}

// Size returns the exact number of bytes WriteTo will produce.
// Completion uses it to decide between a pooled buffer and a one-off
// allocation, so it must agree with WriteTo byte for byte.
func (r Response) Size() int {
	// status line: VERSION SP CODE SP REASON CRLF
	n := len(r.version()) + 1 + len(strconv.Itoa(r.StatusCode)) + 1 + len(r.StatusText()) + 2
	for i := range r.Headers {
		n += len(r.Headers[i].Name) + 2 + len(r.Headers[i].Value) + 2
	}
	if !r.hasContentLength() {
		n += len(HeaderContentLength) + 2 + len(strconv.Itoa(len(r.Body))) + 2
	}
	n += 2 // blank line
	n += len(r.Body)
	return n
}

// AppendTo appends the serialized response to dst and returns the result.
func (r Response) AppendTo(dst []byte) []byte {
	dst = append(dst, r.version()...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(r.StatusCode), 10)
	dst = append(dst, ' ')
	dst = append(dst, r.StatusText()...)
	dst = append(dst, '\r', '\n')
	for i := range r.Headers {
		dst = append(dst, r.Headers[i].Name...)
		dst = append(dst, ':', ' ')
		dst = append(dst, r.Headers[i].Value...)
		dst = append(dst, '\r', '\n')
	}
	if !r.hasContentLength() {
		dst = append(dst, HeaderContentLength...)
		dst = append(dst, ':', ' ')
		dst = strconv.AppendInt(dst, int64(len(r.Body)), 10)
		dst = append(dst, '\r', '\n')
	}
	dst = append(dst, '\r', '\n')
	dst = append(dst, r.Body...)
	return dst
}

// WriteTo serializes the response into w.
func (r Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.AppendTo(nil))
	return int64(n), err
}
