package http11

import (
	"bytes"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"
)

// parserBufferPool provides the accumulation buffers backing parser sessions.
// A session holds one buffer for its whole lifetime and returns it on Close.
var parserBufferPool bytebufferpool.Pool

var crlfcrlf = []byte("\r\n\r\n")

// RequestParser is the per-connection parser session. It accepts raw bytes in
// arbitrary fragments and yields zero or more complete requests per feed.
//
// Design:
// - Incremental: bytes accumulate until a full request is framed
// - Pipelining: one feed may complete several queued requests
// - Missing content: complete headers with a short body flip the session into
//   missing-content state, timestamped for the abandonment reaper
// - The accumulation buffer is leased from bytebufferpool and released on Close
//
// A session is confined to its owning connection; it is not safe for
// concurrent use.
type RequestParser struct {
	buf  *bytebufferpool.ByteBuffer
	full []*Request

	missingContent      bool
	missingContentSince time.Time

	closed bool
}

// ParserFor creates a parser session seeded with the first bytes read from a
// connection. A framing error in those bytes closes the session and surfaces
// as the returned error.
func ParserFor(data []byte) (*RequestParser, error) {
	p := &RequestParser{buf: parserBufferPool.Get()}
	if err := p.ParseNext(data); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// ParseNext feeds the next fragment of bytes into the session and frames as
// many complete requests as the accumulated bytes allow.
func (p *RequestParser) ParseNext(data []byte) error {
	if p.closed {
		return ErrParserClosed
	}
	p.buf.Write(data)
	return p.extract()
}

// HasFullRequest reports whether at least one framed request is queued.
func (p *RequestParser) HasFullRequest() bool {
	return len(p.full) > 0
}

// FullRequest dequeues the next framed request in arrival order.
// Returns nil when the queue is empty.
func (p *RequestParser) FullRequest() *Request {
	if len(p.full) == 0 {
		return nil
	}
	req := p.full[0]
	p.full = p.full[1:]
	return req
}

// IsMissingContent reports whether the session is holding complete headers
// whose declared body has not fully arrived.
func (p *RequestParser) IsMissingContent() bool {
	return p.missingContent
}

// MissingContentDuration returns how long the session has been waiting for
// the rest of the body, or zero when content is not missing.
func (p *RequestParser) MissingContentDuration() time.Duration {
	if !p.missingContent {
		return 0
	}
	return time.Since(p.missingContentSince)
}

// HasMissingContentTimeExpired reports whether the missing-content wait has
// exceeded the given timeout.
func (p *RequestParser) HasMissingContentTimeExpired(timeout time.Duration) bool {
	return p.missingContent && time.Since(p.missingContentSince) > timeout
}

// Close releases the session's accumulation buffer. Idempotent.
func (p *RequestParser) Close() {
	if p.closed {
		return
	}
	p.closed = true
	parserBufferPool.Put(p.buf)
	p.buf = nil
	p.full = nil
}

// extract frames requests out of the accumulated bytes until it runs out of
// complete ones. Consumed bytes are trimmed from the front of the buffer so
// pipelined successors keep their alignment.
func (p *RequestParser) extract() error {
	for {
		b := p.buf.B

		headerEnd := bytes.Index(b, crlfcrlf)
		if headerEnd == -1 {
			// Header section not complete yet. Bound the wait so a
			// connection cannot grow the buffer without limit.
			if len(b) > MaxRequestLineSize+MaxHeadersSize {
				return ErrHeadersTooLarge
			}
			return nil
		}

		req, err := parseHead(b[:headerEnd+2])
		if err != nil {
			return err
		}

		total := headerEnd + 4 + req.ContentLength
		if len(b) < total {
			// Headers complete, body still in flight.
			if !p.missingContent {
				p.missingContent = true
				p.missingContentSince = time.Now()
			}
			return nil
		}

		if req.ContentLength > 0 {
			req.Body = append([]byte(nil), b[headerEnd+4:total]...)
		}
		p.full = append(p.full, req)
		p.missingContent = false

		// Trim the framed request; anything left belongs to a pipelined
		// successor.
		remaining := copy(b, b[total:])
		p.buf.B = b[:remaining]
		if remaining == 0 {
			return nil
		}
	}
}

// parseHead parses the request line and header section. head covers the bytes
// up to and including the CRLF terminating the last header line.
//
// All extracted values are copied out; the accumulation buffer is reused.
func parseHead(head []byte) (*Request, error) {
	lineEnd := bytes.Index(head, []byte("\r\n"))
	if lineEnd == -1 {
		return nil, ErrInvalidRequestLine
	}
	if lineEnd > MaxRequestLineSize {
		return nil, ErrRequestLineTooLarge
	}

	req := &Request{Version: VersionHTTP11}

	line := head[:lineEnd]
	sp := bytes.IndexByte(line, ' ')
	if sp == -1 {
		return nil, ErrInvalidRequestLine
	}
	method := string(line[:sp])
	if !validMethods[method] {
		return nil, ErrInvalidMethod
	}
	req.Method = method

	line = line[sp+1:]
	sp = bytes.IndexByte(line, ' ')
	if sp == -1 {
		return nil, ErrInvalidRequestLine
	}
	uri := line[:sp]
	if len(uri) > MaxURILength {
		return nil, ErrURITooLong
	}
	if len(uri) == 0 || (uri[0] != '/' && uri[0] != '*') {
		return nil, ErrInvalidPath
	}
	req.URI = string(uri)

	if !bytes.Equal(line[sp+1:], []byte(VersionHTTP11)) {
		return nil, ErrInvalidProtocol
	}

	if err := parseHeaders(req, head[lineEnd+2:]); err != nil {
		return nil, err
	}
	return req, nil
}

// parseHeaders parses "Name: Value\r\n" lines and resolves the special
// framing headers, rejecting the request-smuggling shapes from RFC 7230
// §3.3.3 (Content-Length alongside Transfer-Encoding, and conflicting
// duplicate Content-Length fields).
func parseHeaders(req *Request, b []byte) error {
	var (
		hasContentLength    bool
		hasTransferEncoding bool
		contentLength       int
	)

	for len(b) > 0 {
		lineEnd := bytes.Index(b, []byte("\r\n"))
		if lineEnd == -1 {
			return ErrInvalidHeader
		}
		line := b[:lineEnd]
		b = b[lineEnd+2:]
		if len(line) == 0 {
			continue
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return ErrInvalidHeader
		}
		// RFC 7230 §3.2: no whitespace between field name and colon
		if line[colon-1] == ' ' || line[colon-1] == '\t' {
			return ErrInvalidHeader
		}
		name := line[:colon]
		if bytes.IndexByte(name, ' ') != -1 || bytes.IndexByte(name, '\t') != -1 {
			return ErrInvalidHeader
		}
		value := trimSpace(line[colon+1:])

		nameStr := string(name)
		valueStr := string(value)
		req.Headers = req.Headers.Add(nameStr, valueStr)

		switch {
		case strings.EqualFold(nameStr, HeaderContentLength):
			n, err := parseContentLength(value)
			if err != nil {
				return err
			}
			if hasContentLength && n != contentLength {
				return ErrDuplicateContentLength
			}
			hasContentLength = true
			contentLength = n
		case strings.EqualFold(nameStr, HeaderTransferEncoding):
			hasTransferEncoding = true
		}
	}

	if hasContentLength && hasTransferEncoding {
		return ErrContentLengthWithTransferEncoding
	}
	req.ContentLength = contentLength
	return nil
}

// parseContentLength parses a Content-Length value; digits only, capped at
// MaxContentLength. Checking the cap after every digit keeps the accumulator
// far below the integer ceiling, so a long run of digits can never wrap it.
func parseContentLength(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, ErrInvalidContentLength
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, ErrInvalidContentLength
		}
		n = n*10 + int(c-'0')
		if n > MaxContentLength {
			return 0, ErrContentLengthTooLarge
		}
	}
	return n, nil
}

// trimSpace trims leading and trailing spaces and tabs (per RFC 7230).
func trimSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}
