package http11

import "errors"

// Parser errors - pre-allocated for zero runtime allocation
var (
	// ErrInvalidRequestLine indicates the request line is malformed
	// Request line format: METHOD PATH PROTOCOL\r\n
	ErrInvalidRequestLine = errors.New("http11: invalid request line")

	// ErrInvalidMethod indicates an unsupported or malformed HTTP method
	ErrInvalidMethod = errors.New("http11: invalid HTTP method")

	// ErrInvalidPath indicates the request path is malformed
	ErrInvalidPath = errors.New("http11: invalid request path")

	// ErrInvalidProtocol indicates an unsupported protocol version
	// Only HTTP/1.1 is supported by this engine
	ErrInvalidProtocol = errors.New("http11: invalid or unsupported protocol version")

	// ErrInvalidHeader indicates a malformed header
	// Headers must be in format: Name: Value\r\n
	ErrInvalidHeader = errors.New("http11: invalid HTTP header")

	// ErrHeadersTooLarge indicates the header section exceeds its budget
	ErrHeadersTooLarge = errors.New("http11: headers too large")

	// ErrRequestLineTooLarge indicates the request line exceeds 8KB
	ErrRequestLineTooLarge = errors.New("http11: request line too large")

	// ErrURITooLong indicates the URI exceeds the maximum allowed length
	ErrURITooLong = errors.New("http11: URI too long")

	// ErrInvalidContentLength indicates Content-Length header is malformed
	ErrInvalidContentLength = errors.New("http11: invalid Content-Length")

	// ErrContentLengthTooLarge indicates a declared body beyond MaxContentLength
	ErrContentLengthTooLarge = errors.New("http11: Content-Length exceeds maximum body size")

	// ErrContentLengthWithTransferEncoding indicates a request has both headers
	// RFC 7230 §3.3.3: such requests are rejected
	ErrContentLengthWithTransferEncoding = errors.New("http11: request has both Content-Length and Transfer-Encoding")

	// ErrDuplicateContentLength indicates multiple Content-Length headers with
	// different values
	ErrDuplicateContentLength = errors.New("http11: duplicate Content-Length headers with different values")

	// ErrParserClosed indicates the parser was used after Close
	ErrParserClosed = errors.New("http11: parser closed")
)
