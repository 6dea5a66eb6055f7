// Package http11 implements the HTTP/1.1 value types and the incremental
// request parser used by the surge engine.
package http11

// Size limits for request framing
// RFC 7230 recommends 8KB for the request line; headers get the same budget
const (
	// MaxRequestLineSize is the maximum size of the request line
	MaxRequestLineSize = 8 * 1024

	// MaxHeadersSize is the maximum total size of the header section
	MaxHeadersSize = 8 * 1024

	// MaxURILength is the maximum length of a request URI
	MaxURILength = 8 * 1024

	// MaxContentLength is the largest declared body the parser accepts.
	// It bounds the accumulation buffer of a connection awaiting missing
	// content and keeps the Content-Length accumulator clear of overflow.
	MaxContentLength = 64 * 1024 * 1024
)

// Protocol version
const (
	VersionHTTP11 = "HTTP/1.1"
)

// Well-known header names and values
const (
	HeaderConnection       = "Connection"
	HeaderContentLength    = "Content-Length"
	HeaderContentType      = "Content-Type"
	HeaderContentEncoding  = "Content-Encoding"
	HeaderTransferEncoding = "Transfer-Encoding"
	HeaderHost             = "Host"
	HeaderXCorrelationID   = "X-Correlation-ID"

	ValueKeepAlive = "keep-alive"
	ValueClose     = "close"

	ContentTypeJSON = "application/json"
)

// HTTP status codes covered by the engine's status table
const (
	StatusOK                  = 200
	StatusCreated             = 201
	StatusAccepted            = 202
	StatusNoContent           = 204
	StatusMovedPermanently    = 301
	StatusFound               = 302
	StatusNotModified         = 304
	StatusBadRequest          = 400
	StatusUnauthorized        = 401
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusRequestTimeout      = 408
	StatusPayloadTooLarge     = 413
	StatusURITooLong          = 414
	StatusTooManyRequests     = 429
	StatusInternalServerError = 500
	StatusNotImplemented      = 501
	StatusBadGateway          = 502
	StatusServiceUnavailable  = 503
	StatusGatewayTimeout      = 504
)

// statusTexts maps status codes to their reason phrases
var statusTexts = map[int]string{
	StatusOK:                  "OK",
	StatusCreated:             "Created",
	StatusAccepted:            "Accepted",
	StatusNoContent:           "No Content",
	StatusMovedPermanently:    "Moved Permanently",
	StatusFound:               "Found",
	StatusNotModified:         "Not Modified",
	StatusBadRequest:          "Bad Request",
	StatusUnauthorized:        "Unauthorized",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusMethodNotAllowed:    "Method Not Allowed",
	StatusRequestTimeout:      "Request Timeout",
	StatusPayloadTooLarge:     "Payload Too Large",
	StatusURITooLong:          "URI Too Long",
	StatusTooManyRequests:     "Too Many Requests",
	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
	StatusBadGateway:          "Bad Gateway",
	StatusServiceUnavailable:  "Service Unavailable",
	StatusGatewayTimeout:      "Gateway Timeout",
}

// StatusText returns the reason phrase for a status code.
// Unknown codes map to an empty reason phrase.
func StatusText(code int) string {
	return statusTexts[code]
}

// validMethods are the request methods the parser accepts
var validMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
	"CONNECT": true,
	"TRACE":   true,
}
