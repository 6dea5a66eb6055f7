package http11

import (
	"strconv"
	"testing"
	"time"
)

func TestParseSimpleGET(t *testing.T) {
	parser, err := ParserFor([]byte("GET / HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("ParserFor failed: %v", err)
	}
	defer parser.Close()

	if !parser.HasFullRequest() {
		t.Fatal("expected a full request")
	}
	req := parser.FullRequest()
	if req.Method != "GET" {
		t.Errorf("Method = %q, want %q", req.Method, "GET")
	}
	if req.URI != "/" {
		t.Errorf("URI = %q, want %q", req.URI, "/")
	}
	if req.Version != "HTTP/1.1" {
		t.Errorf("Version = %q, want %q", req.Version, "HTTP/1.1")
	}
	if parser.HasFullRequest() {
		t.Error("expected exactly one request")
	}
}

func TestParseRequestWithHeadersAndBody(t *testing.T) {
	input := "POST /api/users?limit=10 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Length: 11\r\n" +
		"\r\n" +
		"hello world"
	parser, err := ParserFor([]byte(input))
	if err != nil {
		t.Fatalf("ParserFor failed: %v", err)
	}
	defer parser.Close()

	req := parser.FullRequest()
	if req == nil {
		t.Fatal("expected a full request")
	}
	if req.Path() != "/api/users" {
		t.Errorf("Path() = %q, want %q", req.Path(), "/api/users")
	}
	if req.Query() != "limit=10" {
		t.Errorf("Query() = %q, want %q", req.Query(), "limit=10")
	}
	if got := req.HeaderValueOr("host", "missing"); got != "example.com" {
		t.Errorf("HeaderValueOr(host) = %q, want %q", got, "example.com")
	}
	if string(req.Body) != "hello world" {
		t.Errorf("Body = %q, want %q", req.Body, "hello world")
	}
}

// Chunking transparency: any split of the byte stream across feeds must
// produce the same requests as a single feed.
func TestParseChunkingTransparency(t *testing.T) {
	input := []byte("POST /items HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"abcdeGET /next HTTP/1.1\r\nConnection: keep-alive\r\n\r\n")

	for split := 1; split < len(input); split++ {
		parser, err := ParserFor(input[:split])
		if err != nil {
			t.Fatalf("split %d: ParserFor failed: %v", split, err)
		}
		if err := parser.ParseNext(input[split:]); err != nil {
			t.Fatalf("split %d: ParseNext failed: %v", split, err)
		}

		first := parser.FullRequest()
		second := parser.FullRequest()
		if first == nil || second == nil {
			t.Fatalf("split %d: expected two requests, got %v, %v", split, first, second)
		}
		if first.Method != "POST" || string(first.Body) != "abcde" {
			t.Errorf("split %d: first = %s %q", split, first.Method, first.Body)
		}
		if second.Method != "GET" || second.URI != "/next" {
			t.Errorf("split %d: second = %s %s", split, second.Method, second.URI)
		}
		if parser.HasFullRequest() {
			t.Errorf("split %d: unexpected extra request", split)
		}
		parser.Close()
	}
}

func TestParsePipelinedRequestsSingleFeed(t *testing.T) {
	input := "GET /a HTTP/1.1\r\n\r\nGET /b HTTP/1.1\r\n\r\nGET /c HTTP/1.1\r\n\r\n"
	parser, err := ParserFor([]byte(input))
	if err != nil {
		t.Fatalf("ParserFor failed: %v", err)
	}
	defer parser.Close()

	for _, want := range []string{"/a", "/b", "/c"} {
		req := parser.FullRequest()
		if req == nil {
			t.Fatalf("missing request %s", want)
		}
		if req.URI != want {
			t.Errorf("URI = %q, want %q", req.URI, want)
		}
	}
}

func TestParseMissingContent(t *testing.T) {
	parser, err := ParserFor([]byte("POST /upload HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc"))
	if err != nil {
		t.Fatalf("ParserFor failed: %v", err)
	}
	defer parser.Close()

	if parser.HasFullRequest() {
		t.Fatal("request should not be complete")
	}
	if !parser.IsMissingContent() {
		t.Fatal("expected missing content state")
	}
	if parser.HasMissingContentTimeExpired(time.Minute) {
		t.Error("timeout should not have expired yet")
	}

	if err := parser.ParseNext([]byte("defghij")); err != nil {
		t.Fatalf("ParseNext failed: %v", err)
	}
	if parser.IsMissingContent() {
		t.Error("missing content should clear once the body completes")
	}
	req := parser.FullRequest()
	if req == nil {
		t.Fatal("expected completed request")
	}
	if string(req.Body) != "abcdefghij" {
		t.Errorf("Body = %q, want %q", req.Body, "abcdefghij")
	}
}

func TestParseMissingContentExpiry(t *testing.T) {
	parser, err := ParserFor([]byte("POST /upload HTTP/1.1\r\nContent-Length: 4\r\n\r\n"))
	if err != nil {
		t.Fatalf("ParserFor failed: %v", err)
	}
	defer parser.Close()

	if !parser.IsMissingContent() {
		t.Fatal("expected missing content state")
	}
	time.Sleep(20 * time.Millisecond)
	if !parser.HasMissingContentTimeExpired(10 * time.Millisecond) {
		t.Error("expected timeout to have expired")
	}
	if parser.MissingContentDuration() <= 0 {
		t.Error("expected positive missing-content duration")
	}
}

func TestParsePartialHeadersIsNotMissingContent(t *testing.T) {
	parser, err := ParserFor([]byte("GET / HTTP/1.1\r\nHos"))
	if err != nil {
		t.Fatalf("ParserFor failed: %v", err)
	}
	defer parser.Close()

	if parser.HasFullRequest() {
		t.Error("request should not be complete")
	}
	if parser.IsMissingContent() {
		t.Error("incomplete headers are not missing content")
	}

	if err := parser.ParseNext([]byte("t: example.com\r\n\r\n")); err != nil {
		t.Fatalf("ParseNext failed: %v", err)
	}
	if !parser.HasFullRequest() {
		t.Error("expected completed request after headers finish")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		err   error
	}{
		{"bad method", "FROB / HTTP/1.1\r\n\r\n", ErrInvalidMethod},
		{"bad path", "GET nope HTTP/1.1\r\n\r\n", ErrInvalidPath},
		{"bad protocol", "GET / HTTP/2.0\r\n\r\n", ErrInvalidProtocol},
		{"missing parts", "GET\r\n\r\n", ErrInvalidRequestLine},
		{"space before colon", "GET / HTTP/1.1\r\nHost : x\r\n\r\n", ErrInvalidHeader},
		{"bad content length", "GET / HTTP/1.1\r\nContent-Length: ten\r\n\r\n", ErrInvalidContentLength},
		{
			"smuggling cl+te",
			"POST / HTTP/1.1\r\nContent-Length: 3\r\nTransfer-Encoding: chunked\r\n\r\n",
			ErrContentLengthWithTransferEncoding,
		},
		{
			"conflicting duplicate cl",
			"POST / HTTP/1.1\r\nContent-Length: 3\r\nContent-Length: 4\r\n\r\n",
			ErrDuplicateContentLength,
		},
		{
			// 2^64 + 108: wraps a naive accumulator back to a small
			// positive value, which would mis-frame the body and let
			// trailing bytes masquerade as a pipelined successor.
			"wrapping content length",
			"POST / HTTP/1.1\r\nContent-Length: 18446744073709551724\r\n\r\n",
			ErrContentLengthTooLarge,
		},
		{
			"content length above cap",
			"POST / HTTP/1.1\r\nContent-Length: 67108865\r\n\r\n",
			ErrContentLengthTooLarge,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParserFor([]byte(tc.input))
			if err != tc.err {
				t.Errorf("ParserFor error = %v, want %v", err, tc.err)
			}
		})
	}
}

func TestParseContentLengthAtCap(t *testing.T) {
	input := "POST / HTTP/1.1\r\nContent-Length: " +
		strconv.Itoa(MaxContentLength) + "\r\n\r\n"
	parser, err := ParserFor([]byte(input))
	if err != nil {
		t.Fatalf("ParserFor at the cap failed: %v", err)
	}
	defer parser.Close()

	if !parser.IsMissingContent() {
		t.Error("IsMissingContent() = false, want true for a declared, absent body")
	}
}

func TestParserCloseIsIdempotent(t *testing.T) {
	parser, err := ParserFor([]byte("GET / HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("ParserFor failed: %v", err)
	}
	parser.Close()
	parser.Close()

	if err := parser.ParseNext([]byte("GET / HTTP/1.1\r\n\r\n")); err != ErrParserClosed {
		t.Errorf("ParseNext after Close = %v, want %v", err, ErrParserClosed)
	}
}
