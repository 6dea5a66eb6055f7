package http11

import (
	"bytes"
	"strings"
	"testing"
)

func TestResponseAppendTo(t *testing.T) {
	resp := OfWithBody(StatusOK, "hello")
	out := string(resp.AppendTo(nil))

	want := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	if out != want {
		t.Errorf("AppendTo = %q, want %q", out, want)
	}
}

func TestResponseSizeMatchesSerialization(t *testing.T) {
	cases := []Response{
		Of(StatusNoContent),
		OfWithBody(StatusOK, "hello"),
		OfWithBody(StatusBadRequest, "Missing content with timeout."),
		OfWithBody(StatusOK, "x").Include(HeaderConnection, ValueKeepAlive),
		OfWithBody(StatusOK, strings.Repeat("y", 4096)).Include(HeaderXCorrelationID, "abc-123"),
		{Version: VersionHTTP11, StatusCode: StatusOK, Headers: Headers{{Name: HeaderContentLength, Value: "0"}}},
	}

	for _, resp := range cases {
		serialized := resp.AppendTo(nil)
		if resp.Size() != len(serialized) {
			t.Errorf("Size() = %d, serialized length = %d for %d response",
				resp.Size(), len(serialized), resp.StatusCode)
		}
	}
}

func TestResponseWriteTo(t *testing.T) {
	var buf bytes.Buffer
	resp := OfWithBody(StatusNotFound, "gone")
	n, err := resp.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if int(n) != buf.Len() {
		t.Errorf("WriteTo n = %d, buffer has %d", n, buf.Len())
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("HTTP/1.1 404 Not Found\r\n")) {
		t.Errorf("unexpected status line in %q", buf.String())
	}
}

func TestResponseInclude(t *testing.T) {
	resp := Of(StatusOK).Include(HeaderXCorrelationID, "id-1")
	if got, _ := resp.Headers.Of(HeaderXCorrelationID); got != "id-1" {
		t.Errorf("correlation header = %q, want %q", got, "id-1")
	}

	// An empty name or value is the no-correlation-id case and must change
	// nothing.
	unchanged := Of(StatusOK).Include("", "id-1")
	if len(unchanged.Headers) != 0 {
		t.Errorf("Include with empty name added headers: %v", unchanged.Headers)
	}
	unchanged = Of(StatusOK).Include(HeaderXCorrelationID, "")
	if len(unchanged.Headers) != 0 {
		t.Errorf("Include with empty value added headers: %v", unchanged.Headers)
	}

	// Include must not alias the source header slice.
	base := Of(StatusOK).Include("A", "1")
	derived := base.Include("A", "2")
	if got, _ := base.Headers.Of("A"); got != "1" {
		t.Errorf("base mutated by Include: A = %q", got)
	}
	if got, _ := derived.Headers.Of("A"); got != "2" {
		t.Errorf("derived A = %q, want %q", got, "2")
	}
}

func TestOfJSON(t *testing.T) {
	resp, err := OfJSON(StatusOK, map[string]int{"count": 3})
	if err != nil {
		t.Fatalf("OfJSON failed: %v", err)
	}
	if got, _ := resp.Headers.Of(HeaderContentType); got != ContentTypeJSON {
		t.Errorf("Content-Type = %q, want %q", got, ContentTypeJSON)
	}
	if string(resp.Body) != `{"count":3}` {
		t.Errorf("Body = %q, want %q", resp.Body, `{"count":3}`)
	}
}

func TestHeadersLookupIsCaseInsensitive(t *testing.T) {
	h := Headers{}.Add("Content-Type", "text/plain").Add("X-Thing", "a")
	if got := h.ValueOr("content-type", ""); got != "text/plain" {
		t.Errorf("ValueOr = %q, want %q", got, "text/plain")
	}
	if got := h.ValueOr("Absent", "fallback"); got != "fallback" {
		t.Errorf("ValueOr default = %q, want %q", got, "fallback")
	}

	h = h.Set("x-thing", "b")
	if got, _ := h.Of("X-Thing"); got != "b" {
		t.Errorf("Set did not replace: %q", got)
	}

	h = h.Remove("CONTENT-TYPE")
	if _, ok := h.Of("Content-Type"); ok {
		t.Error("Remove left the header in place")
	}
}
