package surge

import (
	"bytes"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/watt-toolkit/surge/pkg/surge/http11"
)

// Content encodings produced by the compression filters
const (
	EncodingGzip   = "gzip"
	EncodingBrotli = "br"
)

// DefaultCompressionMinSize is the smallest body the compression filters
// bother with; tiny bodies usually grow under compression.
const DefaultCompressionMinSize = 1024

// CompressionResponseFilter compresses response bodies above a size threshold
// and stamps the matching Content-Encoding. Responses that already carry a
// Content-Encoding pass through untouched. Content-Length stays derived, so
// the rewritten body needs no header patching.
type CompressionResponseFilter struct {
	encoding string
	minSize  int
}

// NewGzipResponseFilter creates a gzip response filter. A non-positive
// minSize selects DefaultCompressionMinSize.
func NewGzipResponseFilter(minSize int) *CompressionResponseFilter {
	return newCompressionFilter(EncodingGzip, minSize)
}

// NewBrotliResponseFilter creates a brotli response filter. A non-positive
// minSize selects DefaultCompressionMinSize.
func NewBrotliResponseFilter(minSize int) *CompressionResponseFilter {
	return newCompressionFilter(EncodingBrotli, minSize)
}

func newCompressionFilter(encoding string, minSize int) *CompressionResponseFilter {
	if minSize <= 0 {
		minSize = DefaultCompressionMinSize
	}
	return &CompressionResponseFilter{encoding: encoding, minSize: minSize}
}

// Filter implements ResponseFilter.
func (f *CompressionResponseFilter) Filter(response http11.Response) (http11.Response, bool) {
	if len(response.Body) < f.minSize {
		return response, true
	}
	if _, ok := response.Headers.Of(http11.HeaderContentEncoding); ok {
		return response, true
	}

	compressed, err := f.compress(response.Body)
	if err != nil || len(compressed) >= len(response.Body) {
		// Keep the identity body when compression fails or does not pay off.
		return response, true
	}

	response.Body = compressed
	response.Headers = response.Headers.Clone().
		Set(http11.HeaderContentEncoding, f.encoding).
		Remove(http11.HeaderContentLength)
	return response, true
}

func (f *CompressionResponseFilter) compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch f.encoding {
	case EncodingBrotli:
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Stop implements ResponseFilter.
func (f *CompressionResponseFilter) Stop() {}
