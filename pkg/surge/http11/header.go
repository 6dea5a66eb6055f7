package http11

import "strings"

// Header is a single HTTP header field.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered collection of header fields.
// Order is preserved because the serialized response must reproduce it.
// Lookup is case-insensitive per RFC 7230.
type Headers []Header

// Of returns the value of the named header and whether it is present.
// Name comparison is case-insensitive. The first match wins.
func (h Headers) Of(name string) (string, bool) {
	for i := range h {
		if strings.EqualFold(h[i].Name, name) {
			return h[i].Value, true
		}
	}
	return "", false
}

// ValueOr returns the value of the named header, or the given default when
// the header is absent.
func (h Headers) ValueOr(name, defaultValue string) string {
	if v, ok := h.Of(name); ok {
		return v
	}
	return defaultValue
}

// Add appends a header field, preserving any existing field of the same name.
func (h Headers) Add(name, value string) Headers {
	return append(h, Header{Name: name, Value: value})
}

// Set replaces the first field with the given name, or appends when absent.
func (h Headers) Set(name, value string) Headers {
	for i := range h {
		if strings.EqualFold(h[i].Name, name) {
			h[i].Value = value
			return h
		}
	}
	return append(h, Header{Name: name, Value: value})
}

// Remove deletes every field with the given name.
func (h Headers) Remove(name string) Headers {
	out := h[:0]
	for i := range h {
		if !strings.EqualFold(h[i].Name, name) {
			out = append(out, h[i])
		}
	}
	return out
}

// Clone returns an independent copy of the collection.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}
