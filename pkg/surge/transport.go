package surge

import "context"

// RequestResponseContext is the engine's view of one accepted connection: an
// identity, a write-back capability, and a slot for the per-connection parser
// session ("consumer data").
//
// The engine does not own the connection; the transport front end does. All
// consumer-data access is serialized by the engine, so implementations can
// use a plain field.
type RequestResponseContext interface {
	// ID returns the stable identity of the connection.
	ID() string

	// RespondWith writes the serialized response held by buffer to the
	// connection and, when closeAfterResponse is set, closes the connection
	// once the write completes. Ownership of the buffer lease transfers to
	// the transport, which releases it after the write.
	RespondWith(buffer *ConsumerBuffer, closeAfterResponse bool)

	// Close closes the underlying connection.
	Close()

	// ConsumerData returns the attached per-connection state, or nil.
	ConsumerData() any

	// SetConsumerData attaches per-connection state; nil detaches.
	SetConsumerData(data any)

	// HasConsumerData reports whether per-connection state is attached.
	HasConsumerData() bool
}

// ChannelConsumer is the inbound delivery contract a transport front end
// drives. The front end must not deliver events for the same connection
// concurrently; across connections, the engine serializes internally.
type ChannelConsumer interface {
	// Consume delivers one read's worth of bytes for a connection.
	// The buffer lease is released by the consumer before returning.
	Consume(t RequestResponseContext, buffer *ConsumerBuffer)

	// CloseWith announces that a connection is closing. When data carries a
	// final undispatched request it is dispatched before cleanup; the
	// associated parser session and any pending missing-content entry are
	// discarded either way.
	CloseWith(t RequestResponseContext, data any)
}

// Frontend is a pluggable network front end: something that binds a listening
// transport and feeds a ChannelConsumer. The gnet-backed implementation lives
// in package agent; tests drive the engine directly without one.
type Frontend interface {
	// Start binds the listening transport. Bind failures surface here.
	Start() error

	// Stop closes all connections and releases the transport.
	Stop(ctx context.Context) error
}
