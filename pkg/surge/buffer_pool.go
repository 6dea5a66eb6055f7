// Package surge implements an embeddable, actor-style HTTP/1.1
// request/response engine: incremental request framing over fragmented reads,
// a registry of connections awaiting missing body content, round-robin
// dispatch to a fixed worker pool, and bounded-buffer response assembly with
// per-connection keep-alive decisions.
package surge

import (
	"sync/atomic"
)

// ConsumerBuffer is a leased, fixed-capacity byte buffer used to carry inbound
// reads into the engine and serialized responses back out to the transport.
//
// Lease contract: the acquirer (or whoever it hands the buffer to) must call
// Release exactly once. A pooled buffer returns to its pool; a one-off buffer
// is dropped for the collector. Double releases are counted, not honored.
type ConsumerBuffer struct {
	data     []byte
	pool     *ConsumerBufferPool // nil for one-off allocations
	tag      string
	released atomic.Bool
}

// NewOneOffBuffer allocates an unpooled buffer with the given capacity.
// Used when a response exceeds the pooled buffer size or the pool is empty.
func NewOneOffBuffer(capacity int) *ConsumerBuffer {
	return &ConsumerBuffer{data: make([]byte, 0, capacity)}
}

// Write appends p to the buffer, implementing io.Writer.
// Pooled buffers are sized for the configured maximum message, so appends
// within contract never reallocate; one-off buffers may grow.
func (b *ConsumerBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// Fill replaces the buffer content via an append-style serializer, writing
// directly into the leased backing array.
func (b *ConsumerBuffer) Fill(appendTo func(dst []byte) []byte) {
	b.data = appendTo(b.data[:0])
}

// Bytes returns the written content. Valid until Release.
func (b *ConsumerBuffer) Bytes() []byte {
	return b.data
}

// Len returns the number of bytes written.
func (b *ConsumerBuffer) Len() int {
	return len(b.data)
}

// Cap returns the buffer capacity.
func (b *ConsumerBuffer) Cap() int {
	return cap(b.data)
}

// Tag returns the acquisition tag, identifying the acquiring call site for
// leak attribution.
func (b *ConsumerBuffer) Tag() string {
	return b.tag
}

// Release returns the buffer to its pool, or drops it when unpooled.
// Only the first call has any effect.
func (b *ConsumerBuffer) Release() {
	if !b.released.CompareAndSwap(false, true) {
		if b.pool != nil {
			b.pool.doubleReleases.Add(1)
		}
		return
	}
	if b.pool != nil {
		b.pool.release(b)
	}
}

// ConsumerBufferPool is a bounded, lease-based pool of fixed-capacity buffers
// backing response assembly and inbound reads.
//
// Design:
// - Fixed pool size, fixed buffer capacity, both set at construction
// - Acquire never blocks and never fails: exhaustion degrades to a one-off
//   allocation that bypasses the pool on release
// - Atomic metrics throughout; a Prometheus collector is available via
//   NewBufferPoolCollector
//
// Allocation behavior: 0 allocs/op on pool hit, 1 alloc/op on fallback
type ConsumerBufferPool struct {
	free       chan *ConsumerBuffer
	bufferSize int
	poolSize   int

	// Metrics
	acquires       atomic.Uint64 // Total Acquire() calls
	releases       atomic.Uint64 // Buffers returned to the pool
	fallbacks      atomic.Uint64 // One-off allocations on exhaustion
	doubleReleases atomic.Uint64 // Release() calls past the first
}

// NewConsumerBufferPool creates a pool of poolSize buffers, each with a
// capacity of bufferSize bytes, fully pre-allocated.
func NewConsumerBufferPool(poolSize, bufferSize int) *ConsumerBufferPool {
	if poolSize < 1 {
		poolSize = 1
	}
	p := &ConsumerBufferPool{
		free:       make(chan *ConsumerBuffer, poolSize),
		bufferSize: bufferSize,
		poolSize:   poolSize,
	}
	for i := 0; i < poolSize; i++ {
		p.free <- &ConsumerBuffer{data: make([]byte, 0, bufferSize), pool: p}
	}
	return p
}

// Acquire leases a buffer from the pool. The tag names the acquiring call
// site and travels with the lease for leak attribution.
//
// On exhaustion a one-off buffer of the pool's buffer size is allocated
// instead; it is never pooled on release, keeping the pool bounded.
func (p *ConsumerBufferPool) Acquire(tag string) *ConsumerBuffer {
	p.acquires.Add(1)
	select {
	case b := <-p.free:
		b.data = b.data[:0]
		b.tag = tag
		b.released.Store(false)
		return b
	default:
		p.fallbacks.Add(1)
		b := NewOneOffBuffer(p.bufferSize)
		b.tag = tag
		return b
	}
}

// release returns a pooled buffer to the free list.
func (p *ConsumerBufferPool) release(b *ConsumerBuffer) {
	p.releases.Add(1)
	select {
	case p.free <- b:
	default:
		// Free list full; drop the buffer.
	}
}

// BufferSize returns the capacity of each pooled buffer.
func (p *ConsumerBufferPool) BufferSize() int {
	return p.bufferSize
}

// Available returns the number of buffers currently leasable without a
// fallback allocation.
func (p *ConsumerBufferPool) Available() int {
	return len(p.free)
}

// ConsumerBufferPoolMetrics is a point-in-time snapshot of pool statistics.
type ConsumerBufferPoolMetrics struct {
	PoolSize       int
	BufferSize     int
	Available      int
	Acquires       uint64
	Releases       uint64
	Fallbacks      uint64
	DoubleReleases uint64
	HitRate        float64 // percentage of acquires served from the pool
}

// Metrics returns a snapshot of the pool's statistics.
func (p *ConsumerBufferPool) Metrics() ConsumerBufferPoolMetrics {
	acquires := p.acquires.Load()
	fallbacks := p.fallbacks.Load()

	var hitRate float64
	if acquires > 0 {
		hitRate = float64(acquires-fallbacks) / float64(acquires) * 100.0
	}

	return ConsumerBufferPoolMetrics{
		PoolSize:       p.poolSize,
		BufferSize:     p.bufferSize,
		Available:      len(p.free),
		Acquires:       acquires,
		Releases:       p.releases.Load(),
		Fallbacks:      fallbacks,
		DoubleReleases: p.doubleReleases.Load(),
		HitRate:        hitRate,
	}
}
