package surge

import (
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/watt-toolkit/surge/pkg/surge/http11"
)

func TestRoundRobinSelectionWrapsAround(t *testing.T) {
	handler := HandlerFunc(func(*Context) {})
	pool, err := NewAgentDispatcherPool(3, handler, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAgentDispatcherPool() error: %v", err)
	}
	defer pool.Close()

	rr := pool.(*roundRobinPool)
	var order []int
	for i := 0; i < 7; i++ {
		d := pool.Dispatcher()
		for idx, w := range rr.workers {
			if w == d {
				order = append(order, idx)
			}
		}
	}

	want := []int{0, 1, 2, 0, 1, 2, 0}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("selection order = %v, want %v", order, want)
		}
	}
}

func TestPoolSizeValidation(t *testing.T) {
	handler := HandlerFunc(func(*Context) {})

	if _, err := NewServerDispatcherPool(0, handler, zap.NewNop()); err != ErrInvalidPoolSize {
		t.Errorf("size 0 error = %v, want ErrInvalidPoolSize", err)
	}
	if _, err := NewAgentDispatcherPool(-1, handler, zap.NewNop()); err != ErrInvalidPoolSize {
		t.Errorf("size -1 error = %v, want ErrInvalidPoolSize", err)
	}
	if _, err := NewServerDispatcherPool(1, nil, zap.NewNop()); err != ErrNoHandler {
		t.Errorf("nil handler error = %v, want ErrNoHandler", err)
	}
}

func TestQueueDispatcherRunsHandlerOnWorker(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 2)
	handler := HandlerFunc(func(ctx *Context) {
		mu.Lock()
		seen = append(seen, ctx.Request.URI)
		mu.Unlock()
		done <- struct{}{}
	})

	d := newQueueDispatcher(handler, zap.NewNop())
	d.DispatchFor(&Context{Request: &http11.Request{URI: "/a"}})
	d.DispatchFor(&Context{Request: &http11.Request{URI: "/b"}})
	<-done
	<-done
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "/a" || seen[1] != "/b" {
		t.Errorf("handled order = %v, want [/a /b]", seen)
	}
}

func TestQueueDispatcherStopDrainsQueue(t *testing.T) {
	var mu sync.Mutex
	handled := 0
	handler := HandlerFunc(func(*Context) {
		mu.Lock()
		handled++
		mu.Unlock()
	})

	d := newQueueDispatcher(handler, zap.NewNop())
	for i := 0; i < 10; i++ {
		d.DispatchFor(&Context{})
	}
	d.Stop()
	d.Stop() // idempotent

	mu.Lock()
	defer mu.Unlock()
	if handled != 10 {
		t.Errorf("handled = %d after Stop, want 10", handled)
	}
}

func TestPanickingHandlerAnswersServerError(t *testing.T) {
	handler := HandlerFunc(func(*Context) {
		panic("handler blew up")
	})
	engine := newTestEngine(t, Config{Handler: handler})
	m := newMockContext("c1")

	feed(engine, m, "GET / HTTP/1.1\r\nHost: test\r\n\r\n")
	awaitResponse(t, m)

	w := m.write(0)
	if got := string(w.data[:len("HTTP/1.1 500")]); got != "HTTP/1.1 500" {
		t.Errorf("response status line starts with %q, want HTTP/1.1 500", got)
	}
}
