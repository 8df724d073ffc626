package stores

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/kumo/internal/client/gateway/memory"
	"github.com/dmitrijs2005/kumo/internal/client/notifier"
)

// recordingSink captures dispatched payloads.
type recordingSink struct {
	mu  sync.Mutex
	got []notifier.Payload
}

func (r *recordingSink) Dispatch(_ notifier.Endpoint, p notifier.Payload) {
	r.mu.Lock()
	r.got = append(r.got, p)
	r.mu.Unlock()
}

func (r *recordingSink) payloads() []notifier.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifier.Payload(nil), r.got...)
}

// failingNotifier always fails, like an unreachable webhook.
type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, notifier.Endpoint, notifier.Payload) notifier.Result {
	return notifier.Result{Error: "HTTP error! status: 502"}
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time { return func() time.Time { return testNow } }

func newGateway() *memory.Gateway {
	g := memory.New()
	g.SetClock(fixedClock())
	return g
}
