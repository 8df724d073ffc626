package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/kumo/internal/logging"
)

// Stats counts deliveries made through a Dispatcher.
type Stats struct {
	Sent   int64
	Failed int64
}

// Dispatcher sends notifications in the background so callers never wait
// on the webhook. Safe for concurrent use.
type Dispatcher struct {
	n       Notifier
	log     logging.Logger
	timeout time.Duration

	mu     sync.Mutex // guards closed and wg.Add
	closed bool
	wg     sync.WaitGroup
	sent   atomic.Int64
	failed atomic.Int64
}

// NewDispatcher wraps n. Each background delivery is bounded by timeout.
func NewDispatcher(n Notifier, timeout time.Duration, log logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.Discard()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{n: n, log: log.With("component", "notifier"), timeout: timeout}
}

// Dispatch delivers p on its own goroutine and returns immediately.
// Payloads dispatched after Close are dropped and counted as failed.
func (d *Dispatcher) Dispatch(ep Endpoint, p Payload) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.failed.Add(1)
		d.log.Debug(context.Background(), "dispatcher closed; notification dropped", "type", p.Type())
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.Send(ctx, ep, p)
	}()
}

// Send delivers p synchronously and returns the result.
func (d *Dispatcher) Send(ctx context.Context, ep Endpoint, p Payload) Result {
	res := d.n.Notify(ctx, ep, p)
	if res.Success {
		d.sent.Add(1)
		d.log.Debug(ctx, "notification delivered", "endpoint", ep.String(), "type", p.Type())
	} else {
		d.failed.Add(1)
		d.log.Warn(ctx, "notification failed", "endpoint", ep.String(), "type", p.Type(), "error", res.Error)
	}
	return res
}

// Wait blocks until every dispatched notification has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Close stops accepting new notifications and waits for in-flight ones.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

// Stats returns delivery counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{Sent: d.sent.Load(), Failed: d.failed.Load()}
}
