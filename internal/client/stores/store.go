package stores

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/kumo/internal/client/notifier"
	"github.com/dmitrijs2005/kumo/internal/common"
	"github.com/dmitrijs2005/kumo/internal/logging"
)

// Result is the outcome of a store action.
type Result struct {
	Success bool
	Error   string
}

func ok() Result { return Result{Success: true} }

func failed(err error) Result { return Result{Error: err.Error()} }

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return errors.New(r.Error)
}

// Sink receives webhook notifications. *notifier.Dispatcher implements it.
type Sink interface {
	Dispatch(ep notifier.Endpoint, p notifier.Payload)
}

type discardSink struct{}

func (discardSink) Dispatch(notifier.Endpoint, notifier.Payload) {}

// Option customizes a store.
type Option func(*base)

// WithLogger sets the logger; the default discards.
func WithLogger(l logging.Logger) Option {
	return func(b *base) { b.log = l }
}

// WithClock sets the time source used for timestamps and "today".
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithLocation sets the timezone that defines a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(b *base) { b.loc = loc }
}

// WithSink sets where webhook notifications go; the default drops them.
func WithSink(s Sink) Option {
	return func(b *base) { b.sink = s }
}

// base is embedded by every store.
type base struct {
	log  logging.Logger
	now  func() time.Time
	loc  *time.Location
	sink Sink

	serial sync.Mutex // one action at a time
	closed atomic.Bool
}

func newBase(name string, opts []Option) base {
	b := base{log: logging.Discard(), now: time.Now, loc: time.Local, sink: discardSink{}}
	for _, o := range opts {
		o(&b)
	}
	if b.sink == nil {
		b.sink = discardSink{}
	}
	b.log = b.log.With("store", name)
	return b
}

// acquire takes the writer lock, failing once the store is closed.
func (b *base) acquire() (release func(), err error) {
	if b.closed.Load() {
		return nil, common.ErrStoreClosed
	}
	b.serial.Lock()
	if b.closed.Load() {
		b.serial.Unlock()
		return nil, common.ErrStoreClosed
	}
	return b.serial.Unlock, nil
}

func (b *base) close() bool {
	return b.closed.CompareAndSwap(false, true)
}

// cell holds observable state of type T.
type cell[T any] struct {
	mu    sync.RWMutex
	v     T
	ver   uint64
	clone func(T) T

	obsMu    sync.Mutex
	next     int
	obs      map[int]func(T)
	sent     uint64
	draining bool
}

func newCell[T any](v T, clone func(T) T) *cell[T] {
	return &cell[T]{v: v, clone: clone, obs: make(map[int]func(T))}
}

func (c *cell[T]) get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clone(c.v)
}

// update applies fn under the state lock and then notifies observers.
// One goroutine at a time delivers, always the newest state, so observers
// never see a state older than one they already received.
func (c *cell[T]) update(fn func(*T)) {
	c.mu.Lock()
	fn(&c.v)
	c.ver++
	c.mu.Unlock()

	c.obsMu.Lock()
	if c.draining {
		c.obsMu.Unlock()
		return
	}
	c.draining = true
	c.obsMu.Unlock()

	c.drain()
}

func (c *cell[T]) drain() {
	done := false
	defer func() {
		// An observer panicked; let the next update deliver.
		if !done {
			c.obsMu.Lock()
			c.draining = false
			c.obsMu.Unlock()
		}
	}()
	for {
		c.obsMu.Lock()
		c.mu.RLock()
		snap, ver := c.clone(c.v), c.ver
		c.mu.RUnlock()
		if ver == c.sent {
			c.draining = false
			done = true
			c.obsMu.Unlock()
			return
		}
		c.sent = ver
		ids := make([]int, 0, len(c.obs))
		for id := range c.obs {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		fns := make([]func(T), 0, len(ids))
		for _, id := range ids {
			fns = append(fns, c.obs[id])
		}
		c.obsMu.Unlock()

		for _, f := range fns {
			f(c.clone(snap))
		}
	}
}

func (c *cell[T]) subscribe(fn func(T)) func() {
	c.obsMu.Lock()
	id := c.next
	c.next++
	c.obs[id] = fn
	c.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.obsMu.Lock()
			delete(c.obs, id)
			c.obsMu.Unlock()
		})
	}
}

func (c *cell[T]) clearObservers() {
	c.obsMu.Lock()
	c.obs = make(map[int]func(T))
	c.obsMu.Unlock()
}

// fail logs err, records it via setErr and returns the failed Result.
func (b *base) fail(ctx context.Context, action string, err error, setErr func(msg string)) Result {
	b.log.Warn(ctx, action+" failed", "error", err)
	setErr(err.Error())
	return failed(err)
}
