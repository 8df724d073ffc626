package gateway

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/kumo/internal/client/models"
)

// Listeners is a registry of SessionListener callbacks, safe for concurrent
// use. The zero value is ready to use.
type Listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]SessionListener
}

// Add registers fn and returns its removal function. Calling the removal
// function more than once is harmless.
func (l *Listeners) Add(fn SessionListener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]SessionListener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

// Emit calls every registered listener in registration order. The session
// is copied so listeners cannot mutate the caller's value.
func (l *Listeners) Emit(ctx context.Context, ev AuthEvent, s *models.Session) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]SessionListener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		var cp *models.Session
		if s != nil {
			c := *s
			cp = &c
		}
		fn(ctx, ev, cp)
	}
}

// Len returns the number of registered listeners.
func (l *Listeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}
