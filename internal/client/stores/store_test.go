package stores

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCell() *cell[int] {
	return newCell(0, func(v int) int { return v })
}

func TestCell_ConcurrentUpdatesDeliverNewestLast(t *testing.T) {
	c := intCell()

	var (
		mu   sync.Mutex
		seen []int
	)
	c.subscribe(func(v int) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})

	const writers, perWriter = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				c.update(func(v *int) { *v++ })
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, c.get(), seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1], "observer went back from %d to %d", seen[i-1], seen[i])
	}
}

func TestCell_SequentialUpdatesEachNotify(t *testing.T) {
	c := intCell()
	var seen []int
	c.subscribe(func(v int) { seen = append(seen, v) })

	for i := 0; i < 3; i++ {
		c.update(func(v *int) { *v++ })
	}
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestCell_UpdateFromObserverIsDelivered(t *testing.T) {
	c := intCell()
	var seen []int
	c.subscribe(func(v int) {
		seen = append(seen, v)
		if v == 1 {
			c.update(func(v *int) { *v = 10 })
		}
	})

	c.update(func(v *int) { *v = 1 })
	assert.Equal(t, []int{1, 10}, seen)
	assert.Equal(t, 10, c.get())
}

func TestCell_PanickingObserverDoesNotStallDelivery(t *testing.T) {
	c := intCell()
	var seen []int
	c.subscribe(func(v int) {
		if v == 1 {
			panic("boom")
		}
		seen = append(seen, v)
	})

	assert.Panics(t, func() { c.update(func(v *int) { *v = 1 }) })
	c.update(func(v *int) { *v = 2 })
	assert.Equal(t, []int{2}, seen)
}

func TestCell_UnsubscribeStopsDelivery(t *testing.T) {
	c := intCell()
	calls := 0
	cancel := c.subscribe(func(int) { calls++ })

	c.update(func(v *int) { *v = 1 })
	cancel()
	cancel()
	c.update(func(v *int) { *v = 2 })
	assert.Equal(t, 1, calls)
}
