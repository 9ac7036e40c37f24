package generic_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/timee/generic"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTTLCache_ExpiresAfterTTL(t *testing.T) {
	// GIVEN: A 15 minute cache with one entry
	// WHEN: The clock moves past the TTL
	// THEN: The entry is no longer valid

	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	c := generic.NewTTLCache[string, int](15*time.Minute, clock.Now)

	c.Set("room", 3)
	v, ok := c.Get("room")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	clock.Advance(14 * time.Minute)
	assert.True(t, c.IsValid("room"))

	clock.Advance(time.Minute)
	assert.False(t, c.IsValid("room"))
	assert.Equal(t, 1, c.Purge())
}

func TestTTLCache_Delete(t *testing.T) {
	c := generic.NewTTLCache[string, string](time.Hour, nil)
	c.Set("u1", "msg")
	c.Delete("u1")
	_, ok := c.Get("u1")
	assert.False(t, ok)
}

func TestTTLCache_SetIfAbsent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	c := generic.NewTTLCache[string, bool](time.Minute, clock.Now)

	assert.True(t, c.SetIfAbsent("tok", true))
	assert.False(t, c.SetIfAbsent("tok", true))

	// an expired entry no longer blocks
	clock.Advance(time.Minute)
	assert.True(t, c.SetIfAbsent("tok", true))
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := generic.NewKeyedMutex()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("schedule")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, km.Held())
}
