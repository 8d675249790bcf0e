package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// Memory keeps counters in process memory. Counters are lost on restart and
// not shared between instances. A janitor goroutine drops expired buckets
// until Close is called.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// DefaultSweepInterval is how often expired buckets are removed.
const DefaultSweepInterval = time.Minute

// NewMemory creates a memory backend sweeping every interval. A zero or
// negative interval disables the janitor.
func NewMemory(interval time.Duration) *Memory {
	m := &Memory{
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if interval > 0 {
		go m.janitor(interval)
	} else {
		close(m.done)
	}
	return m
}

var _ Backend = (*Memory)(nil)

func (m *Memory) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		m.buckets[key] = b
	}
	b.count++
	return b.count, b.resetAt, nil
}

func (m *Memory) Decrement(ctx context.Context, key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		return nil
	}
	if b.count > 0 {
		b.count--
	}
	return nil
}

// Sweep removes buckets whose window ended before now.
func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, b := range m.buckets {
		if !now.Before(b.resetAt) {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live buckets.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// Close stops the janitor and waits for it to exit.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
	return nil
}

func (m *Memory) janitor(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}
