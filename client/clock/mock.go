package clock

import (
	"sync"
	"time"
)

// Mock exists to allow easier testing of components that use Clock.
type Mock struct {
	mu     sync.Mutex
	time   time.Time
	timers map[*mockTimer]struct{}
}

var _ Clock = &Mock{}

// NewMock returns a mocked instance of a Clock.
func NewMock() *Mock {
	return &Mock{
		timers: map[*mockTimer]struct{}{},
	}
}

// Set adjusts the current time and fires any timers that are due.
func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.time = now

	for t := range m.timers {
		if !t.deadline.After(now) {
			delete(m.timers, t)
			t.send(now)
		}
	}
}

// Add advances the current time by d.
func (m *Mock) Add(d time.Duration) time.Time {
	m.mu.Lock()
	ts := m.time.Add(d)
	m.mu.Unlock()

	m.Set(ts)

	return ts
}

// Pending returns the number of armed timers. Tests use it to wait for
// the code under test to start a sleep before advancing the clock.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.timers)
}

// Now implements the Clock interface.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	ts := m.time
	m.mu.Unlock()

	return ts
}

// Since implements the Clock interface.
func (m *Mock) Since(ts time.Time) time.Duration {
	return m.Now().Sub(ts)
}

// NewTimer implements the Clock interface.
func (m *Mock) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &mockTimer{
		mock:     m,
		c:        make(chan time.Time, 1),
		deadline: m.time.Add(d),
	}

	if d <= 0 {
		t.send(m.time)
	} else {
		m.timers[t] = struct{}{}
	}

	return t
}

type mockTimer struct {
	mock     *Mock
	c        chan time.Time
	deadline time.Time
}

func (t *mockTimer) C() <-chan time.Time {
	return t.c
}

func (t *mockTimer) Stop() bool {
	t.mock.mu.Lock()
	defer t.mock.mu.Unlock()

	_, active := t.mock.timers[t]
	delete(t.mock.timers, t)

	return active
}

func (t *mockTimer) send(ts time.Time) {
	select {
	case t.c <- ts:
	default:
	}
}
