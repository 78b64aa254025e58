package clock

import "time"

// Clock abstracts time so components that schedule backoff delays can be
// tested deterministically.
type Clock interface {
	Now() time.Time
	Since(ts time.Time) time.Duration
	NewTimer(d time.Duration) Timer
}

func New() Clock {
	return clock{}
}

type clock struct{}

func (c clock) Now() time.Time {
	return time.Now()
}

func (c clock) Since(ts time.Time) time.Duration {
	return time.Since(ts)
}

func (c clock) NewTimer(d time.Duration) Timer {
	return &timer{
		timer: time.NewTimer(d),
	}
}

type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type timer struct {
	timer *time.Timer
}

func (t *timer) C() <-chan time.Time {
	return t.timer.C
}

func (t *timer) Stop() bool {
	return t.timer.Stop()
}

var _ Timer = &timer{}
