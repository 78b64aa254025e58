package test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"testing"
	"time"
)

// Timeout guards a test against deadlocks. When d elapses before the
// returned cancel func runs, all goroutine stacks are dumped and the
// test binary panics.
func Timeout(t *testing.T, d time.Duration) (cancel func()) {
	ctx, cancel := context.WithTimeout(context.Background(), d)

	go func() {
		<-ctx.Done()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			if err := pprof.Lookup("goroutine").WriteTo(os.Stdout, 1); err != nil {
				fmt.Printf("dump goroutines: %v\n", err)
			}

			panic("test timed out: " + t.Name())
		}
	}()

	return cancel
}
