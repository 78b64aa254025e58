// Package subscriber pulls remote participants' tracks into the local peer
// session. Freshly published tracks take time to propagate inside the SFU,
// so each subscription waits out the propagation window and then retries
// transient failures on a fixed backoff schedule. A newer descriptor from
// the same publisher supersedes the attempt in flight.
package subscriber

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"

	"github.com/hijra-meet/hijra-meet/client/clock"
	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/logger"
	"github.com/hijra-meet/hijra-meet/client/sfu"
	"github.com/hijra-meet/hijra-meet/client/track"
)

// Negotiator runs the offer/answer exchange that attaches remote tracks
// to the local peer session. Implemented by peer.Manager.
type Negotiator interface {
	Pull(ctx context.Context, remoteTracks []sfu.TrackObject) error
}

// Result reports the outcome of one subscription, after all retries.
type Result struct {
	// SessionID is the publisher's session.
	SessionID identifiers.SessionID

	// Err is nil on success. Superseded attempts produce no Result at all.
	Err error

	// Attempts is the number of pull requests made.
	Attempts int
}

type Params struct {
	Log        logger.Logger
	Negotiator Negotiator
	Clock      clock.Clock

	// Backoff holds the delays between attempts. Attempt n waits
	// Backoff[n] before attempt n+1, the last entry repeats. Nil means
	// the default schedule of 3, 5, 8, 12 and 15 seconds.
	Backoff []time.Duration

	// MaxRetries is the number of retries after the first attempt. Zero
	// means the default of 5.
	MaxRetries int

	// PropagationDelay is the minimum age a descriptor must have before
	// the first pull. Zero means the default of 3 seconds.
	PropagationDelay time.Duration

	// OnResult, when set, is called with the outcome of every
	// non-superseded subscription.
	OnResult func(Result)
}

var defaultBackoff = []time.Duration{
	3 * time.Second,
	5 * time.Second,
	8 * time.Second,
	12 * time.Second,
	15 * time.Second,
}

const (
	defaultMaxRetries       = 5
	defaultPropagationDelay = 3 * time.Second
)

type attempt struct {
	cancel context.CancelFunc
}

type Engine struct {
	params *Params
	log    logger.Logger

	mu       sync.Mutex
	closed   bool
	attempts map[identifiers.SessionID]*attempt

	wg sync.WaitGroup
}

func NewEngine(params Params) *Engine {
	params.Log = params.Log.WithNamespaceAppended("subscriber")

	if params.Backoff == nil {
		params.Backoff = defaultBackoff
	}

	if params.MaxRetries == 0 {
		params.MaxRetries = defaultMaxRetries
	}

	if params.PropagationDelay == 0 {
		params.PropagationDelay = defaultPropagationDelay
	}

	if params.Clock == nil {
		params.Clock = clock.New()
	}

	return &Engine{
		params:   &params,
		log:      params.Log,
		attempts: map[identifiers.SessionID]*attempt{},
	}
}

// Subscribe starts pulling the descriptor's tracks in the background. An
// attempt already in flight for the same publisher is cancelled first:
// the newest descriptor always wins.
func (e *Engine) Subscribe(d track.Descriptor) {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()

		return
	}

	if prev, ok := e.attempts[d.SessionID]; ok {
		prev.cancel()

		prometheusSubscriptionsSuperseded.Inc()

		e.log.Debug("Superseding subscription", logger.Ctx{
			"publisher_session_id": d.SessionID,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &attempt{cancel: cancel}
	e.attempts[d.SessionID] = a

	e.wg.Add(1)
	e.mu.Unlock()

	prometheusSubscriptionsTotal.Inc()

	go e.run(ctx, a, d)
}

// Close cancels all in-flight attempts and waits for them to finish.
func (e *Engine) Close() {
	e.mu.Lock()

	e.closed = true

	for _, a := range e.attempts {
		a.cancel()
	}

	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context, a *attempt, d track.Descriptor) {
	defer e.wg.Done()
	defer a.cancel()

	attempts, err := e.pullWithRetry(ctx, d)

	e.mu.Lock()
	if e.attempts[d.SessionID] == a {
		delete(e.attempts, d.SessionID)
	}
	e.mu.Unlock()

	if ctx.Err() != nil {
		// Superseded or engine closed: the outcome no longer matters.
		return
	}

	ctxLog := logger.Ctx{
		"publisher_session_id": d.SessionID,
		"attempts":             attempts,
	}

	if err != nil {
		prometheusSubscriptionsFailed.Inc()

		e.log.Error("Subscription failed", errors.Trace(err), ctxLog)
	} else {
		prometheusSubscriptionsSucceeded.Inc()

		e.log.Info("Subscription established", ctxLog)
	}

	if e.params.OnResult != nil {
		e.params.OnResult(Result{
			SessionID: d.SessionID,
			Err:       err,
			Attempts:  attempts,
		})
	}
}

func (e *Engine) pullWithRetry(ctx context.Context, d track.Descriptor) (int, error) {
	// Give the SFU time to propagate the publisher's tracks. The wait
	// counts from publication, not from descriptor receipt, so a
	// descriptor that is already old enough is pulled right away.
	wait := e.params.PropagationDelay - e.params.Clock.Since(d.PublishedAt)
	if wait > 0 {
		if err := e.sleep(ctx, wait); err != nil {
			return 0, errors.Trace(err)
		}
	}

	attempts := 0

	for {
		err := e.pullOnce(ctx, d)
		attempts++

		if err == nil {
			return attempts, nil
		}

		if ctx.Err() != nil {
			return attempts, errors.Trace(ctx.Err())
		}

		if !retryable(err) {
			return attempts, errors.Annotate(err, "terminal pull failure")
		}

		retries := attempts - 1
		if retries >= e.params.MaxRetries {
			return attempts, errors.Annotatef(err, "retries exhausted after %d attempts", attempts)
		}

		delay := e.params.Backoff[min(retries, len(e.params.Backoff)-1)]

		prometheusSubscriptionRetries.Inc()

		e.log.Debug("Retrying pull", logger.Ctx{
			"publisher_session_id": d.SessionID,
			"attempt":              attempts,
			"delay":                delay,
			"error":                err,
		})

		if err := e.sleep(ctx, delay); err != nil {
			return attempts, errors.Trace(err)
		}
	}
}

func (e *Engine) pullOnce(ctx context.Context, d track.Descriptor) error {
	reqTracks := make([]sfu.TrackObject, len(d.Tracks))

	for i, t := range d.Tracks {
		reqTracks[i] = sfu.TrackObject{
			Location:  sfu.TrackLocationRemote,
			SessionID: d.SessionID,
			TrackName: t.TrackName,
		}
	}

	return errors.Trace(e.params.Negotiator.Pull(ctx, reqTracks))
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	timer := e.params.Clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}
