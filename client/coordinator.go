// Package client ties a meeting together: it keeps the roster in sync
// with presence, routes broadcast messages, announces published tracks and
// reacts to meeting control messages. The heavy lifting is delegated to
// the peer, subscriber and realtime packages.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"

	"github.com/hijra-meet/hijra-meet/client/clock"
	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/logger"
	"github.com/hijra-meet/hijra-meet/client/message"
	"github.com/hijra-meet/hijra-meet/client/realtime"
	"github.com/hijra-meet/hijra-meet/client/track"
)

var (
	// ErrKicked is returned from Run when the host removed this
	// participant from the meeting.
	ErrKicked = errors.New("kicked from meeting")
	// ErrNotHost is returned from host-only operations.
	ErrNotHost = errors.New("operation requires host role")
	// ErrNotConnected is returned from send operations while the channel
	// is down.
	ErrNotConnected = errors.New("realtime channel not connected")
)

// errMeetingEnded ends the Run loop gracefully.
var errMeetingEnded = errors.New("meeting ended")

// PeerSession is the subset of the peer manager the coordinator needs.
type PeerSession interface {
	SessionID() identifiers.SessionID
	Close(ctx context.Context) error
}

// TrackSubscriber starts background subscriptions for remote descriptors.
// Implemented by subscriber.Engine.
type TrackSubscriber interface {
	Subscribe(d track.Descriptor)
	Close()
}

// MediaControls toggles local capture kinds. Implemented by media.Stream.
type MediaControls interface {
	SetTrackEnabled(kind track.Kind, enabled bool)
}

type CoordinatorParams struct {
	Log   logger.Logger
	Clock clock.Clock

	MeetingID       identifiers.MeetingID
	ParticipantID   identifiers.ParticipantID
	ParticipantName string
	Role            Role

	// NewChannel builds a fresh channel for every connection attempt.
	NewChannel func() realtime.Channel

	Peer       PeerSession
	Subscriber TrackSubscriber

	// Media may be nil for receive-only participants.
	Media MediaControls

	// ChannelRetryBase is the first reconnect delay base. Zero means one
	// second.
	ChannelRetryBase time.Duration

	// MaxChannelRetries bounds consecutive reconnect attempts. Zero means
	// three.
	MaxChannelRetries int

	// OnBroadcast, when set, receives every decoded broadcast after the
	// coordinator handled it.
	OnBroadcast func(message.Message)
}

const (
	defaultChannelRetryBase  = time.Second
	defaultMaxChannelRetries = 3
)

// Coordinator runs the meeting event loop.
type Coordinator struct {
	params *CoordinatorParams
	log    logger.Logger
	roster *Roster

	mu         sync.Mutex
	channel    realtime.Channel
	descriptor *track.Descriptor
	ended      bool
}

func NewCoordinator(params CoordinatorParams) *Coordinator {
	params.Log = params.Log.WithNamespaceAppended("coordinator").WithCtx(logger.Ctx{
		"meeting_id":     params.MeetingID,
		"participant_id": params.ParticipantID,
	})

	if params.Clock == nil {
		params.Clock = clock.New()
	}

	if params.ChannelRetryBase == 0 {
		params.ChannelRetryBase = defaultChannelRetryBase
	}

	if params.MaxChannelRetries == 0 {
		params.MaxChannelRetries = defaultMaxChannelRetries
	}

	return &Coordinator{
		params: &params,
		log:    params.Log,
		roster: NewRoster(),
	}
}

// Roster returns the live roster.
func (c *Coordinator) Roster() *Roster {
	return c.roster
}

// ChannelRetryDelay returns the delay before reconnect attempt number
// attempt (1-based): base doubled per attempt, capped at five times base.
func ChannelRetryDelay(base time.Duration, attempt int) time.Duration {
	delay := base << attempt

	if limit := 5 * base; delay > limit {
		delay = limit
	}

	return delay
}

// Run connects to the realtime channel and processes events until the
// meeting ends, the participant is kicked or the context is cancelled.
// A successfully subscribed channel resets the reconnect budget; a spent
// budget degrades the session instead of ending it, with the roster
// frozen at its last known state.
func (c *Coordinator) Run(ctx context.Context) error {
	retries := 0

	for {
		subscribed, err := c.runOnce(ctx)

		switch {
		case err == nil || errors.Cause(err) == errMeetingEnded:
			return nil
		case errors.Cause(err) == ErrKicked:
			return errors.Trace(err)
		case ctx.Err() != nil:
			return errors.Trace(ctx.Err())
		}

		if subscribed {
			retries = 0
		}

		if retries >= c.params.MaxChannelRetries {
			// Degraded mode: the roster freezes and no further messages
			// flow, but the media session keeps running untouched.
			c.log.Error("Channel reconnect attempts exhausted, roster is frozen",
				errors.Trace(err), nil)

			<-ctx.Done()

			return errors.Trace(ctx.Err())
		}

		retries++

		delay := ChannelRetryDelay(c.params.ChannelRetryBase, retries)

		prometheusChannelReconnects.Inc()

		c.log.Warn("Channel lost, reconnecting", logger.Ctx{
			"attempt": retries,
			"delay":   delay,
			"error":   err,
		})

		if err := c.sleep(ctx, delay); err != nil {
			return errors.Trace(err)
		}
	}
}

func (c *Coordinator) runOnce(ctx context.Context) (subscribed bool, err error) {
	ch := c.params.NewChannel()

	events, err := ch.Subscribe(ctx)
	if err != nil {
		_ = ch.Close()

		return false, errors.Annotate(err, "subscribe channel")
	}

	c.mu.Lock()
	c.channel = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.channel = nil
		c.mu.Unlock()

		_ = ch.Close()
	}()

	return c.consume(ctx, ch, events)
}

func (c *Coordinator) consume(
	ctx context.Context,
	ch realtime.Channel,
	events <-chan realtime.Event,
) (subscribed bool, err error) {
	for {
		select {
		case <-ctx.Done():
			return subscribed, errors.Trace(ctx.Err())
		case event, ok := <-events:
			if !ok {
				if c.isEnded() {
					return subscribed, nil
				}

				return subscribed, errors.New("event stream closed")
			}

			switch {
			case event.System != nil:
				done, err := c.handleSystem(ctx, ch, event.System)
				if done || err != nil {
					return subscribed, errors.Trace(err)
				}

				if event.System.Status == realtime.StatusSubscribed {
					subscribed = true
				}
			case event.Presence != nil:
				c.handlePresence(ctx, event.Presence)
			case event.Broadcast != nil:
				if err := c.handleBroadcast(ctx, event.Broadcast); err != nil {
					return subscribed, errors.Trace(err)
				}
			}
		}
	}
}

func (c *Coordinator) handleSystem(
	ctx context.Context,
	ch realtime.Channel,
	event *realtime.SystemEvent,
) (done bool, err error) {
	switch event.Status {
	case realtime.StatusSubscribed:
		c.log.Info("Channel subscribed", nil)

		if err := ch.Track(ctx, c.presenceMeta()); err != nil {
			return false, errors.Annotate(err, "track presence")
		}

		// After a reconnect other participants need the descriptor again.
		c.reannounce(ctx)

		return false, nil
	case realtime.StatusClosed:
		if c.isEnded() {
			return true, nil
		}

		return false, errors.New("channel closed")
	default:
		return false, errors.Errorf("channel failure: %s", event.Status)
	}
}

func (c *Coordinator) handlePresence(ctx context.Context, event *realtime.PresenceEvent) {
	switch event.Type {
	case realtime.PresenceJoin:
		for _, meta := range event.Metas {
			// The channel echoes our own presence back. The roster holds
			// remote members only.
			if meta.ParticipantID == c.params.ParticipantID {
				continue
			}

			c.roster.Upsert(meta)

			// A late joiner missed the original announcement.
			c.reannounce(ctx)
		}
	case realtime.PresenceLeave:
		for _, meta := range event.Metas {
			c.roster.Remove(meta.ParticipantID)
		}
	case realtime.PresenceSync:
		state := make(map[identifiers.ParticipantID][]realtime.PresenceMeta, len(event.State))

		for id, metas := range event.State {
			if id == c.params.ParticipantID {
				continue
			}

			state[id] = metas
		}

		c.roster.Sync(state)
	}
}

func (c *Coordinator) handleBroadcast(ctx context.Context, event *realtime.BroadcastEvent) error {
	msg, err := message.ParseBroadcast(event.Event, event.Payload)
	if err != nil {
		c.log.Warn("Undecodable broadcast", logger.Ctx{
			"event": event.Event,
			"error": err,
		})

		return nil
	}

	prometheusBroadcastsReceived.Inc()

	switch msg.Type {
	case message.TypeNewTracks:
		c.handleNewTracks(msg.Payload.NewTracks)
	case message.TypeMuteRequest:
		if msg.Payload.MuteRequest.TargetID == c.params.ParticipantID {
			c.muteSelf()
		}
	case message.TypeKickRequest:
		if msg.Payload.KickRequest.TargetID == c.params.ParticipantID {
			c.log.Info("Kicked by host", nil)
			c.teardown(ctx)

			return errors.Trace(ErrKicked)
		}
	case message.TypeRoomEnded, message.TypeRoomDeleted:
		c.log.Info("Meeting ended", logger.Ctx{
			"reason": msg.Type,
		})
		c.teardown(ctx)

		return errors.Trace(errMeetingEnded)
	case message.TypeHandRaise:
		c.roster.SetHandRaised(msg.Payload.HandRaise.ParticipantID, true)
	case message.TypeHandRaiseResponse:
		c.roster.SetHandRaised(msg.Payload.HandRaiseResponse.ParticipantID, false)
	}

	if c.params.OnBroadcast != nil {
		c.params.OnBroadcast(msg)
	}

	return nil
}

// handleNewTracks hands a remote descriptor to the subscription engine,
// skipping our own announcements: the channel may echo them back and the
// SFU cannot pull a session's tracks into itself.
func (c *Coordinator) handleNewTracks(nt *message.NewTracks) {
	if nt.SenderID == c.params.ParticipantID ||
		nt.Descriptor.SessionID == c.params.Peer.SessionID() {
		c.log.Debug("Ignoring own track announcement", nil)

		return
	}

	c.params.Subscriber.Subscribe(nt.Descriptor)
}

// muteSelf disables the audio kind. Stream enabled flags are idempotent,
// so duplicate mute requests cannot toggle audio back on.
func (c *Coordinator) muteSelf() {
	if c.params.Media == nil {
		return
	}

	c.log.Info("Muted by host", nil)
	c.params.Media.SetTrackEnabled(track.KindAudio, false)
}

// AnnounceTracks broadcasts a descriptor for the published tracks and
// remembers it for re-announcement to late joiners.
func (c *Coordinator) AnnounceTracks(ctx context.Context, infos []track.Info) error {
	if len(infos) == 0 {
		return nil
	}

	descriptor := track.Descriptor{
		SessionID:   c.params.Peer.SessionID(),
		Tracks:      infos,
		PublishedAt: c.params.Clock.Now(),
	}

	c.mu.Lock()
	c.descriptor = &descriptor
	c.mu.Unlock()

	return errors.Trace(c.send(ctx, message.NewNewTracks(c.params.ParticipantID, descriptor)))
}

// reannounce re-broadcasts the stored descriptor with a fresh timestamp so
// receivers apply the full propagation wait again.
func (c *Coordinator) reannounce(ctx context.Context) {
	c.mu.Lock()
	descriptor := c.descriptor
	c.mu.Unlock()

	if descriptor == nil {
		return
	}

	refreshed := descriptor.WithRefreshedTimestamp(c.params.Clock.Now())

	err := c.send(ctx, message.NewNewTracks(c.params.ParticipantID, refreshed))
	if err != nil {
		c.log.Warn("Re-announce tracks", logger.Ctx{
			"error": err,
		})
	}
}

func (c *Coordinator) presenceMeta() realtime.PresenceMeta {
	return realtime.PresenceMeta{
		ParticipantID:   c.params.ParticipantID,
		ParticipantName: c.params.ParticipantName,
		Role:            string(c.params.Role),
		OnlineAt:        c.params.Clock.Now().Format(time.RFC3339),
	}
}

// teardown releases the media session. The realtime channel itself is
// closed by the Run loop.
func (c *Coordinator) teardown(ctx context.Context) {
	c.mu.Lock()

	if c.ended {
		c.mu.Unlock()

		return
	}

	c.ended = true
	c.mu.Unlock()

	c.params.Subscriber.Close()

	if err := c.params.Peer.Close(ctx); err != nil {
		c.log.Warn("Close peer session", logger.Ctx{
			"error": err,
		})
	}
}

func (c *Coordinator) isEnded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ended
}

func (c *Coordinator) send(ctx context.Context, msg message.Message) error {
	event, payload, err := msg.Encode(c.params.Clock.Now())
	if err != nil {
		return errors.Trace(err)
	}

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	if ch == nil {
		return errors.Trace(ErrNotConnected)
	}

	if err := ch.Send(ctx, event, payload); err != nil {
		return errors.Trace(err)
	}

	prometheusBroadcastsSent.Inc()

	return nil
}

func (c *Coordinator) sleep(ctx context.Context, d time.Duration) error {
	timer := c.params.Clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}
