package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/juju/errors"
	"nhooyr.io/websocket"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/logger"
)

// Gateway wire frames. Every frame carries the meeting topic; the kind
// discriminates joins, presence tracking, broadcasts, presence updates and
// status changes.
type wireMessage struct {
	Kind    string          `json:"kind"`
	Topic   string          `json:"topic"`
	Event   string          `json:"event,omitempty"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	wireKindJoin      = "join"
	wireKindTrack     = "track"
	wireKindBroadcast = "broadcast"
	wireKindPresence  = "presence"
	wireKindStatus    = "status"
)

const (
	defaultHeartbeatInterval = 25 * time.Second
	writeTimeout             = 5 * time.Second
)

type GatewayParams struct {
	Log logger.Logger

	// URL is the websocket endpoint of the realtime gateway.
	URL   string
	Token string

	MeetingID identifiers.MeetingID

	// HeartbeatInterval between pings. Zero means 25 seconds.
	HeartbeatInterval time.Duration
}

// GatewayChannel is a Channel over a websocket connection to the realtime
// gateway. It never reconnects: a transport failure surfaces as a
// CHANNEL_ERROR event followed by the event stream closing, and the owner
// decides whether to build a new channel.
type GatewayChannel struct {
	params *GatewayParams
	log    logger.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	cancel     context.CancelFunc
	subscribed bool
	closed     bool
}

var _ Channel = &GatewayChannel{}

func NewGatewayChannel(params GatewayParams) *GatewayChannel {
	params.Log = params.Log.WithNamespaceAppended("realtime")

	if params.HeartbeatInterval == 0 {
		params.HeartbeatInterval = defaultHeartbeatInterval
	}

	return &GatewayChannel{
		params: &params,
		log:    params.Log,
	}
}

func (g *GatewayChannel) Subscribe(ctx context.Context) (<-chan Event, error) {
	g.mu.Lock()

	if g.closed {
		g.mu.Unlock()

		return nil, errors.New("channel closed")
	}

	if g.subscribed {
		g.mu.Unlock()

		return nil, errors.New("already subscribed")
	}

	g.subscribed = true
	g.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+g.params.Token)

	conn, _, err := websocket.Dial(ctx, g.params.URL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, errors.Annotate(err, "dial gateway")
	}

	runCtx, cancel := context.WithCancel(context.Background())

	g.mu.Lock()
	g.conn = conn
	g.cancel = cancel
	g.mu.Unlock()

	if err := g.write(ctx, wireMessage{
		Kind:  wireKindJoin,
		Topic: g.params.MeetingID.String(),
	}); err != nil {
		cancel()
		_ = conn.Close(websocket.StatusInternalError, "join failed")

		return nil, errors.Annotate(err, "join topic")
	}

	events := make(chan Event)

	go g.readLoop(runCtx, conn, events)
	go g.heartbeat(runCtx, conn)

	g.log.Info("Subscribed", logger.Ctx{
		"meeting_id": g.params.MeetingID,
	})

	return events, nil
}

func (g *GatewayChannel) Track(ctx context.Context, meta PresenceMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return errors.Annotate(err, "marshal presence meta")
	}

	return errors.Trace(g.write(ctx, wireMessage{
		Kind:    wireKindTrack,
		Topic:   g.params.MeetingID.String(),
		Payload: payload,
	}))
}

func (g *GatewayChannel) Send(ctx context.Context, event string, payload []byte) error {
	return errors.Trace(g.write(ctx, wireMessage{
		Kind:    wireKindBroadcast,
		Topic:   g.params.MeetingID.String(),
		Event:   event,
		Payload: payload,
	}))
}

func (g *GatewayChannel) Close() error {
	g.mu.Lock()

	if g.closed {
		g.mu.Unlock()

		return nil
	}

	g.closed = true
	conn := g.conn
	cancel := g.cancel

	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if conn != nil {
		return errors.Trace(conn.Close(websocket.StatusNormalClosure, ""))
	}

	return nil
}

func (g *GatewayChannel) write(ctx context.Context, msg wireMessage) error {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()

	if conn == nil {
		return errors.New("not subscribed")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Annotate(err, "marshal frame")
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return errors.Trace(conn.Write(ctx, websocket.MessageText, data))
}

func (g *GatewayChannel) readLoop(ctx context.Context, conn *websocket.Conn, events chan<- Event) {
	defer close(events)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			g.mu.Lock()
			closed := g.closed
			g.mu.Unlock()

			status := StatusChannelError
			if closed || ctx.Err() != nil {
				status = StatusClosed
			}

			g.emit(ctx, events, Event{System: &SystemEvent{
				Status: status,
				Err:    err,
			}})

			return
		}

		var msg wireMessage

		if err := json.Unmarshal(data, &msg); err != nil {
			g.log.Warn("Malformed frame", logger.Ctx{
				"error": err,
			})

			continue
		}

		event, err := g.parseFrame(msg)
		if err != nil {
			g.log.Warn("Unhandled frame", logger.Ctx{
				"kind":  msg.Kind,
				"error": err,
			})

			continue
		}

		if !g.emit(ctx, events, event) {
			return
		}
	}
}

func (g *GatewayChannel) parseFrame(msg wireMessage) (Event, error) {
	switch msg.Kind {
	case wireKindStatus:
		return Event{System: &SystemEvent{
			Status: SystemStatus(msg.Type),
		}}, nil
	case wireKindPresence:
		presence := PresenceEvent{
			Type: PresenceEventType(msg.Type),
		}

		if presence.Type == PresenceSync {
			if err := json.Unmarshal(msg.Payload, &presence.State); err != nil {
				return Event{}, errors.Annotate(err, "presence state")
			}
		} else if err := json.Unmarshal(msg.Payload, &presence.Metas); err != nil {
			return Event{}, errors.Annotate(err, "presence metas")
		}

		return Event{Presence: &presence}, nil
	case wireKindBroadcast:
		return Event{Broadcast: &BroadcastEvent{
			Event:   msg.Event,
			Payload: msg.Payload,
		}}, nil
	}

	return Event{}, errors.Errorf("unknown frame kind: %s", msg.Kind)
}

func (g *GatewayChannel) emit(ctx context.Context, events chan<- Event, event Event) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (g *GatewayChannel) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(g.params.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				g.log.Warn("Heartbeat failed", logger.Ctx{
					"error": err,
				})

				return
			}
		}
	}
}
