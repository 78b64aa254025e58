// Package realtime defines the channel abstraction the coordinator uses
// for presence and broadcast messaging, together with a websocket gateway
// implementation.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
)

// SystemStatus describes channel lifecycle transitions as reported by the
// gateway.
type SystemStatus string

const (
	StatusSubscribed   SystemStatus = "SUBSCRIBED"
	StatusChannelError SystemStatus = "CHANNEL_ERROR"
	StatusTimedOut     SystemStatus = "TIMED_OUT"
	StatusClosed       SystemStatus = "CLOSED"
)

// PresenceMeta is the payload a participant tracks on the presence channel.
type PresenceMeta struct {
	ParticipantID   identifiers.ParticipantID `json:"participantId"`
	ParticipantName string                    `json:"participantName"`
	Role            string                    `json:"role"`
	OnlineAt        string                    `json:"online_at"`
}

// PresenceEventType distinguishes joins, leaves and full state syncs.
type PresenceEventType string

const (
	PresenceJoin  PresenceEventType = "join"
	PresenceLeave PresenceEventType = "leave"
	PresenceSync  PresenceEventType = "sync"
)

// SystemEvent reports a channel status change.
type SystemEvent struct {
	Status SystemStatus
	Err    error
}

// PresenceEvent reports presence changes. Joins and leaves carry the metas
// that changed, syncs carry the full presence state.
type PresenceEvent struct {
	Type  PresenceEventType
	Metas []PresenceMeta

	// State is only set for sync events.
	State map[identifiers.ParticipantID][]PresenceMeta
}

// BroadcastEvent is an application message sent on the channel.
type BroadcastEvent struct {
	Event   string
	Payload json.RawMessage
}

// Event is a union of the three event categories. Exactly one field is
// non-nil.
type Event struct {
	System    *SystemEvent
	Presence  *PresenceEvent
	Broadcast *BroadcastEvent
}

// Channel is one subscription to a meeting's presence and broadcast
// topic.
//
// The event channel returned by Subscribe is closed when the underlying
// transport fails or the channel is closed. Reconnecting means creating a
// whole new Channel: implementations do not reconnect internally.
type Channel interface {
	// Subscribe connects and returns the event stream. It can only be
	// called once per channel.
	Subscribe(ctx context.Context) (<-chan Event, error)

	// Track announces the local participant's presence meta.
	Track(ctx context.Context, meta PresenceMeta) error

	// Send broadcasts an application event to all subscribers.
	Send(ctx context.Context, event string, payload []byte) error

	// Close terminates the subscription.
	Close() error
}
