package realtime

import (
	"encoding/json"
	"testing"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway() *GatewayChannel {
	return NewGatewayChannel(GatewayParams{
		Log:       logger.NewFromEnv("MEET_LOG"),
		URL:       "wss://example.com/socket",
		MeetingID: "meeting-1",
	})
}

func TestParseFrame_Status(t *testing.T) {
	g := newTestGateway()

	event, err := g.parseFrame(wireMessage{
		Kind: wireKindStatus,
		Type: "SUBSCRIBED",
	})
	require.NoError(t, err)

	require.NotNil(t, event.System)
	assert.Equal(t, StatusSubscribed, event.System.Status)
}

func TestParseFrame_PresenceJoin(t *testing.T) {
	g := newTestGateway()

	payload, err := json.Marshal([]PresenceMeta{
		{ParticipantID: "participant-a", ParticipantName: "Alice", Role: "host"},
	})
	require.NoError(t, err)

	event, err := g.parseFrame(wireMessage{
		Kind:    wireKindPresence,
		Type:    "join",
		Payload: payload,
	})
	require.NoError(t, err)

	require.NotNil(t, event.Presence)
	assert.Equal(t, PresenceJoin, event.Presence.Type)
	require.Equal(t, 1, len(event.Presence.Metas))
	assert.Equal(t, identifiers.ParticipantID("participant-a"), event.Presence.Metas[0].ParticipantID)
	assert.Nil(t, event.Presence.State)
}

func TestParseFrame_PresenceSync(t *testing.T) {
	g := newTestGateway()

	payload, err := json.Marshal(map[identifiers.ParticipantID][]PresenceMeta{
		"participant-a": {{ParticipantID: "participant-a", ParticipantName: "Alice"}},
		"participant-b": {{ParticipantID: "participant-b", ParticipantName: "Bob"}},
	})
	require.NoError(t, err)

	event, err := g.parseFrame(wireMessage{
		Kind:    wireKindPresence,
		Type:    "sync",
		Payload: payload,
	})
	require.NoError(t, err)

	require.NotNil(t, event.Presence)
	assert.Equal(t, PresenceSync, event.Presence.Type)
	assert.Equal(t, 2, len(event.Presence.State))
	assert.Empty(t, event.Presence.Metas)
}

func TestParseFrame_Broadcast(t *testing.T) {
	g := newTestGateway()

	event, err := g.parseFrame(wireMessage{
		Kind:    wireKindBroadcast,
		Event:   "message",
		Payload: json.RawMessage(`{"content":"hello"}`),
	})
	require.NoError(t, err)

	require.NotNil(t, event.Broadcast)
	assert.Equal(t, "message", event.Broadcast.Event)
	assert.JSONEq(t, `{"content":"hello"}`, string(event.Broadcast.Payload))
}

func TestParseFrame_UnknownKind(t *testing.T) {
	g := newTestGateway()

	_, err := g.parseFrame(wireMessage{Kind: "bogus"})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "unknown frame kind")
}

func TestParseFrame_MalformedPresence(t *testing.T) {
	g := newTestGateway()

	_, err := g.parseFrame(wireMessage{
		Kind:    wireKindPresence,
		Type:    "join",
		Payload: json.RawMessage(`not json`),
	})
	require.NotNil(t, err)
}
