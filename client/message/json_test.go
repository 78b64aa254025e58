package message_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/message"
	"github.com/hijra-meet/hijra-meet/client/multierr"
	"github.com/hijra-meet/hijra-meet/client/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBroadcast_NewTracks(t *testing.T) {
	descriptor := `{"sessionId":"session-a","tracks":[{"trackName":"tn-1","mid":"0","kind":"video"}],"publishedAt":"2026-08-30T10:00:00Z"}`

	payload := map[string]interface{}{
		"type":     "NEW_TRACKS",
		"content":  descriptor,
		"senderId": "participant-a",
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	msg, err := message.ParseBroadcast(message.EventMessage, data)
	require.NoError(t, err)

	require.Equal(t, message.TypeNewTracks, msg.Type)
	require.NotNil(t, msg.Payload.NewTracks)

	nt := msg.Payload.NewTracks
	assert.Equal(t, identifiers.ParticipantID("participant-a"), nt.SenderID)
	assert.Equal(t, identifiers.SessionID("session-a"), nt.Descriptor.SessionID)
	require.Equal(t, 1, len(nt.Descriptor.Tracks))
	assert.Equal(t, identifiers.TrackName("tn-1"), nt.Descriptor.Tracks[0].TrackName)
	assert.Equal(t, "0", nt.Descriptor.Tracks[0].Mid)
	assert.Equal(t, track.KindVideo, nt.Descriptor.Tracks[0].Kind)
}

func TestParseBroadcast_Emoji(t *testing.T) {
	data := []byte(`{"content":"EMOJI:👏","senderName":"Alice"}`)

	msg, err := message.ParseBroadcast(message.EventMessage, data)
	require.NoError(t, err)

	require.Equal(t, message.TypeEmoji, msg.Type)
	require.NotNil(t, msg.Payload.Emoji)
	assert.Equal(t, "👏", msg.Payload.Emoji.Emoji)
	assert.Equal(t, "Alice", msg.Payload.Emoji.SenderName)
}

func TestParseBroadcast_RoomEnded(t *testing.T) {
	msg, err := message.ParseBroadcast(message.EventMessage, []byte(`{"content":"ROOM_ENDED"}`))
	require.NoError(t, err)
	assert.Equal(t, message.TypeRoomEnded, msg.Type)

	msg, err = message.ParseBroadcast(message.EventMessage, []byte(`{"content":"ROOM_DELETED"}`))
	require.NoError(t, err)
	assert.Equal(t, message.TypeRoomDeleted, msg.Type)
}

func TestParseBroadcast_Control(t *testing.T) {
	msg, err := message.ParseBroadcast(message.EventMessage,
		[]byte(`{"type":"MUTE_REQUEST","targetId":"participant-b"}`))
	require.NoError(t, err)
	require.Equal(t, message.TypeMuteRequest, msg.Type)
	assert.Equal(t, identifiers.ParticipantID("participant-b"), msg.Payload.MuteRequest.TargetID)

	msg, err = message.ParseBroadcast(message.EventMessage,
		[]byte(`{"type":"KICK_REQUEST","targetId":"participant-c"}`))
	require.NoError(t, err)
	require.Equal(t, message.TypeKickRequest, msg.Type)
	assert.Equal(t, identifiers.ParticipantID("participant-c"), msg.Payload.KickRequest.TargetID)
}

func TestParseBroadcast_ChatFallthrough(t *testing.T) {
	data := []byte(`{"content":"hello","senderName":"Bob","senderId":"participant-b"}`)

	msg, err := message.ParseBroadcast(message.EventMessage, data)
	require.NoError(t, err)

	require.Equal(t, message.TypeChat, msg.Type)
	assert.Equal(t, "hello", msg.Payload.Chat.Content)
	assert.Equal(t, "Bob", msg.Payload.Chat.SenderName)
	assert.Equal(t, identifiers.ParticipantID("participant-b"), msg.Payload.Chat.SenderID)
}

func TestParseBroadcast_UnknownEvent(t *testing.T) {
	_, err := message.ParseBroadcast("bogus", []byte(`{}`))
	require.NotNil(t, err)
	assert.True(t, multierr.Is(err, message.ErrUnknownMessageType))
}

func TestEncode_NewTracksRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	descriptor := track.Descriptor{
		SessionID: "session-a",
		Tracks: []track.Info{
			{TrackName: "tn-1", Mid: "0", Kind: track.KindVideo},
			{TrackName: "tn-2", Mid: "1", Kind: track.KindAudio},
		},
		PublishedAt: now,
	}

	event, payload, err := message.NewNewTracks("participant-a", descriptor).Encode(now)
	require.NoError(t, err)
	assert.Equal(t, message.EventMessage, event)

	msg, err := message.ParseBroadcast(event, payload)
	require.NoError(t, err)

	require.Equal(t, message.TypeNewTracks, msg.Type)
	assert.Equal(t, identifiers.ParticipantID("participant-a"), msg.Payload.NewTracks.SenderID)
	assert.Equal(t, descriptor, msg.Payload.NewTracks.Descriptor)
}

func TestEncode_QuestionEvent(t *testing.T) {
	now := time.Now().UTC()

	event, payload, err := message.NewQuestion(message.Question{
		Content:   "why",
		AskerName: "Alice",
		Timestamp: now,
	}).Encode(now)
	require.NoError(t, err)
	assert.Equal(t, message.EventQuestion, event)

	msg, err := message.ParseBroadcast(event, payload)
	require.NoError(t, err)
	require.Equal(t, message.TypeQuestion, msg.Type)
	assert.Equal(t, "why", msg.Payload.Question.Content)
}

func TestDescriptorRefresh(t *testing.T) {
	published := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	now := published.Add(time.Hour)

	d := track.Descriptor{
		SessionID:   "session-a",
		PublishedAt: published,
	}

	refreshed := d.WithRefreshedTimestamp(now)
	assert.Equal(t, now, refreshed.PublishedAt)
	assert.Equal(t, published, d.PublishedAt)
	assert.Equal(t, d.SessionID, refreshed.SessionID)
}
