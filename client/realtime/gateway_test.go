package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/realtime"
	"github.com/hijra-meet/hijra-meet/client/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Kind    string          `json:"kind"`
	Topic   string          `json:"topic"`
	Event   string          `json:"event,omitempty"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// newGatewayServer runs a websocket endpoint that records every frame the
// client sends and acknowledges joins with a SUBSCRIBED status frame.
func newGatewayServer(t *testing.T) (url string, auth <-chan string, received <-chan frame) {
	t.Helper()

	authCh := make(chan string, 1)
	receivedCh := make(chan frame, 16)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCh <- r.Header.Get("Authorization")

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := context.Background()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}

			var f frame

			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}

			receivedCh <- f

			if f.Kind == "join" {
				status, _ := json.Marshal(frame{
					Kind:  "status",
					Topic: f.Topic,
					Type:  "SUBSCRIBED",
				})

				if err := conn.Write(ctx, websocket.MessageText, status); err != nil {
					return
				}
			}
		}
	}))

	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http"), authCh, receivedCh
}

func waitFrame(t *testing.T, received <-chan frame) frame {
	t.Helper()

	select {
	case f := <-received:
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame")

		return frame{}
	}
}

func TestGatewayChannel(t *testing.T) {
	defer test.Timeout(t, 10*time.Second)()

	url, auth, received := newGatewayServer(t)

	ch := realtime.NewGatewayChannel(realtime.GatewayParams{
		Log:       test.NewLogger(),
		URL:       url,
		Token:     "token-test",
		MeetingID: "meeting-1",
	})

	ctx := context.Background()

	events, err := ch.Subscribe(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-test", <-auth)

	join := waitFrame(t, received)
	assert.Equal(t, "join", join.Kind)
	assert.Equal(t, "meeting-1", join.Topic)

	select {
	case event := <-events:
		require.NotNil(t, event.System)
		assert.Equal(t, realtime.StatusSubscribed, event.System.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscribed event")
	}

	require.NoError(t, ch.Track(ctx, realtime.PresenceMeta{
		ParticipantID:   "participant-a",
		ParticipantName: "Alice",
		Role:            "host",
	}))

	trackFrame := waitFrame(t, received)
	assert.Equal(t, "track", trackFrame.Kind)

	var meta realtime.PresenceMeta

	require.NoError(t, json.Unmarshal(trackFrame.Payload, &meta))
	assert.Equal(t, identifiers.ParticipantID("participant-a"), meta.ParticipantID)

	require.NoError(t, ch.Send(ctx, "message", []byte(`{"content":"hi"}`)))

	sendFrame := waitFrame(t, received)
	assert.Equal(t, "broadcast", sendFrame.Kind)
	assert.Equal(t, "message", sendFrame.Event)
	assert.JSONEq(t, `{"content":"hi"}`, string(sendFrame.Payload))

	require.NoError(t, ch.Close())

	// The event stream ends once the channel is closed.
	for range events {
	}
}

func TestGatewayChannel_SubscribeOnce(t *testing.T) {
	defer test.Timeout(t, 10*time.Second)()

	url, _, _ := newGatewayServer(t)

	ch := realtime.NewGatewayChannel(realtime.GatewayParams{
		Log:       test.NewLogger(),
		URL:       url,
		MeetingID: "meeting-1",
	})

	events, err := ch.Subscribe(context.Background())
	require.NoError(t, err)

	_, err = ch.Subscribe(context.Background())
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "already subscribed")

	require.NoError(t, ch.Close())

	for range events {
	}
}

func TestGatewayChannel_SubscribeAfterClose(t *testing.T) {
	defer test.Timeout(t, 10*time.Second)()

	ch := realtime.NewGatewayChannel(realtime.GatewayParams{
		Log:       test.NewLogger(),
		URL:       "ws://127.0.0.1:0",
		MeetingID: "meeting-1",
	})

	require.NoError(t, ch.Close())

	_, err := ch.Subscribe(context.Background())
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestGatewayChannel_DialFailure(t *testing.T) {
	defer test.Timeout(t, 10*time.Second)()

	ch := realtime.NewGatewayChannel(realtime.GatewayParams{
		Log:       test.NewLogger(),
		URL:       "ws://127.0.0.1:1",
		MeetingID: "meeting-1",
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := ch.Subscribe(ctx)
	require.NotNil(t, err)
}
