package sfu_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/sfu"
	"github.com/hijra-meet/hijra-meet/client/sfu/sfutest"
	"github.com/hijra-meet/hijra-meet/client/test"
	"github.com/juju/errors"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOffer produces a real SDP offer so requests negotiate against the
// fake server's answering peer connection.
func testOffer(t *testing.T) sfu.SessionDescription {
	t.Helper()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = pc.Close()
	})

	_, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	require.NoError(t, err)

	offer, err := pc.CreateOffer(nil)
	require.NoError(t, err)
	require.NoError(t, pc.SetLocalDescription(offer))

	return sfu.SessionDescription{Type: "offer", SDP: offer.SDP}
}

func TestClient_CreateSession(t *testing.T) {
	defer test.Timeout(t, 5*time.Second)()

	server := sfutest.NewServer(t)
	client := sfu.NewClient(server.ClientParams(test.NewLogger()))

	res, err := client.CreateSession(context.Background(), testOffer(t))
	require.NoError(t, err)
	assert.Equal(t, identifiers.SessionID("session-1"), res.SessionID)
	require.NotNil(t, res.SessionDescription)
	assert.Equal(t, "answer", res.SessionDescription.Type)
	assert.NotEmpty(t, res.SessionDescription.SDP)

	res, err = client.CreateSession(context.Background(), testOffer(t))
	require.NoError(t, err)
	assert.Equal(t, identifiers.SessionID("session-2"), res.SessionID)

	assert.Equal(t, 2, server.CreateSessionCalls())
}

func TestClient_CreateSessionWithoutOffer(t *testing.T) {
	defer test.Timeout(t, 5*time.Second)()

	server := sfutest.NewServer(t)
	client := sfu.NewClient(server.ClientParams(test.NewLogger()))

	_, err := client.CreateSession(context.Background(), sfu.SessionDescription{})
	require.NotNil(t, err)

	var sigErr *sfu.SignalingError

	require.True(t, stderrors.As(errors.Cause(err), &sigErr))
	assert.Equal(t, 400, sigErr.Status)
}

func TestClient_BadToken(t *testing.T) {
	defer test.Timeout(t, 5*time.Second)()

	server := sfutest.NewServer(t)

	params := server.ClientParams(test.NewLogger())
	params.Token = "wrong"
	client := sfu.NewClient(params)

	_, err := client.CreateSession(context.Background(), testOffer(t))
	require.NotNil(t, err)

	var sigErr *sfu.SignalingError

	require.True(t, stderrors.As(errors.Cause(err), &sigErr))
	assert.Equal(t, 401, sigErr.Status)
}

func TestClient_CloseSession(t *testing.T) {
	defer test.Timeout(t, 5*time.Second)()

	server := sfutest.NewServer(t)
	client := sfu.NewClient(server.ClientParams(test.NewLogger()))

	res, err := client.CreateSession(context.Background(), testOffer(t))
	require.NoError(t, err)

	require.NoError(t, client.CloseSession(context.Background(), res.SessionID))
	assert.Equal(t, []identifiers.SessionID{res.SessionID}, server.ClosedSessions())
}

func TestClient_PullTracks(t *testing.T) {
	defer test.Timeout(t, 5*time.Second)()

	server := sfutest.NewServer(t)
	client := sfu.NewClient(server.ClientParams(test.NewLogger()))

	res, err := client.CreateSession(context.Background(), testOffer(t))
	require.NoError(t, err)

	pulled, err := client.PullTracks(context.Background(), res.SessionID, testOffer(t), []sfu.TrackObject{
		{
			Location:  sfu.TrackLocationRemote,
			SessionID: "session-remote",
			TrackName: "tn-1",
		},
	})
	require.NoError(t, err)

	require.NotNil(t, pulled.SessionDescription)
	assert.Equal(t, "answer", pulled.SessionDescription.Type)
	require.Equal(t, 1, len(pulled.Tracks))
	assert.Equal(t, identifiers.TrackName("tn-1"), pulled.Tracks[0].TrackName)
	assert.False(t, pulled.Tracks[0].Err())

	requests := server.PullRequests()
	require.Equal(t, 1, len(requests))
	assert.Equal(t, identifiers.SessionID("session-remote"), requests[0][0].SessionID)
	assert.Equal(t, 1, server.PullOffers())
}

func TestClient_PullTracks_ErrorCodes(t *testing.T) {
	defer test.Timeout(t, 5*time.Second)()

	server := sfutest.NewServer(t)
	client := sfu.NewClient(server.ClientParams(test.NewLogger()))

	res, err := client.CreateSession(context.Background(), testOffer(t))
	require.NoError(t, err)

	server.ScriptPull(sfutest.TracksReply{ErrorCodes: []string{"not_found_track_error"}})

	pulled, err := client.PullTracks(context.Background(), res.SessionID, testOffer(t), []sfu.TrackObject{
		{
			Location:  sfu.TrackLocationRemote,
			SessionID: "session-remote",
			TrackName: "tn-1",
		},
	})
	require.NoError(t, err)

	require.Equal(t, 1, len(pulled.Tracks))
	assert.True(t, pulled.Tracks[0].Err())
	assert.Equal(t, "not_found_track_error", pulled.Tracks[0].ErrorCode)
}

func TestClient_ServerError(t *testing.T) {
	defer test.Timeout(t, 5*time.Second)()

	server := sfutest.NewServer(t)
	client := sfu.NewClient(server.ClientParams(test.NewLogger()))

	res, err := client.CreateSession(context.Background(), testOffer(t))
	require.NoError(t, err)

	server.ScriptPull(sfutest.TracksReply{Status: 500})

	_, err = client.PullTracks(context.Background(), res.SessionID, testOffer(t), []sfu.TrackObject{
		{Location: sfu.TrackLocationRemote, SessionID: "s", TrackName: "tn"},
	})
	require.NotNil(t, err)

	var sigErr *sfu.SignalingError

	require.True(t, stderrors.As(errors.Cause(err), &sigErr))
	assert.Equal(t, 500, sigErr.Status)
}
