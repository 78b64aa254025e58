package media_test

import (
	"sync"
	"testing"

	"github.com/hijra-meet/hijra-meet/client/media"
	"github.com/hijra-meet/hijra-meet/client/track"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closableTrack is a TrackLocal that records Close calls, standing in for
// a capture track holding hardware.
type closableTrack struct {
	kind webrtc.RTPCodecType

	mu     sync.Mutex
	closed int
}

func (t *closableTrack) Bind(_ webrtc.TrackLocalContext) (webrtc.RTPCodecParameters, error) {
	return webrtc.RTPCodecParameters{}, nil
}

func (t *closableTrack) Unbind(_ webrtc.TrackLocalContext) error { return nil }
func (t *closableTrack) ID() string                              { return "id" }
func (t *closableTrack) RID() string                             { return "" }
func (t *closableTrack) StreamID() string                        { return "stream" }
func (t *closableTrack) Kind() webrtc.RTPCodecType               { return t.kind }

func (t *closableTrack) Close() error {
	t.mu.Lock()
	t.closed++
	t.mu.Unlock()

	return nil
}

func (t *closableTrack) Closed() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

func newSampleTracks(t *testing.T) (video, audio webrtc.TrackLocal) {
	t.Helper()

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "camera",
	)
	require.NoError(t, err)

	audio, err = webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "microphone",
	)
	require.NoError(t, err)

	return video, audio
}

func TestStream_Tracks(t *testing.T) {
	video, audio := newSampleTracks(t)

	stream := media.NewStream([]webrtc.TrackLocal{video, audio})

	assert.Equal(t, []webrtc.TrackLocal{video, audio}, stream.Tracks())
	assert.True(t, stream.TrackEnabled(track.KindVideo))
	assert.True(t, stream.TrackEnabled(track.KindAudio))
}

func TestStream_SetTrackEnabledIdempotent(t *testing.T) {
	video, audio := newSampleTracks(t)

	stream := media.NewStream([]webrtc.TrackLocal{video, audio})

	var (
		mu    sync.Mutex
		calls []bool
	)

	stream.OnEnabledChange(func(kind track.Kind, enabled bool) {
		assert.Equal(t, track.KindAudio, kind)

		mu.Lock()
		calls = append(calls, enabled)
		mu.Unlock()
	})

	// Re-applying the current state must not notify: a duplicated mute
	// request cannot unmute.
	stream.SetTrackEnabled(track.KindAudio, true)
	assert.Empty(t, calls)

	stream.SetTrackEnabled(track.KindAudio, false)
	stream.SetTrackEnabled(track.KindAudio, false)

	assert.False(t, stream.TrackEnabled(track.KindAudio))
	assert.True(t, stream.TrackEnabled(track.KindVideo))
	assert.Equal(t, []bool{false}, calls)

	stream.SetTrackEnabled(track.KindAudio, true)
	assert.Equal(t, []bool{false, true}, calls)
}

func TestStream_Close(t *testing.T) {
	closable := &closableTrack{kind: webrtc.RTPCodecTypeVideo}
	plain, _ := newSampleTracks(t)

	stream := media.NewStream([]webrtc.TrackLocal{closable, plain})

	require.NoError(t, stream.Close())
	assert.Equal(t, 1, closable.Closed())
	assert.Empty(t, stream.Tracks())

	// Closing again is a no-op.
	require.NoError(t, stream.Close())
	assert.Equal(t, 1, closable.Closed())
}

func TestKindOf(t *testing.T) {
	video, audio := newSampleTracks(t)

	assert.Equal(t, track.KindVideo, media.KindOf(video))
	assert.Equal(t, track.KindAudio, media.KindOf(audio))
}
