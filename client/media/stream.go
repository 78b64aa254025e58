package media

import (
	"io"
	"sync"

	"github.com/hijra-meet/hijra-meet/client/multierr"
	"github.com/hijra-meet/hijra-meet/client/track"
	"github.com/pion/webrtc/v4"
)

// EnabledHandler is notified when a track kind is enabled or disabled.
type EnabledHandler func(kind track.Kind, enabled bool)

// Stream holds the local capture tracks together with per-kind enabled
// flags. It performs no negotiation itself: the peer session manager
// observes enabled changes and pauses or resumes the matching senders.
type Stream struct {
	mu        sync.Mutex
	tracks    []webrtc.TrackLocal
	enabled   map[track.Kind]bool
	observers []EnabledHandler
}

// NewStream wraps the tracks into a Stream with all kinds enabled.
func NewStream(tracks []webrtc.TrackLocal) *Stream {
	enabled := map[track.Kind]bool{}

	for _, t := range tracks {
		enabled[KindOf(t)] = true
	}

	return &Stream{
		tracks:  tracks,
		enabled: enabled,
	}
}

// Tracks returns all tracks of the stream.
func (s *Stream) Tracks() []webrtc.TrackLocal {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]webrtc.TrackLocal, len(s.tracks))
	copy(ret, s.tracks)

	return ret
}

// TrackEnabled reports whether the kind is currently enabled.
func (s *Stream) TrackEnabled(kind track.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enabled[kind]
}

// SetTrackEnabled flips the enabled flag for kind and notifies observers.
// Setting the current value again is a no-op, so duplicate control message
// deliveries cannot toggle state back.
func (s *Stream) SetTrackEnabled(kind track.Kind, enabled bool) {
	s.mu.Lock()

	if s.enabled[kind] == enabled {
		s.mu.Unlock()

		return
	}

	s.enabled[kind] = enabled
	observers := make([]EnabledHandler, len(s.observers))
	copy(observers, s.observers)

	s.mu.Unlock()

	for _, observer := range observers {
		observer(kind, enabled)
	}
}

// OnEnabledChange registers an observer. All registered observers are
// invoked on every change.
func (s *Stream) OnEnabledChange(h EnabledHandler) {
	s.mu.Lock()
	s.observers = append(s.observers, h)
	s.mu.Unlock()
}

// Close stops all tracks and releases the hardware.
func (s *Stream) Close() error {
	s.mu.Lock()
	tracks := s.tracks
	s.tracks = nil
	s.mu.Unlock()

	errs := multierr.New()

	for _, t := range tracks {
		if closer, ok := t.(io.Closer); ok {
			errs.Add(closer.Close())
		}
	}

	return errs.Err()
}

// KindOf maps a local track to its media kind.
func KindOf(t webrtc.TrackLocal) track.Kind {
	if t.Kind() == webrtc.RTPCodecTypeVideo {
		return track.KindVideo
	}

	return track.KindAudio
}
