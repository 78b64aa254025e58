package track

import (
	"time"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
)

// Kind is the media kind of a track.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

func (k Kind) String() string {
	return string(k)
}

// Info describes one published track: the SFU-assigned track name, the SDP
// media line it maps to and the media kind.
type Info struct {
	TrackName identifiers.TrackName `json:"trackName"`
	Mid       string                `json:"mid"`
	Kind      Kind                  `json:"kind"`
}

// Descriptor is the value object broadcast to other clients after a
// successful publish. It is immutable once sent: a newer Descriptor from the
// same publisher supersedes any in-flight subscription attempt for that
// publisher.
type Descriptor struct {
	// SessionID is the SFU session of the publishing peer.
	SessionID identifiers.SessionID `json:"sessionId"`

	Tracks []Info `json:"tracks"`

	// PublishedAt is used by subscribers to compute the minimum propagation
	// wait before the first pull.
	PublishedAt time.Time `json:"publishedAt"`
}

// WithRefreshedTimestamp returns a copy of the descriptor stamped with now.
// Used when re-broadcasting own tracks to a late-joining participant.
func (d Descriptor) WithRefreshedTimestamp(now time.Time) Descriptor {
	d.PublishedAt = now

	return d
}
