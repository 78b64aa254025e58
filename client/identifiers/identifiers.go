package identifiers

// MeetingID identifies a single meeting (event). All realtime channel and
// peer session state is scoped to one meeting.
type MeetingID string

// SessionID is the opaque peer session identifier assigned by the SFU when a
// session is created. Descriptors broadcast between clients carry the
// publisher's SessionID so others can pull its tracks.
type SessionID string

// ParticipantID is the stable, session-scoped identifier of one meeting
// member as reported by the presence transport.
type ParticipantID string

// TrackName is the SFU-assigned or requested identifier for a published
// media track.
type TrackName string

func (m MeetingID) String() string {
	return string(m)
}

func (s SessionID) String() string {
	return string(s)
}

func (p ParticipantID) String() string {
	return string(p)
}

func (t TrackName) String() string {
	return string(t)
}
