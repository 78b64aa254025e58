package sfu

import (
	"fmt"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
)

// SessionDescription represents an SDP offer or answer.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// TrackLocation says whether a track object refers to a track published on
// this session or pulled from a remote session.
type TrackLocation string

const (
	TrackLocationLocal  TrackLocation = "local"
	TrackLocationRemote TrackLocation = "remote"
)

// TrackObject represents one media track in a tracks request or response.
type TrackObject struct {
	Location  TrackLocation         `json:"location,omitempty"`
	Mid       string                `json:"mid,omitempty"`
	SessionID identifiers.SessionID `json:"sessionId,omitempty"`
	TrackName identifiers.TrackName `json:"trackName,omitempty"`
	Kind      string                `json:"kind,omitempty"`

	// ErrorCode and ErrorDescription are only set in responses, per track,
	// when the SFU could not satisfy that track.
	ErrorCode        string `json:"errorCode,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
}

// Err returns true when the track object carries a per-track error.
func (t TrackObject) Err() bool {
	return t.ErrorCode != ""
}

// TrackError is the typed form of a per-track failure in a tracks
// response.
type TrackError struct {
	TrackName   identifiers.TrackName
	Code        string
	Description string
}

func (e *TrackError) Error() string {
	return fmt.Sprintf("track %s: %s: %s", e.TrackName, e.Code, e.Description)
}

type newSessionRequest struct {
	SessionDescription SessionDescription `json:"sessionDescription"`
}

// NewSessionResponse is returned when creating a new session: the ID and
// the answer to the offer the request carried.
type NewSessionResponse struct {
	SessionID          identifiers.SessionID `json:"sessionId"`
	SessionDescription *SessionDescription   `json:"sessionDescription,omitempty"`
}

type tracksRequest struct {
	SessionDescription *SessionDescription `json:"sessionDescription,omitempty"`
	Tracks             []TrackObject       `json:"tracks"`
}

// TracksResponse is returned when publishing or pulling tracks. A response
// may carry per-track error codes instead of an answer when the request
// partially or fully failed.
type TracksResponse struct {
	SessionDescription *SessionDescription `json:"sessionDescription,omitempty"`
	Tracks             []TrackObject       `json:"tracks,omitempty"`
}

type renegotiateRequest struct {
	SessionDescription SessionDescription `json:"sessionDescription"`
}

// RenegotiateResponse is returned after renegotiation.
type RenegotiateResponse struct {
	SessionDescription *SessionDescription `json:"sessionDescription,omitempty"`
}
