// Package sfutest provides an in-process fake SFU for tests. Offers from
// real peer connections are answered by a pion peer connection per session,
// so negotiation against the fake behaves like negotiation against the
// hosted SFU, minus the media plane.
package sfutest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/logger"
	"github.com/hijra-meet/hijra-meet/client/sfu"
	"github.com/pion/webrtc/v4"
)

// TracksReply scripts the response for one tracks/new pull request. The
// zero value means "attach the tracks and answer the offer".
type TracksReply struct {
	// Status, when non-zero, makes the server reply with this HTTP status
	// and no body.
	Status int

	// ErrorCodes, when set, produces a response without an answer and with
	// one errored track object per code.
	ErrorCodes []string
}

type Server struct {
	AppID string
	Token string

	ts *httptest.Server

	mu             sync.Mutex
	sessions       map[identifiers.SessionID]*webrtc.PeerConnection
	nextSessionNum int
	createCalls    int
	pullRequests   [][]sfu.TrackObject
	pullOffers     int
	pullScript     []TracksReply
	closedSessions []identifiers.SessionID
}

func NewServer(t testing.TB) *Server {
	s := &Server{
		AppID:    "app-test",
		Token:    "token-test",
		sessions: map[identifiers.SessionID]*webrtc.PeerConnection{},
	}

	s.ts = httptest.NewServer(http.HandlerFunc(s.handle))

	t.Cleanup(s.Close)

	return s
}

func (s *Server) Close() {
	s.ts.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pc := range s.sessions {
		_ = pc.Close()
	}

	s.sessions = map[identifiers.SessionID]*webrtc.PeerConnection{}
}

// ClientParams returns sfu.Params pointing at this fake server.
func (s *Server) ClientParams(log logger.Logger) sfu.Params {
	return sfu.Params{
		Log:     log,
		BaseURL: s.ts.URL,
		AppID:   s.AppID,
		Token:   s.Token,
	}
}

// ScriptPull enqueues scripted replies for upcoming tracks/new pull
// requests. Once the queue is drained the server answers normally again.
func (s *Server) ScriptPull(replies ...TracksReply) {
	s.mu.Lock()
	s.pullScript = append(s.pullScript, replies...)
	s.mu.Unlock()
}

// CreateSessionCalls returns the number of POST /sessions/new requests seen.
func (s *Server) CreateSessionCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createCalls
}

// PullRequests returns the track lists of all pull requests seen.
func (s *Server) PullRequests() [][]sfu.TrackObject {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([][]sfu.TrackObject, len(s.pullRequests))
	copy(ret, s.pullRequests)

	return ret
}

// PullOffers returns the number of pull requests that carried an SDP
// offer. Every pull must, so this normally equals len(PullRequests()).
func (s *Server) PullOffers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pullOffers
}

// ClosedSessions returns the IDs of sessions deleted so far.
func (s *Server) ClosedSessions() []identifiers.SessionID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]identifiers.SessionID, len(s.closedSessions))
	copy(ret, s.closedSessions)

	return ret
}

type tracksRequest struct {
	SessionDescription *sfu.SessionDescription `json:"sessionDescription"`
	Tracks             []sfu.TrackObject       `json:"tracks"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+s.Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)

		return
	}

	prefix := "/" + s.AppID + "/sessions/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)

		return
	}

	rest := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case rest == "new" && r.Method == http.MethodPost:
		s.handleCreateSession(w, r)
	case strings.HasSuffix(rest, "/tracks/new") && r.Method == http.MethodPost:
		id := identifiers.SessionID(strings.TrimSuffix(rest, "/tracks/new"))
		s.handleTracks(w, r, id)
	case strings.HasSuffix(rest, "/renegotiate") && r.Method == http.MethodPut:
		id := identifiers.SessionID(strings.TrimSuffix(rest, "/renegotiate"))
		s.handleRenegotiate(w, r, id)
	case r.Method == http.MethodDelete:
		s.handleCloseSession(w, identifiers.SessionID(rest))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionDescription sfu.SessionDescription `json:"sessionDescription"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if req.SessionDescription.SDP == "" {
		http.Error(w, "session creation requires an sdp offer", http.StatusBadRequest)

		return
	}

	s.mu.Lock()
	s.createCalls++
	s.nextSessionNum++
	sessionID := identifiers.SessionID("session-" + strconv.Itoa(s.nextSessionNum))
	s.mu.Unlock()

	answer, err := s.answer(sessionID, req.SessionDescription)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(w, sfu.NewSessionResponse{
		SessionID:          sessionID,
		SessionDescription: answer,
	})
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request, sessionID identifiers.SessionID) {
	var req tracksRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if len(req.Tracks) > 0 && req.Tracks[0].Location == sfu.TrackLocationRemote {
		s.handlePull(w, req, sessionID)

		return
	}

	s.handlePublish(w, req, sessionID)
}

func (s *Server) handlePublish(w http.ResponseWriter, req tracksRequest, sessionID identifiers.SessionID) {
	var answer *sfu.SessionDescription

	if req.SessionDescription != nil {
		var err error

		answer, err = s.answer(sessionID, *req.SessionDescription)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)

			return
		}
	}

	// The SFU is authoritative for published track names: assign new ones.
	tracks := make([]sfu.TrackObject, len(req.Tracks))
	for i, t := range req.Tracks {
		kind := "audio"
		if strings.Contains(t.TrackName.String(), "video") {
			kind = "video"
		}

		tracks[i] = sfu.TrackObject{
			TrackName: "cf-" + t.TrackName,
			Mid:       t.Mid,
			Kind:      kind,
		}
	}

	writeJSON(w, sfu.TracksResponse{
		SessionDescription: answer,
		Tracks:             tracks,
	})
}

func (s *Server) handlePull(w http.ResponseWriter, req tracksRequest, sessionID identifiers.SessionID) {
	s.mu.Lock()
	s.pullRequests = append(s.pullRequests, req.Tracks)

	if req.SessionDescription != nil && req.SessionDescription.SDP != "" {
		s.pullOffers++
	}

	var reply *TracksReply
	if len(s.pullScript) > 0 {
		reply = &s.pullScript[0]
		s.pullScript = s.pullScript[1:]
	}
	s.mu.Unlock()

	if req.SessionDescription == nil || req.SessionDescription.SDP == "" {
		http.Error(w, "pull requires an sdp offer", http.StatusBadRequest)

		return
	}

	if reply != nil {
		switch {
		case reply.Status != 0:
			http.Error(w, "scripted failure", reply.Status)

			return
		case len(reply.ErrorCodes) > 0:
			tracks := make([]sfu.TrackObject, len(reply.ErrorCodes))
			for i, code := range reply.ErrorCodes {
				tracks[i] = sfu.TrackObject{
					TrackName:        trackNameAt(req.Tracks, i),
					ErrorCode:        code,
					ErrorDescription: "scripted track error",
				}
			}

			writeJSON(w, sfu.TracksResponse{Tracks: tracks})

			return
		}
	}

	answer, err := s.answer(sessionID, *req.SessionDescription)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	tracks := make([]sfu.TrackObject, len(req.Tracks))
	for i, t := range req.Tracks {
		tracks[i] = sfu.TrackObject{TrackName: t.TrackName, Mid: "m" + strconv.Itoa(i)}
	}

	writeJSON(w, sfu.TracksResponse{
		SessionDescription: answer,
		Tracks:             tracks,
	})
}

func (s *Server) handleRenegotiate(w http.ResponseWriter, r *http.Request, sessionID identifiers.SessionID) {
	var req struct {
		SessionDescription sfu.SessionDescription `json:"sessionDescription"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	answer, err := s.answer(sessionID, req.SessionDescription)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(w, sfu.RenegotiateResponse{SessionDescription: answer})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, sessionID identifiers.SessionID) {
	s.mu.Lock()
	s.closedSessions = append(s.closedSessions, sessionID)
	pc, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		_ = pc.Close()
	}

	w.WriteHeader(http.StatusOK)
}

// answer negotiates the offer on the session's answering peer connection.
func (s *Server) answer(sessionID identifiers.SessionID, offer sfu.SessionDescription) (*sfu.SessionDescription, error) {
	s.mu.Lock()

	pc, ok := s.sessions[sessionID]
	if !ok {
		var err error

		pc, err = webrtc.NewPeerConnection(webrtc.Configuration{})
		if err != nil {
			s.mu.Unlock()

			return nil, err
		}

		s.sessions[sessionID] = pc
	}
	s.mu.Unlock()

	err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.SDP,
	})
	if err != nil {
		return nil, err
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}

	return &sfu.SessionDescription{
		Type: "answer",
		SDP:  pc.LocalDescription().SDP,
	}, nil
}

func trackNameAt(tracks []sfu.TrackObject, i int) identifiers.TrackName {
	if i < len(tracks) {
		return tracks[i].TrackName
	}

	return ""
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
