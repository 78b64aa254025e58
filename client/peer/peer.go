// Package peer manages the single peer connection a participant keeps with
// the SFU for the lifetime of a meeting: lazy session setup, publishing,
// renegotiation and teardown.
package peer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"golang.org/x/sync/singleflight"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/logger"
	"github.com/hijra-meet/hijra-meet/client/media"
	"github.com/hijra-meet/hijra-meet/client/pionlogger"
	"github.com/hijra-meet/hijra-meet/client/sfu"
	"github.com/hijra-meet/hijra-meet/client/track"
)

var (
	// ErrClosed is returned from all operations after Close.
	ErrClosed = errors.New("peer manager closed")
	// ErrNotReady is returned when an operation needs an established
	// session and there is none.
	ErrNotReady = errors.New("peer session not established")
)

// State describes the connection lifecycle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StatePublishing    State = "publishing"
	StateRenegotiating State = "renegotiating"
	StateFailed        State = "failed"
	StateClosed        State = "closed"
)

// RemoteTrackHandler is invoked for every remote track the SFU starts
// forwarding on the peer connection.
type RemoteTrackHandler func(t *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)

// ICEStateHandler is invoked on every ICE connection state transition.
// Disconnections are surfaced through it and never healed internally:
// recovery is the caller's decision.
type ICEStateHandler func(state webrtc.ICEConnectionState)

type Params struct {
	Log logger.Logger
	SFU *sfu.Client

	ICEServers []webrtc.ICEServer

	// Capturer, when set, registers its codec parameters on the media
	// engine so captured tracks negotiate correctly. When nil the default
	// codecs are registered and the connection is receive only.
	Capturer *media.Capturer
}

type senderEntry struct {
	sender *webrtc.RTPSender
	local  webrtc.TrackLocal
	kind   track.Kind
}

// Manager owns the peer connection and the SFU session on top of it.
//
// Concurrent Initialize calls coalesce into a single session creation. All
// other operations require an established session.
type Manager struct {
	params *Params
	log    logger.Logger

	initGroup singleflight.Group

	mu        sync.Mutex
	state     State
	pc        *webrtc.PeerConnection
	sessionID identifiers.SessionID
	senders   []senderEntry
	published []track.Info

	handlersMu    sync.Mutex
	onRemoteTrack []RemoteTrackHandler
	onICEState    []ICEStateHandler
}

func NewManager(params Params) *Manager {
	params.Log = params.Log.WithNamespaceAppended("peer")

	return &Manager{
		params: &params,
		log:    params.Log,
		state:  StateUninitialized,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// SessionID returns the established session ID, or empty when there is no
// session.
func (m *Manager) SessionID() identifiers.SessionID {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sessionID
}

// PublishedTracks returns the descriptors of the currently published
// tracks, with the names the SFU assigned.
func (m *Manager) PublishedTracks() []track.Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := make([]track.Info, len(m.published))
	copy(ret, m.published)

	return ret
}

// OnRemoteTrack registers a handler for incoming remote tracks.
func (m *Manager) OnRemoteTrack(h RemoteTrackHandler) {
	m.handlersMu.Lock()
	m.onRemoteTrack = append(m.onRemoteTrack, h)
	m.handlersMu.Unlock()
}

// OnICEConnectionStateChange registers a handler for ICE state changes.
func (m *Manager) OnICEConnectionStateChange(h ICEStateHandler) {
	m.handlersMu.Lock()
	m.onICEState = append(m.onICEState, h)
	m.handlersMu.Unlock()
}

// Initialize establishes the peer connection and the SFU session. It is
// safe to call from any number of goroutines: all concurrent callers wait
// for one shared attempt and receive its result. After a failed attempt
// the state is reset so a later call starts over.
//
// The shared attempt runs under the context of the caller that started it.
func (m *Manager) Initialize(ctx context.Context) (identifiers.SessionID, error) {
	m.mu.Lock()

	switch m.state {
	case StateClosed:
		m.mu.Unlock()

		return "", errors.Trace(ErrClosed)
	case StateReady, StatePublishing, StateRenegotiating:
		sessionID := m.sessionID
		m.mu.Unlock()

		return sessionID, nil
	}

	m.mu.Unlock()

	v, err, _ := m.initGroup.Do("initialize", func() (interface{}, error) {
		return m.initialize(ctx)
	})
	if err != nil {
		return "", errors.Trace(err)
	}

	return v.(identifiers.SessionID), nil
}

func (m *Manager) initialize(ctx context.Context) (identifiers.SessionID, error) {
	m.mu.Lock()

	if m.state == StateClosed {
		m.mu.Unlock()

		return "", errors.Trace(ErrClosed)
	}

	// A previous flight may have completed between the fast path check
	// and joining the flight.
	if m.state == StateReady || m.state == StatePublishing ||
		m.state == StateRenegotiating {
		sessionID := m.sessionID
		m.mu.Unlock()

		return sessionID, nil
	}

	// Recovering from a failed negotiation rebuilds the connection from
	// scratch, so the previous one is discarded here.
	prevPC := m.pc
	prevSessionID := m.sessionID
	m.pc = nil
	m.sessionID = ""
	m.senders = nil
	m.published = nil
	m.state = StateInitializing
	m.mu.Unlock()

	if prevPC != nil {
		_ = prevPC.Close()
	}

	if prevSessionID != "" {
		if err := m.params.SFU.CloseSession(ctx, prevSessionID); err != nil {
			m.log.Warn("Close failed session", logger.Ctx{
				"session_id": prevSessionID,
				"error":      err,
			})
		}
	}

	pc, err := m.newPeerConnection()
	if err != nil {
		m.resetToUninitialized()

		return "", errors.Annotate(err, "new peer connection")
	}

	// Session creation negotiates the initial state: one sendrecv
	// transceiver per kind goes into the offer, the SFU answers.
	for _, kind := range []webrtc.RTPCodecType{
		webrtc.RTPCodecTypeVideo,
		webrtc.RTPCodecTypeAudio,
	} {
		_, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendrecv,
		})
		if err != nil {
			_ = pc.Close()
			m.resetToUninitialized()

			return "", errors.Annotate(err, "add transceiver")
		}
	}

	offer, err := m.localOffer(ctx, pc)
	if err != nil {
		_ = pc.Close()
		m.resetToUninitialized()

		return "", errors.Trace(err)
	}

	res, err := m.params.SFU.CreateSession(ctx, offer)
	if err != nil {
		_ = pc.Close()
		m.resetToUninitialized()

		return "", errors.Trace(err)
	}

	if res.SessionDescription != nil {
		if err := acceptRemote(pc, *res.SessionDescription); err != nil {
			_ = pc.Close()
			m.resetToUninitialized()

			return "", errors.Annotate(err, "accept session answer")
		}
	}

	m.mu.Lock()

	if m.state == StateClosed {
		m.mu.Unlock()

		_ = pc.Close()

		return "", errors.Trace(ErrClosed)
	}

	m.pc = pc
	m.sessionID = res.SessionID
	m.state = StateReady
	m.mu.Unlock()

	m.log.Info("Session established", logger.Ctx{
		"session_id": res.SessionID,
	})

	return res.SessionID, nil
}

func (m *Manager) resetToUninitialized() {
	m.mu.Lock()

	if m.state != StateClosed {
		m.state = StateUninitialized
	}

	m.mu.Unlock()
}

func (m *Manager) newPeerConnection() (*webrtc.PeerConnection, error) {
	mediaEngine := &webrtc.MediaEngine{}

	if m.params.Capturer != nil {
		m.params.Capturer.RegisterCodecs(mediaEngine)
	} else if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, errors.Annotate(err, "register codecs")
	}

	interceptorRegistry := &interceptor.Registry{}

	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, errors.Annotate(err, "register interceptors")
	}

	settingEngine := webrtc.SettingEngine{
		LoggerFactory: pionlogger.NewFactory(m.log),
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithSettingEngine(settingEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
	)

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: m.params.ICEServers,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	pc.OnTrack(func(t *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		m.log.Info("Remote track", logger.Ctx{
			"track_id": t.ID(),
			"kind":     t.Kind().String(),
		})

		m.handlersMu.Lock()
		handlers := make([]RemoteTrackHandler, len(m.onRemoteTrack))
		copy(handlers, m.onRemoteTrack)
		m.handlersMu.Unlock()

		for _, h := range handlers {
			h(t, receiver)
		}
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		log := m.log.Info

		if state == webrtc.ICEConnectionStateDisconnected ||
			state == webrtc.ICEConnectionStateFailed {
			log = func(message string, ctx logger.Ctx) {
				m.log.Warn(message, ctx)
			}
		}

		log("ICE connection state changed", logger.Ctx{
			"ice_state": state.String(),
		})

		m.handlersMu.Lock()
		handlers := make([]ICEStateHandler, len(m.onICEState))
		copy(handlers, m.onICEState)
		m.handlersMu.Unlock()

		for _, h := range handlers {
			h(state)
		}
	})

	return pc, nil
}

// Close deletes the SFU session and tears down the peer connection. The
// session deletion is best effort: a failure is logged and does not
// prevent local teardown. Close is terminal, the manager cannot be
// reinitialized afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()

	if m.state == StateClosed {
		m.mu.Unlock()

		return nil
	}

	m.state = StateClosed
	pc := m.pc
	sessionID := m.sessionID
	m.pc = nil
	m.sessionID = ""
	m.senders = nil
	m.published = nil

	m.mu.Unlock()

	if sessionID != "" {
		if err := m.params.SFU.CloseSession(ctx, sessionID); err != nil {
			m.log.Warn("Close session", logger.Ctx{
				"session_id": sessionID,
				"error":      err,
			})
		}
	}

	if pc != nil {
		if err := pc.Close(); err != nil {
			return errors.Annotate(err, "close peer connection")
		}
	}

	return nil
}

// ready returns the connection and session under the lock, or an error
// when there is no established session.
func (m *Manager) ready() (*webrtc.PeerConnection, identifiers.SessionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateClosed {
		return nil, "", errors.Trace(ErrClosed)
	}

	if m.state != StateReady || m.pc == nil {
		return nil, "", errors.Trace(ErrNotReady)
	}

	return m.pc, m.sessionID, nil
}

// beginOp moves an established session into a transient negotiation
// state. Negotiations are serialized: while one is in flight a second
// one fails with ErrNotReady and the caller retries later.
func (m *Manager) beginOp(to State) (*webrtc.PeerConnection, identifiers.SessionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateClosed {
		return nil, "", errors.Trace(ErrClosed)
	}

	if m.state != StateReady || m.pc == nil {
		return nil, "", errors.Trace(ErrNotReady)
	}

	m.state = to

	return m.pc, m.sessionID, nil
}

// endOp leaves a transient negotiation state. A fatal outcome means the
// session description may be half applied: the connection is marked
// failed and has to be rebuilt through Initialize.
func (m *Manager) endOp(fatal bool) {
	m.mu.Lock()

	if m.state != StateClosed {
		if fatal {
			m.state = StateFailed
		} else {
			m.state = StateReady
		}
	}

	m.mu.Unlock()
}

func newTrackName() identifiers.TrackName {
	return identifiers.TrackName(uuid.NewString())
}
