package peer

import (
	"context"

	"github.com/juju/errors"
	"github.com/pion/webrtc/v4"

	"github.com/hijra-meet/hijra-meet/client/logger"
	"github.com/hijra-meet/hijra-meet/client/media"
	"github.com/hijra-meet/hijra-meet/client/sfu"
	"github.com/hijra-meet/hijra-meet/client/track"
)

// Publish adds the stream's tracks to the peer connection and announces
// them on the SFU session. The returned track infos carry the names the
// SFU assigned, which may differ from the requested ones. The stream's
// enabled flags are observed from here on: disabling a kind pauses its
// senders without renegotiating.
func (m *Manager) Publish(ctx context.Context, stream *media.Stream) ([]track.Info, error) {
	pc, sessionID, err := m.beginOp(StatePublishing)
	if err != nil {
		return nil, errors.Trace(err)
	}

	fatal := false

	defer func() {
		m.endOp(fatal)
	}()

	tracks := stream.Tracks()
	if len(tracks) == 0 {
		m.log.Info("Publish: no local tracks", nil)

		return nil, nil
	}

	entries := make([]senderEntry, 0, len(tracks))

	for _, t := range tracks {
		sender, err := pc.AddTrack(t)
		if err != nil {
			m.removeSenders(pc, entries)

			return nil, errors.Annotate(err, "add track")
		}

		entries = append(entries, senderEntry{
			sender: sender,
			local:  t,
			kind:   media.KindOf(t),
		})
	}

	offer, err := m.localOffer(ctx, pc)
	if err != nil {
		fatal = true

		m.removeSenders(pc, entries)

		return nil, errors.Trace(err)
	}

	reqTracks := make([]sfu.TrackObject, len(entries))

	for i, entry := range entries {
		reqTracks[i] = sfu.TrackObject{
			Location:  sfu.TrackLocationLocal,
			Mid:       midOf(pc, entry.sender),
			TrackName: newTrackName(),
			Kind:      entry.kind.String(),
		}
	}

	res, err := m.params.SFU.PublishTracks(ctx, sessionID, offer, reqTracks)
	if err != nil {
		m.removeSenders(pc, entries)

		return nil, errors.Trace(err)
	}

	if err := trackErrors(res.Tracks); err != nil {
		m.removeSenders(pc, entries)

		return nil, errors.Annotate(err, "publish tracks")
	}

	if res.SessionDescription != nil {
		if err := acceptRemote(pc, *res.SessionDescription); err != nil {
			fatal = true

			return nil, errors.Annotate(err, "accept publish answer")
		}
	}

	infos := make([]track.Info, len(entries))

	for i, entry := range entries {
		name := reqTracks[i].TrackName
		mid := reqTracks[i].Mid

		// The SFU is authoritative for published track names.
		if i < len(res.Tracks) && res.Tracks[i].TrackName != "" {
			name = res.Tracks[i].TrackName
		}

		if i < len(res.Tracks) && res.Tracks[i].Mid != "" {
			mid = res.Tracks[i].Mid
		}

		infos[i] = track.Info{
			TrackName: name,
			Mid:       mid,
			Kind:      entry.kind,
		}
	}

	m.mu.Lock()
	m.senders = append(m.senders, entries...)
	m.published = append(m.published, infos...)
	m.mu.Unlock()

	stream.OnEnabledChange(m.setKindEnabled)

	m.log.Info("Published tracks", logger.Ctx{
		"session_id": sessionID,
		"tracks":     len(infos),
	})

	return infos, nil
}

// Unpublish removes all published tracks from the connection and
// renegotiates the session.
func (m *Manager) Unpublish(ctx context.Context) error {
	pc, _, err := m.ready()
	if err != nil {
		return errors.Trace(err)
	}

	m.mu.Lock()
	entries := m.senders
	m.senders = nil
	m.published = nil
	m.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	m.removeSenders(pc, entries)

	return errors.Trace(m.Renegotiate(ctx))
}

// Renegotiate sends a local re-offer to the SFU and applies its answer.
// Without an established session this is a no-op: there is no state to
// resynchronize yet.
func (m *Manager) Renegotiate(ctx context.Context) error {
	pc, sessionID, err := m.beginOp(StateRenegotiating)
	if err != nil {
		if errors.Cause(err) == ErrNotReady {
			m.log.Warn("Renegotiate without session, ignoring", nil)

			return nil
		}

		return errors.Trace(err)
	}

	fatal := false

	defer func() {
		m.endOp(fatal)
	}()

	offer, err := m.localOffer(ctx, pc)
	if err != nil {
		fatal = true

		return errors.Trace(err)
	}

	res, err := m.params.SFU.Renegotiate(ctx, sessionID, offer)
	if err != nil {
		return errors.Trace(err)
	}

	if res.SessionDescription != nil {
		if err := acceptRemote(pc, *res.SessionDescription); err != nil {
			fatal = true

			return errors.Annotate(err, "accept renegotiate answer")
		}
	}

	return nil
}

// Pull requests remote tracks to be attached to this session: a local
// offer goes out with the track descriptors and the SFU's answer is
// applied. Per-track failures come back as *sfu.TrackError so the caller
// can decide retryability, the peer connection stays intact.
func (m *Manager) Pull(ctx context.Context, remoteTracks []sfu.TrackObject) error {
	pc, sessionID, err := m.beginOp(StateRenegotiating)
	if err != nil {
		return errors.Trace(err)
	}

	fatal := false

	defer func() {
		m.endOp(fatal)
	}()

	offer, err := m.localOffer(ctx, pc)
	if err != nil {
		fatal = true

		return errors.Trace(err)
	}

	res, err := m.params.SFU.PullTracks(ctx, sessionID, offer, remoteTracks)
	if err != nil {
		return errors.Trace(err)
	}

	if err := trackErrors(res.Tracks); err != nil {
		return errors.Trace(err)
	}

	if res.SessionDescription != nil {
		if err := acceptRemote(pc, *res.SessionDescription); err != nil {
			fatal = true

			return errors.Annotate(err, "accept pull answer")
		}
	}

	return nil
}

// localOffer creates an offer, sets it locally and waits for ICE
// gathering so the SDP sent to the SFU carries all candidates.
func (m *Manager) localOffer(ctx context.Context, pc *webrtc.PeerConnection) (sfu.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return sfu.SessionDescription{}, errors.Annotate(err, "create offer")
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)

	if err := pc.SetLocalDescription(offer); err != nil {
		return sfu.SessionDescription{}, errors.Annotate(err, "set local offer")
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return sfu.SessionDescription{}, errors.Trace(ctx.Err())
	}

	return sfu.SessionDescription{
		Type: "offer",
		SDP:  pc.LocalDescription().SDP,
	}, nil
}

// setKindEnabled pauses or resumes the senders of a kind by replacing
// their track. The session is not renegotiated: the m-lines stay in
// place, only the media stops.
func (m *Manager) setKindEnabled(kind track.Kind, enabled bool) {
	m.mu.Lock()
	entries := make([]senderEntry, 0, len(m.senders))

	for _, entry := range m.senders {
		if entry.kind == kind {
			entries = append(entries, entry)
		}
	}
	m.mu.Unlock()

	for _, entry := range entries {
		var t webrtc.TrackLocal

		if enabled {
			t = entry.local
		}

		if err := entry.sender.ReplaceTrack(t); err != nil {
			m.log.Error("Replace track", errors.Trace(err), logger.Ctx{
				"kind":    kind,
				"enabled": enabled,
			})
		}
	}

	m.log.Info("Track kind toggled", logger.Ctx{
		"kind":    kind,
		"enabled": enabled,
	})
}

func (m *Manager) removeSenders(pc *webrtc.PeerConnection, entries []senderEntry) {
	for _, entry := range entries {
		if err := pc.RemoveTrack(entry.sender); err != nil {
			m.log.Warn("Remove track", logger.Ctx{
				"error": err,
			})
		}
	}
}

func acceptRemote(pc *webrtc.PeerConnection, desc sfu.SessionDescription) error {
	sdpType := webrtc.SDPTypeAnswer
	if desc.Type == "offer" {
		sdpType = webrtc.SDPTypeOffer
	}

	return errors.Trace(pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: sdpType,
		SDP:  desc.SDP,
	}))
}

func midOf(pc *webrtc.PeerConnection, sender *webrtc.RTPSender) string {
	for _, transceiver := range pc.GetTransceivers() {
		if transceiver.Sender() == sender {
			return transceiver.Mid()
		}
	}

	return ""
}

// trackErrors returns the first per-track error in a tracks response,
// typed so callers can classify the code.
func trackErrors(tracks []sfu.TrackObject) error {
	for _, t := range tracks {
		if t.Err() {
			return errors.Trace(&sfu.TrackError{
				TrackName:   t.TrackName,
				Code:        t.ErrorCode,
				Description: t.ErrorDescription,
			})
		}
	}

	return nil
}
