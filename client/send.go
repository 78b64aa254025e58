package client

import (
	"context"

	"github.com/juju/errors"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/message"
)

// SendChat broadcasts a chat message.
func (c *Coordinator) SendChat(ctx context.Context, content string) error {
	return errors.Trace(c.send(ctx, message.NewChat(message.Chat{
		Content:    content,
		SenderName: c.params.ParticipantName,
		SenderID:   c.params.ParticipantID,
		Timestamp:  c.params.Clock.Now(),
	})))
}

// SendEmoji broadcasts an emoji reaction.
func (c *Coordinator) SendEmoji(ctx context.Context, emoji string) error {
	return errors.Trace(c.send(ctx, message.NewEmoji(message.Emoji{
		Emoji:      emoji,
		SenderName: c.params.ParticipantName,
	})))
}

// SendQuestion broadcasts an audience question.
func (c *Coordinator) SendQuestion(ctx context.Context, content string) error {
	return errors.Trace(c.send(ctx, message.NewQuestion(message.Question{
		Content:   content,
		AskerName: c.params.ParticipantName,
		Timestamp: c.params.Clock.Now(),
	})))
}

// SendVote broadcasts a poll vote.
func (c *Coordinator) SendVote(ctx context.Context, pollID, optionID string) error {
	return errors.Trace(c.send(ctx, message.NewVote(message.Vote{
		PollID:    pollID,
		OptionID:  optionID,
		VoterID:   c.params.ParticipantID.String(),
		Timestamp: c.params.Clock.Now(),
	})))
}

// RaiseHand broadcasts a hand raise for the local participant. The roster
// holds remote members only, so the local flag lives with the receivers:
// everyone else marks us raised when the broadcast arrives.
func (c *Coordinator) RaiseHand(ctx context.Context) error {
	return errors.Trace(c.send(ctx, message.NewHandRaise(message.HandRaise{
		ParticipantID:   c.params.ParticipantID,
		ParticipantName: c.params.ParticipantName,
		Timestamp:       c.params.Clock.Now(),
	})))
}

// RespondToHandRaise resolves a raised hand. Host only.
func (c *Coordinator) RespondToHandRaise(
	ctx context.Context,
	participantID identifiers.ParticipantID,
	approved bool,
) error {
	if err := c.requireHost(); err != nil {
		return errors.Trace(err)
	}

	err := c.send(ctx, message.NewHandRaiseResponse(message.HandRaiseResponse{
		ParticipantID: participantID,
		Approved:      approved,
		Timestamp:     c.params.Clock.Now(),
	}))
	if err != nil {
		return errors.Trace(err)
	}

	c.roster.SetHandRaised(participantID, false)

	return nil
}

// RequestMute asks a participant to mute. Host only.
func (c *Coordinator) RequestMute(ctx context.Context, targetID identifiers.ParticipantID) error {
	if err := c.requireHost(); err != nil {
		return errors.Trace(err)
	}

	return errors.Trace(c.send(ctx, message.NewMuteRequest(targetID)))
}

// RequestKick removes a participant from the meeting. Host only.
func (c *Coordinator) RequestKick(ctx context.Context, targetID identifiers.ParticipantID) error {
	if err := c.requireHost(); err != nil {
		return errors.Trace(err)
	}

	return errors.Trace(c.send(ctx, message.NewKickRequest(targetID)))
}

// EndRoom ends the meeting for everyone and releases the local session.
// Host only.
func (c *Coordinator) EndRoom(ctx context.Context) error {
	if err := c.requireHost(); err != nil {
		return errors.Trace(err)
	}

	if err := c.send(ctx, message.NewRoomEnded()); err != nil {
		return errors.Trace(err)
	}

	c.teardown(ctx)

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	if ch != nil {
		// Closing the channel ends the Run loop gracefully.
		return errors.Trace(ch.Close())
	}

	return nil
}

func (c *Coordinator) requireHost() error {
	if c.params.Role != RoleHost {
		return errors.Trace(ErrNotHost)
	}

	return nil
}
