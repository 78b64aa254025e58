package message

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/track"
	"github.com/juju/errors"
)

var ErrUnknownMessageType = errors.New("unknown message type")

const emojiPrefix = "EMOJI:"

// broadcastEnvelope is the loose payload shape shared by everything sent on
// the "message" event. Control messages set Type; chat, emoji and teardown
// markers ride in Content.
type broadcastEnvelope struct {
	Type       string                    `json:"type,omitempty"`
	Content    string                    `json:"content,omitempty"`
	SenderID   identifiers.ParticipantID `json:"senderId,omitempty"`
	SenderName string                    `json:"senderName,omitempty"`
	TargetID   identifiers.ParticipantID `json:"targetId,omitempty"`
	Timestamp  time.Time                 `json:"timestamp,omitempty"`
}

// ParseBroadcast decodes the payload of one broadcast event into a typed
// Message.
func ParseBroadcast(event string, data []byte) (Message, error) {
	switch event {
	case EventMessage:
		return parseEnvelope(data)
	case EventQuestion:
		var payload Question
		if err := json.Unmarshal(data, &payload); err != nil {
			return Message{}, errors.Annotate(err, "parse question")
		}

		return NewQuestion(payload), nil
	case EventVote:
		var payload Vote
		if err := json.Unmarshal(data, &payload); err != nil {
			return Message{}, errors.Annotate(err, "parse vote")
		}

		return NewVote(payload), nil
	case EventHandRaise:
		var payload HandRaise
		if err := json.Unmarshal(data, &payload); err != nil {
			return Message{}, errors.Annotate(err, "parse hand raise")
		}

		return NewHandRaise(payload), nil
	case EventHandRaiseResponse:
		var payload HandRaiseResponse
		if err := json.Unmarshal(data, &payload); err != nil {
			return Message{}, errors.Annotate(err, "parse hand raise response")
		}

		return NewHandRaiseResponse(payload), nil
	default:
		return Message{}, errors.Annotatef(ErrUnknownMessageType, "event: %q", event)
	}
}

func parseEnvelope(data []byte) (Message, error) {
	var env broadcastEnvelope

	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, errors.Annotate(err, "parse broadcast envelope")
	}

	switch env.Type {
	case string(TypeNewTracks):
		var desc track.Descriptor
		if err := json.Unmarshal([]byte(env.Content), &desc); err != nil {
			return Message{}, errors.Annotate(err, "parse track descriptor")
		}

		return NewNewTracks(env.SenderID, desc), nil
	case string(TypeMuteRequest):
		return NewMuteRequest(env.TargetID), nil
	case string(TypeKickRequest):
		return NewKickRequest(env.TargetID), nil
	}

	switch {
	case env.Content == string(TypeRoomEnded):
		return NewRoomEnded(), nil
	case env.Content == string(TypeRoomDeleted):
		return NewRoomDeleted(), nil
	case strings.HasPrefix(env.Content, emojiPrefix):
		return NewEmoji(Emoji{
			Emoji:      strings.TrimPrefix(env.Content, emojiPrefix),
			SenderName: env.SenderName,
		}), nil
	}

	return NewChat(Chat{
		Content:    env.Content,
		SenderName: env.SenderName,
		Timestamp:  env.Timestamp,
		SenderID:   env.SenderID,
	}), nil
}

// Encode returns the realtime event name and the wire payload for a Message.
func (m Message) Encode(now time.Time) (event string, payload []byte, err error) {
	switch m.Type {
	case TypeChat:
		return marshal(EventMessage, broadcastEnvelope{
			Content:    m.Payload.Chat.Content,
			SenderID:   m.Payload.Chat.SenderID,
			SenderName: m.Payload.Chat.SenderName,
			Timestamp:  now,
		})
	case TypeEmoji:
		return marshal(EventMessage, broadcastEnvelope{
			Content:    emojiPrefix + m.Payload.Emoji.Emoji,
			SenderName: m.Payload.Emoji.SenderName,
			Timestamp:  now,
		})
	case TypeNewTracks:
		desc, err := json.Marshal(m.Payload.NewTracks.Descriptor)
		if err != nil {
			return "", nil, errors.Annotate(err, "marshal track descriptor")
		}

		return marshal(EventMessage, broadcastEnvelope{
			Type:      string(TypeNewTracks),
			Content:   string(desc),
			SenderID:  m.Payload.NewTracks.SenderID,
			Timestamp: now,
		})
	case TypeMuteRequest:
		return marshal(EventMessage, broadcastEnvelope{
			Type:      string(TypeMuteRequest),
			TargetID:  m.Payload.MuteRequest.TargetID,
			Timestamp: now,
		})
	case TypeKickRequest:
		return marshal(EventMessage, broadcastEnvelope{
			Type:      string(TypeKickRequest),
			TargetID:  m.Payload.KickRequest.TargetID,
			Timestamp: now,
		})
	case TypeRoomEnded, TypeRoomDeleted:
		return marshal(EventMessage, broadcastEnvelope{
			Content:   string(m.Type),
			Timestamp: now,
		})
	case TypeQuestion:
		return marshal(EventQuestion, m.Payload.Question)
	case TypeVote:
		return marshal(EventVote, m.Payload.Vote)
	case TypeHandRaise:
		return marshal(EventHandRaise, m.Payload.HandRaise)
	case TypeHandRaiseResponse:
		return marshal(EventHandRaiseResponse, m.Payload.HandRaiseResponse)
	default:
		return "", nil, errors.Annotatef(ErrUnknownMessageType, "message: %+v", m)
	}
}

func marshal(event string, payload interface{}) (string, []byte, error) {
	data, err := json.Marshal(payload)

	return event, data, errors.Trace(err)
}
