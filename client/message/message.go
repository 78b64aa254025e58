package message

import (
	"time"

	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/track"
)

// Event names on the realtime channel.
const (
	EventMessage           = "message"
	EventQuestion          = "question"
	EventVote              = "vote"
	EventHandRaise         = "hand_raise"
	EventHandRaiseResponse = "hand_raise_response"
)

// Type discriminates the decoded broadcast payload.
type Type string

const (
	TypeChat              Type = "chat"
	TypeEmoji             Type = "emoji"
	TypeNewTracks         Type = "NEW_TRACKS"
	TypeMuteRequest       Type = "MUTE_REQUEST"
	TypeKickRequest       Type = "KICK_REQUEST"
	TypeRoomEnded         Type = "ROOM_ENDED"
	TypeRoomDeleted       Type = "ROOM_DELETED"
	TypeQuestion          Type = "question"
	TypeVote              Type = "vote"
	TypeHandRaise         Type = "handRaise"
	TypeHandRaiseResponse Type = "handRaiseResponse"
)

// Message is one decoded broadcast received from or sent to the realtime
// channel.
type Message struct {
	Type    Type
	Payload Payload
}

// Payload should only have a single field set, depending on the type of the
// message.
type Payload struct {
	Chat        *Chat
	Emoji       *Emoji
	NewTracks   *NewTracks
	MuteRequest *MuteRequest
	KickRequest *KickRequest

	Question          *Question
	Vote              *Vote
	HandRaise         *HandRaise
	HandRaiseResponse *HandRaiseResponse
}

type Chat struct {
	Content    string                    `json:"content"`
	SenderName string                    `json:"senderName"`
	Timestamp  time.Time                 `json:"timestamp"`
	SenderID   identifiers.ParticipantID `json:"senderId,omitempty"`
}

type Emoji struct {
	Emoji      string `json:"emoji"`
	SenderName string `json:"senderName"`
}

// NewTracks carries another participant's published-track descriptor. The
// wire format embeds the descriptor as a JSON string in the content field.
type NewTracks struct {
	SenderID   identifiers.ParticipantID
	Descriptor track.Descriptor
}

type MuteRequest struct {
	TargetID identifiers.ParticipantID `json:"targetId"`
}

type KickRequest struct {
	TargetID identifiers.ParticipantID `json:"targetId"`
}

type Question struct {
	Content   string    `json:"content"`
	AskerName string    `json:"askerName"`
	Timestamp time.Time `json:"timestamp"`
}

type Vote struct {
	PollID    string    `json:"pollId"`
	OptionID  string    `json:"optionId"`
	VoterID   string    `json:"voterId"`
	Timestamp time.Time `json:"timestamp"`
}

type HandRaise struct {
	ParticipantID   identifiers.ParticipantID `json:"participantId"`
	ParticipantName string                    `json:"participantName"`
	Timestamp       time.Time                 `json:"timestamp"`
}

type HandRaiseResponse struct {
	ParticipantID identifiers.ParticipantID `json:"participantId"`
	Approved      bool                      `json:"approved"`
	Timestamp     time.Time                 `json:"timestamp"`
}

func NewChat(payload Chat) Message {
	return Message{
		Type: TypeChat,
		Payload: Payload{
			Chat: &payload,
		},
	}
}

func NewEmoji(payload Emoji) Message {
	return Message{
		Type: TypeEmoji,
		Payload: Payload{
			Emoji: &payload,
		},
	}
}

func NewNewTracks(senderID identifiers.ParticipantID, desc track.Descriptor) Message {
	return Message{
		Type: TypeNewTracks,
		Payload: Payload{
			NewTracks: &NewTracks{
				SenderID:   senderID,
				Descriptor: desc,
			},
		},
	}
}

func NewMuteRequest(targetID identifiers.ParticipantID) Message {
	return Message{
		Type: TypeMuteRequest,
		Payload: Payload{
			MuteRequest: &MuteRequest{TargetID: targetID},
		},
	}
}

func NewKickRequest(targetID identifiers.ParticipantID) Message {
	return Message{
		Type: TypeKickRequest,
		Payload: Payload{
			KickRequest: &KickRequest{TargetID: targetID},
		},
	}
}

func NewRoomEnded() Message {
	return Message{Type: TypeRoomEnded}
}

func NewRoomDeleted() Message {
	return Message{Type: TypeRoomDeleted}
}

func NewQuestion(payload Question) Message {
	return Message{
		Type: TypeQuestion,
		Payload: Payload{
			Question: &payload,
		},
	}
}

func NewVote(payload Vote) Message {
	return Message{
		Type: TypeVote,
		Payload: Payload{
			Vote: &payload,
		},
	}
}

func NewHandRaise(payload HandRaise) Message {
	return Message{
		Type: TypeHandRaise,
		Payload: Payload{
			HandRaise: &payload,
		},
	}
}

func NewHandRaiseResponse(payload HandRaiseResponse) Message {
	return Message{
		Type: TypeHandRaiseResponse,
		Payload: Payload{
			HandRaiseResponse: &payload,
		},
	}
}
