package ws

import (
	"encoding/json"

	"github.com/vaporchat/vapor/internal/domain"
)

// Envelope frames every client→server event: a type tag plus a raw payload
// decoded per variant after dispatch.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is a server→client frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type JoinRoomPayload struct {
	RoomID    string `json:"roomId"`
	SessionID string `json:"sessionId"`
}

type SendMessagePayload struct {
	Content string `json:"content"`
}

type JoinOKPayload struct {
	RoomID   string           `json:"roomId"`
	RoomName string           `json:"roomName"`
	Messages []domain.Message `json:"messages"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type UserLeftPayload struct {
	SessionID string `json:"sessionId"`
}

func NewJoinOK(roomID, roomName string, messages []domain.Message) *Event {
	if messages == nil {
		messages = []domain.Message{}
	}
	return &Event{
		Type: EventJoinOK,
		Data: JoinOKPayload{RoomID: roomID, RoomName: roomName, Messages: messages},
	}
}

func NewJoinError(msg string) *Event {
	return &Event{Type: EventJoinError, Data: ErrorPayload{Error: msg}}
}

func NewMessage(msg *domain.Message) *Event {
	return &Event{Type: EventMessage, Data: msg}
}

func NewMessagesCleared() *Event {
	return &Event{Type: EventMessagesCleared}
}

func NewExitOK() *Event {
	return &Event{Type: EventExitOK}
}

func NewUserLeft(sessionID string) *Event {
	return &Event{Type: EventUserLeft, Data: UserLeftPayload{SessionID: sessionID}}
}
