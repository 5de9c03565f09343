package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Participant is one member of a room, keyed by session id. ConnectionID is
// set once a live websocket binds to the session and is never serialized.
type Participant struct {
	SessionID    string    `json:"sessionId"`
	DisplayName  string    `json:"displayName"`
	JoinedAt     time.Time `json:"joinedAt"`
	ConnectionID string    `json:"-"`
}

// Room is a named, password-protected chat space. A room with zero
// participants must not persist; the registry deletes it eagerly.
type Room struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	PasswordSalt string                  `json:"-"`
	PasswordHash string                  `json:"-"`
	CreatedAt    time.Time               `json:"createdAt"`
	CreatedBy    string                  `json:"createdBy"`
	Participants map[string]*Participant `json:"participants"`
	Messages     []Message               `json:"messages"`
}

func NewRoom(name, salt, hash, createdBy string) *Room {
	return &Room{
		ID:           uuid.NewString(),
		Name:         name,
		PasswordSalt: salt,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
		CreatedBy:    createdBy,
		Participants: make(map[string]*Participant),
		Messages:     make([]Message, 0, 64),
	}
}

func (r *Room) AddParticipant(sessionID, displayName string) *Participant {
	p := &Participant{
		SessionID:   sessionID,
		DisplayName: displayName,
		JoinedAt:    time.Now(),
	}
	r.Participants[sessionID] = p
	return p
}

func (r *Room) RemoveParticipant(sessionID string) {
	delete(r.Participants, sessionID)
}

func (r *Room) ClearMessages() {
	r.Messages = r.Messages[:0]
}

// NameMatches reports whether the query resolves to this room's name,
// ignoring surrounding whitespace and case.
func (r *Room) NameMatches(query string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Name), strings.TrimSpace(query))
}
