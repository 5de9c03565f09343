package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is a per-participant credential scoped to exactly one room for its
// entire lifetime. Once destroyed its id is never reused.
type Session struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId"`
	DisplayName string    `json:"displayName"`
	ConnectedAt time.Time `json:"connectedAt"`
}

func NewSession(roomID, displayName string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		DisplayName: displayName,
		ConnectedAt: time.Now(),
	}
}
