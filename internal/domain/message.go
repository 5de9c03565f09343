package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is immutable after creation. SenderName is the display name at
// send time and is not live-updated.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sentAt"`
}

func NewMessage(senderID, senderName, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		SentAt:     time.Now(),
	}
}
