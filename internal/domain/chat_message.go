package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	UserID    uuid.UUID
	MemberID  string
	Username  string
	Content   string
	CreatedAt time.Time
}

func NewChatMessage(roomID uuid.UUID, member *Member, content string) *ChatMessage {
	msg := &ChatMessage{
		ID:        uuid.New(),
		RoomID:    roomID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if member != nil {
		msg.UserID = member.UserID
		msg.MemberID = member.ID
		msg.Username = member.Username
	}
	return msg
}
