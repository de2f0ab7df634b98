package domain

import "time"

type MessageType string

const (
	MessageTypePlay         MessageType = "play"
	MessageTypePause        MessageType = "pause"
	MessageTypeSeek         MessageType = "seek"
	MessageTypeSyncRequest  MessageType = "sync_request"
	MessageTypeSyncResponse MessageType = "sync_response"
	MessageTypeUserJoined   MessageType = "user_joined"
	MessageTypeUserLeft     MessageType = "user_left"
	MessageTypeFileChanged  MessageType = "file_changed"
	MessageTypeReaction     MessageType = "reaction"
	MessageTypeTypingStart  MessageType = "typing_start"
	MessageTypeTypingStop   MessageType = "typing_stop"
	MessageTypeChat         MessageType = "chat_message"
)

// FileData describes the active playlist item carried by a file_changed message.
type FileData struct {
	FileID          string  `json:"file_id"`
	FileName        string  `json:"file_name"`
	FileType        string  `json:"file_type"`
	DurationSeconds float64 `json:"duration"`
}

// SyncMessage is the wire envelope for everything that crosses the room bus.
// ReceivedAt and Processed are local annotations stamped on receipt and are
// never serialized.
type SyncMessage struct {
	Type      MessageType `json:"type"`
	Timestamp float64     `json:"timestamp,omitempty"`
	IsPlaying bool        `json:"isPlaying,omitempty"`
	UserID    string      `json:"userID,omitempty"`
	Username  string      `json:"username,omitempty"`
	RoomID    string      `json:"roomID,omitempty"`
	FileData  *FileData   `json:"fileData,omitempty"`
	Message   string      `json:"message,omitempty"`
	Emoji     string      `json:"emoji,omitempty"`
	User      string      `json:"user,omitempty"`

	ReceivedAt time.Time `json:"-"`
	Processed  bool      `json:"-"`
}

var syncTypes = map[MessageType]struct{}{
	MessageTypePlay:         {},
	MessageTypePause:        {},
	MessageTypeSeek:         {},
	MessageTypeSyncRequest:  {},
	MessageTypeSyncResponse: {},
	MessageTypeFileChanged:  {},
}

// IsSyncType reports whether the message participates in playback
// synchronization. Chat, reactions and typing indicators do not.
func (m *SyncMessage) IsSyncType() bool {
	_, ok := syncTypes[m.Type]
	return ok
}

// MarkProcessed flips the local processed flag, returning false if the
// message instance was already handled.
func (m *SyncMessage) MarkProcessed() bool {
	if m.Processed {
		return false
	}
	m.Processed = true
	return true
}
