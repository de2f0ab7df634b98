package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type MemberStatus string

const (
	MemberStatusConnected    MemberStatus = "connected"
	MemberStatusConnecting   MemberStatus = "connecting"
	MemberStatusDisconnected MemberStatus = "disconnected"
)

// Member represents an active participant in the room.
type Member struct {
	ID       string
	UserID   uuid.UUID
	Username string
	IsHost   bool
	Status   MemberStatus
	JoinedAt time.Time
	LastSeen time.Time
	Mutex    sync.RWMutex
	Socket   *websocket.Conn
	Events   chan SyncMessage

	closed bool
}

func NewMember(userID uuid.UUID, username string, isHost bool) *Member {
	return &Member{
		ID:       uuid.New().String(),
		UserID:   userID,
		Username: username,
		IsHost:   isHost,
		Status:   MemberStatusConnecting,
		JoinedAt: time.Now().UTC(),
		LastSeen: time.Now().UTC(),
		Events:   make(chan SyncMessage, 16),
	}
}

func (m *Member) Touch() {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.LastSeen = time.Now().UTC()
}

// EnqueueEvent offers an event to the member's pump without blocking. It
// reports false when the buffer is full or the member is already closed;
// holding the read lock for the send keeps it safe against a concurrent
// CloseEvents.
func (m *Member) EnqueueEvent(event SyncMessage) bool {
	m.Mutex.RLock()
	defer m.Mutex.RUnlock()

	if m.closed {
		return false
	}

	select {
	case m.Events <- event:
		return true
	default:
		return false
	}
}

// CloseEvents ends the event stream exactly once. Broadcasters that still
// hold a reference to the member see the closed flag instead of a closed
// channel.
func (m *Member) CloseEvents() {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	close(m.Events)
}

func (m *Member) SetStatus(status MemberStatus) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.Status = status
}
