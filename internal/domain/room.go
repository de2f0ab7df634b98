package domain

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const roomCodeLength = 6

type ActivityType string

const (
	ActivityMovie ActivityType = "movie"
	ActivityMusic ActivityType = "music"
)

// Room represents a watch-party session that can host multiple members.
// It stores the metadata required for validation and quick relay lookups.
type Room struct {
	Mutex        sync.RWMutex
	ID           uuid.UUID
	Title        string
	HostID       uuid.UUID
	RoomCode     string
	ActivityType ActivityType
	Members      map[string]*Member
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// NewRoom constructs a room with generated identifiers and lifetime options.
func NewRoom(title string, hostID uuid.UUID, activity ActivityType, lifetime time.Duration) *Room {
	now := time.Now().UTC()
	room := &Room{
		ID:           uuid.New(),
		Title:        title,
		HostID:       hostID,
		RoomCode:     generateRoomCode(),
		ActivityType: activity,
		Members:      make(map[string]*Member),
		CreatedAt:    now,
	}

	if lifetime > 0 {
		room.ExpiresAt = now.Add(lifetime)
	}

	return room
}

// IsExpired reports whether the room is no longer valid.
func (r *Room) IsExpired() bool {
	if r == nil {
		return true
	}
	if r.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(r.ExpiresAt)
}

// IsHost reports whether the given user drives playback for this room.
func (r *Room) IsHost(userID uuid.UUID) bool {
	return r != nil && r.HostID == userID
}

func generateRoomCode() string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	if len(code) <= roomCodeLength {
		return code
	}
	return code[:roomCodeLength]
}
