package converter

import (
	"time"

	"github.com/google/uuid"

	"github.com/armahc19/watchparty-frontend/internal/domain"
)

type RoomResponse struct {
	ID           uuid.UUID        `json:"id"`
	Title        string           `json:"title"`
	HostID       uuid.UUID        `json:"host_id"`
	RoomCode     string           `json:"room_code"`
	ActivityType string           `json:"activity_type"`
	Members      []MemberResponse `json:"members"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	IsExpired    bool             `json:"is_expired"`
}

type MemberResponse struct {
	ID       string              `json:"id"`
	UserID   uuid.UUID           `json:"user_id"`
	Username string              `json:"username"`
	IsHost   bool                `json:"is_host"`
	Status   domain.MemberStatus `json:"status"`
}

func RoomToApi(r *domain.Room) *RoomResponse {
	members := make([]MemberResponse, 0, len(r.Members))

	r.Mutex.RLock()
	for _, member := range r.Members {
		members = append(members, MemberResponse{
			ID:       member.ID,
			UserID:   member.UserID,
			Username: member.Username,
			IsHost:   member.IsHost,
			Status:   member.Status,
		})
	}
	r.Mutex.RUnlock()

	return &RoomResponse{
		ID:           r.ID,
		Title:        r.Title,
		HostID:       r.HostID,
		RoomCode:     r.RoomCode,
		ActivityType: string(r.ActivityType),
		Members:      members,
		CreatedAt:    r.CreatedAt,
		ExpiresAt:    r.ExpiresAt,
		IsExpired:    r.IsExpired(),
	}
}
