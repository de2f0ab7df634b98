package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/armahc19/watchparty-frontend/internal/domain"
)

type RoomInteractor interface {
	CreateRoom(ctx context.Context, title string, hostID uuid.UUID, activity domain.ActivityType, lifetime time.Duration) (*domain.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*domain.Room, error)
	RegisterMember(ctx context.Context, roomID uuid.UUID, user *domain.User) (*domain.Member, error)
	UnregisterMember(ctx context.Context, roomID uuid.UUID, memberID string) error
	HandleSync(ctx context.Context, roomID uuid.UUID, memberID string, msg *domain.SyncMessage) error
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]*domain.User, error)
	AddFile(ctx context.Context, roomID uuid.UUID, uploadedBy uuid.UUID, name, url, mimeType string, sizeBytes int64, duration float64) (*domain.MediaFile, error)
	ListFiles(ctx context.Context, roomID uuid.UUID) ([]*domain.MediaFile, error)
	RemoveFile(ctx context.Context, fileID uuid.UUID) error
}

type UserInteractor interface {
	CreateUser(ctx context.Context, name string, email string) (*domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
}
