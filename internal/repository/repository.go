package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/armahc19/watchparty-frontend/internal/domain"
)

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	GetByCode(ctx context.Context, code string) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.Room, error)
	SaveChatMessage(ctx context.Context, msg *domain.ChatMessage) error
}

type FileRepository interface {
	Create(ctx context.Context, file *domain.MediaFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MediaFile, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.MediaFile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}
