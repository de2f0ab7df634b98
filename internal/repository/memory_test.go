package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armahc19/watchparty-frontend/internal/domain"
)

func TestRoomRepositoryRoundtrip(t *testing.T) {
	repo := NewInMemoryRoomRepository()
	ctx := context.Background()

	room := domain.NewRoom("movie night", uuid.New(), domain.ActivityMovie, time.Hour)
	require.NoError(t, repo.Create(ctx, room))

	byID, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, byID.ID)

	byCode, err := repo.GetByCode(ctx, room.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, room.ID, byCode.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomRepositoryRejectsDuplicateCode(t *testing.T) {
	repo := NewInMemoryRoomRepository()
	ctx := context.Background()

	first := domain.NewRoom("one", uuid.New(), domain.ActivityMovie, time.Hour)
	require.NoError(t, repo.Create(ctx, first))

	second := domain.NewRoom("two", uuid.New(), domain.ActivityMovie, time.Hour)
	second.RoomCode = first.RoomCode
	assert.ErrorIs(t, repo.Create(ctx, second), ErrRoomCodeExists)
}

func TestRoomRepositoryDelete(t *testing.T) {
	repo := NewInMemoryRoomRepository()
	ctx := context.Background()

	room := domain.NewRoom("movie night", uuid.New(), domain.ActivityMovie, time.Hour)
	require.NoError(t, repo.Create(ctx, room))
	require.NoError(t, repo.Delete(ctx, room.ID))

	_, err := repo.GetByID(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = repo.GetByCode(ctx, room.RoomCode)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestFileRepositoryListsByRoomInOrder(t *testing.T) {
	repo := NewInMemoryFileRepository()
	ctx := context.Background()
	roomID := uuid.New()

	base := time.Now().UTC()
	newest := &domain.MediaFile{ID: uuid.New(), RoomID: roomID, Name: "c.mp4", CreatedAt: base.Add(2 * time.Minute)}
	oldest := &domain.MediaFile{ID: uuid.New(), RoomID: roomID, Name: "a.mp4", CreatedAt: base}
	middle := &domain.MediaFile{ID: uuid.New(), RoomID: roomID, Name: "b.mp4", CreatedAt: base.Add(time.Minute)}
	other := &domain.MediaFile{ID: uuid.New(), RoomID: uuid.New(), Name: "x.mp4", CreatedAt: base}

	for _, f := range []*domain.MediaFile{newest, oldest, middle, other} {
		require.NoError(t, repo.Create(ctx, f))
	}

	files, err := repo.ListByRoom(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.mp4", files[0].Name)
	assert.Equal(t, "b.mp4", files[1].Name)
	assert.Equal(t, "c.mp4", files[2].Name)
}

func TestFileRepositoryDelete(t *testing.T) {
	repo := NewInMemoryFileRepository()
	ctx := context.Background()

	file := &domain.MediaFile{ID: uuid.New(), RoomID: uuid.New(), Name: "a.mp4"}
	require.NoError(t, repo.Create(ctx, file))
	require.NoError(t, repo.Delete(ctx, file.ID))

	assert.ErrorIs(t, repo.Delete(ctx, file.ID), ErrFileNotFound)
}

func TestUserRepositoryRoundtrip(t *testing.T) {
	repo := NewInMemoryUserRepository()
	ctx := context.Background()

	user := domain.NewUser("alice", "alice@example.com")
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)

	dup := domain.NewUser("other", "alice@example.com")
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrUserEmailExists)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestContextCancellationRespected(t *testing.T) {
	repo := NewInMemoryRoomRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	room := domain.NewRoom("movie night", uuid.New(), domain.ActivityMovie, time.Hour)
	assert.Error(t, repo.Create(ctx, room))
}
