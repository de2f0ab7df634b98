package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armahc19/watchparty-frontend/internal/domain"
	"github.com/armahc19/watchparty-frontend/internal/repository"
	"github.com/armahc19/watchparty-frontend/lib/logger/handlers/slogdiscard"
)

func newTestRoomService(t *testing.T) *RoomService {
	t.Helper()
	return NewRoomService(
		repository.NewInMemoryRoomRepository(),
		repository.NewInMemoryFileRepository(),
		repository.NewInMemoryUserRepository(),
		slogdiscard.NewDiscardLogger(),
	)
}

// drainEvents collects everything currently queued for a member.
func drainEvents(member *domain.Member) []domain.SyncMessage {
	var out []domain.SyncMessage
	for {
		select {
		case msg, ok := <-member.Events:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestCreateRoomValidation(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, "", uuid.New(), domain.ActivityMovie, time.Hour)
	assert.Error(t, err)

	_, err = svc.CreateRoom(ctx, "movie night", uuid.Nil, domain.ActivityMovie, time.Hour)
	assert.Error(t, err)

	room, err := svc.CreateRoom(ctx, "movie night", uuid.New(), "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityMovie, room.ActivityType)
	assert.Len(t, room.RoomCode, 6)
}

func TestGetRoomByCode(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "movie night", uuid.New(), domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	found, err := svc.GetRoomByCode(ctx, room.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, room.ID, found.ID)

	_, err = svc.GetRoomByCode(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestExpiredRoomRejected(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "short lived", uuid.New(), domain.ActivityMovie, time.Millisecond)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = svc.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomExpired)
}

func TestRegisterMemberAnnouncesPresence(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	host, err := svc.RegisterMember(ctx, room.ID, hostUser)
	require.NoError(t, err)
	assert.True(t, host.IsHost)

	viewerUser := domain.NewGuestUser("viewer")
	viewer, err := svc.RegisterMember(ctx, room.ID, viewerUser)
	require.NoError(t, err)
	assert.False(t, viewer.IsHost)

	// The host learns about the newcomer.
	hostEvents := drainEvents(host)
	require.Len(t, hostEvents, 1)
	assert.Equal(t, domain.MessageTypeUserJoined, hostEvents[0].Type)
	assert.Equal(t, viewerUser.ID.String(), hostEvents[0].UserID)

	// The newcomer learns who was already here, not about itself.
	viewerEvents := drainEvents(viewer)
	require.Len(t, viewerEvents, 1)
	assert.Equal(t, domain.MessageTypeUserJoined, viewerEvents[0].Type)
	assert.Equal(t, hostUser.ID.String(), viewerEvents[0].UserID)
}

func TestUnregisterMember(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	host, err := svc.RegisterMember(ctx, room.ID, hostUser)
	require.NoError(t, err)
	viewer, err := svc.RegisterMember(ctx, room.ID, domain.NewGuestUser("viewer"))
	require.NoError(t, err)
	drainEvents(host)

	require.NoError(t, svc.UnregisterMember(ctx, room.ID, viewer.ID))

	events := drainEvents(host)
	require.Len(t, events, 1)
	assert.Equal(t, domain.MessageTypeUserLeft, events[0].Type)

	assert.ErrorIs(t, svc.UnregisterMember(ctx, room.ID, viewer.ID), ErrMemberNotFound)
}

func TestHostCommandRelayedToOthersOnly(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	host, err := svc.RegisterMember(ctx, room.ID, hostUser)
	require.NoError(t, err)
	viewer, err := svc.RegisterMember(ctx, room.ID, domain.NewGuestUser("viewer"))
	require.NoError(t, err)
	drainEvents(host)
	drainEvents(viewer)

	err = svc.HandleSync(ctx, room.ID, host.ID, &domain.SyncMessage{
		Type:      domain.MessageTypeSeek,
		Timestamp: 42,
	})
	require.NoError(t, err)

	viewerEvents := drainEvents(viewer)
	require.Len(t, viewerEvents, 1)
	assert.Equal(t, domain.MessageTypeSeek, viewerEvents[0].Type)
	assert.Equal(t, 42.0, viewerEvents[0].Timestamp)

	assert.Empty(t, drainEvents(host), "sender must not receive its own command")
}

func TestViewerPlaybackCommandRejected(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	host, err := svc.RegisterMember(ctx, room.ID, hostUser)
	require.NoError(t, err)
	viewer, err := svc.RegisterMember(ctx, room.ID, domain.NewGuestUser("viewer"))
	require.NoError(t, err)
	drainEvents(host)

	for _, typ := range []domain.MessageType{
		domain.MessageTypePlay,
		domain.MessageTypePause,
		domain.MessageTypeSeek,
		domain.MessageTypeSyncResponse,
		domain.MessageTypeFileChanged,
	} {
		err := svc.HandleSync(ctx, room.ID, viewer.ID, &domain.SyncMessage{Type: typ})
		assert.ErrorIs(t, err, ErrNotHost, "type %s", typ)
	}

	assert.Empty(t, drainEvents(host))
}

func TestSenderIdentityStampedServerSide(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	host, err := svc.RegisterMember(ctx, room.ID, hostUser)
	require.NoError(t, err)
	viewer, err := svc.RegisterMember(ctx, room.ID, domain.NewGuestUser("viewer"))
	require.NoError(t, err)
	drainEvents(host)
	drainEvents(viewer)

	err = svc.HandleSync(ctx, room.ID, host.ID, &domain.SyncMessage{
		Type:     domain.MessageTypePlay,
		UserID:   "spoofed-user",
		Username: "spoofed-name",
	})
	require.NoError(t, err)

	events := drainEvents(viewer)
	require.Len(t, events, 1)
	assert.Equal(t, hostUser.ID.String(), events[0].UserID)
	assert.Equal(t, hostUser.Name, events[0].Username)
}

func TestSyncRequestRelayedFromViewer(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	host, err := svc.RegisterMember(ctx, room.ID, hostUser)
	require.NoError(t, err)
	viewer, err := svc.RegisterMember(ctx, room.ID, domain.NewGuestUser("viewer"))
	require.NoError(t, err)
	drainEvents(host)

	require.NoError(t, svc.HandleSync(ctx, room.ID, viewer.ID, &domain.SyncMessage{
		Type: domain.MessageTypeSyncRequest,
	}))

	events := drainEvents(host)
	require.Len(t, events, 1)
	assert.Equal(t, domain.MessageTypeSyncRequest, events[0].Type)
}

func TestChatPersistedAndEchoedToSender(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	host, err := svc.RegisterMember(ctx, room.ID, hostUser)
	require.NoError(t, err)
	viewer, err := svc.RegisterMember(ctx, room.ID, domain.NewGuestUser("viewer"))
	require.NoError(t, err)
	drainEvents(host)
	drainEvents(viewer)

	require.NoError(t, svc.HandleSync(ctx, room.ID, viewer.ID, &domain.SyncMessage{
		Type:    domain.MessageTypeChat,
		Message: "  hello everyone  ",
	}))

	for _, member := range []*domain.Member{host, viewer} {
		events := drainEvents(member)
		require.Len(t, events, 1)
		assert.Equal(t, domain.MessageTypeChat, events[0].Type)
		assert.Equal(t, "hello everyone", events[0].Message)
	}
}

func TestChatValidation(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	host, err := svc.RegisterMember(ctx, room.ID, hostUser)
	require.NoError(t, err)

	err = svc.HandleSync(ctx, room.ID, host.ID, &domain.SyncMessage{
		Type:    domain.MessageTypeChat,
		Message: "   ",
	})
	assert.Error(t, err)

	err = svc.HandleSync(ctx, room.ID, host.ID, &domain.SyncMessage{
		Type:    domain.MessageTypeChat,
		Message: strings.Repeat("a", maxChatMessageLength+1),
	})
	assert.Error(t, err)
}

func TestUnknownMessageTypeRejected(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	host, err := svc.RegisterMember(ctx, room.ID, hostUser)
	require.NoError(t, err)

	err = svc.HandleSync(ctx, room.ID, host.ID, &domain.SyncMessage{Type: "teleport"})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

// collidingRoomRepository reports every room code as taken.
type collidingRoomRepository struct {
	repository.RoomRepository
	attempts int
}

func (r *collidingRoomRepository) Create(_ context.Context, _ *domain.Room) error {
	r.attempts++
	return repository.ErrRoomCodeExists
}

func TestCreateRoomGivesUpOnCodeExhaustion(t *testing.T) {
	repo := &collidingRoomRepository{RoomRepository: repository.NewInMemoryRoomRepository()}
	svc := NewRoomService(
		repo,
		repository.NewInMemoryFileRepository(),
		repository.NewInMemoryUserRepository(),
		slogdiscard.NewDiscardLogger(),
	)

	_, err := svc.CreateRoom(context.Background(), "movie night", uuid.New(), domain.ActivityMovie, time.Hour)
	require.Error(t, err)
	assert.Equal(t, maxRoomCodeAttempts, repo.attempts)
}

func TestBroadcastDuringMembershipChurn(t *testing.T) {
	// Relaying must survive members leaving mid-broadcast: a departing
	// member's events close while other goroutines still hold a snapshot
	// of the room. Any send on a closed channel here panics the test.
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	host, err := svc.RegisterMember(ctx, room.ID, hostUser)
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				_ = svc.HandleSync(ctx, room.ID, host.ID, &domain.SyncMessage{
					Type:  domain.MessageTypeReaction,
					Emoji: "🍿",
				})
			}
		}()
	}

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				member, err := svc.RegisterMember(ctx, room.ID, domain.NewGuestUser("churner"))
				if err != nil {
					continue
				}
				drainEvents(member)
				_ = svc.UnregisterMember(ctx, room.ID, member.ID)
			}
		}()
	}

	time.Sleep(500 * time.Millisecond)
	close(done)
	wg.Wait()

	// The host survived the churn and is still wired into the room.
	require.NoError(t, svc.HandleSync(ctx, room.ID, host.ID, &domain.SyncMessage{
		Type: domain.MessageTypeSyncRequest,
	}))
}

func TestFileLifecycle(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	hostUser := domain.NewUser("host", "host@example.com")
	room, err := svc.CreateRoom(ctx, "movie night", hostUser.ID, domain.ActivityMovie, time.Hour)
	require.NoError(t, err)

	file, err := svc.AddFile(ctx, room.ID, hostUser.ID, "episode-1.mp4", "https://cdn.example.com/1", "video/mp4", 1024, 1800)
	require.NoError(t, err)

	_, err = svc.AddFile(ctx, room.ID, hostUser.ID, "", "", "video/mp4", 0, 0)
	assert.Error(t, err)

	files, err := svc.ListFiles(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file.ID, files[0].ID)

	require.NoError(t, svc.RemoveFile(ctx, file.ID))
	files, err = svc.ListFiles(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}
