package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/armahc19/watchparty-frontend/internal/domain"
	"github.com/armahc19/watchparty-frontend/internal/repository"
	"github.com/armahc19/watchparty-frontend/lib/logger/sl"
)

var (
	ErrRoomExpired     = errors.New("room expired")
	ErrMemberNotFound  = errors.New("member not found")
	ErrNotHost         = errors.New("only the host can control playback")
	ErrUnsupportedType = errors.New("unsupported message type")
)

const maxChatMessageLength = 4000

// Collisions in the 16^6 code space are vanishingly rare; hitting the cap
// means the repository is misbehaving, not that we are unlucky.
const maxRoomCodeAttempts = 5

// RoomService owns the live rooms and relays sync traffic between their
// members. Persistent room metadata goes through the repositories; the
// activeRooms map holds only rooms with a live relay state.
type RoomService struct {
	rooms       repository.RoomRepository
	files       repository.FileRepository
	users       repository.UserRepository
	log         *slog.Logger
	mu          sync.RWMutex
	activeRooms map[uuid.UUID]*domain.Room
}

func NewRoomService(rooms repository.RoomRepository, files repository.FileRepository, users repository.UserRepository, log *slog.Logger) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		rooms:       rooms,
		files:       files,
		users:       users,
		log:         log,
		activeRooms: make(map[uuid.UUID]*domain.Room),
	}
}

func (s *RoomService) CreateRoom(ctx context.Context, title string, hostID uuid.UUID, activity domain.ActivityType, lifetime time.Duration) (*domain.Room, error) {
	if title == "" {
		return nil, errors.New("room title is required")
	}
	if hostID == uuid.Nil {
		return nil, errors.New("host is required")
	}
	if activity == "" {
		activity = domain.ActivityMovie
	}

	for attempt := 0; attempt < maxRoomCodeAttempts; attempt++ {
		room := domain.NewRoom(title, hostID, activity, lifetime)
		if err := s.rooms.Create(ctx, room); err != nil {
			if errors.Is(err, repository.ErrRoomCodeExists) {
				continue
			}
			return nil, err
		}

		s.mu.Lock()
		s.activeRooms[room.ID] = room
		s.mu.Unlock()

		s.log.Info("room created",
			"room_id", room.ID.String(),
			"room_code", room.RoomCode,
			"activity", string(activity),
		)
		return room, nil
	}

	return nil, errors.New("could not allocate a unique room code")
}

func (s *RoomService) GetRoom(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	if room := s.getActiveRoom(id); room != nil {
		if room.IsExpired() {
			s.removeActiveRoom(id)
			return nil, ErrRoomExpired
		}
		return room, nil
	}

	roomFromDB, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	room := s.activateRoom(roomFromDB)
	if room.IsExpired() {
		s.removeActiveRoom(room.ID)
		return nil, ErrRoomExpired
	}

	return room, nil
}

func (s *RoomService) GetRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	if room := s.getActiveRoomByCode(code); room != nil {
		if room.IsExpired() {
			s.removeActiveRoom(room.ID)
			return nil, ErrRoomExpired
		}
		return room, nil
	}

	roomFromDB, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	room := s.activateRoom(roomFromDB)
	if room.IsExpired() {
		s.removeActiveRoom(room.ID)
		return nil, ErrRoomExpired
	}

	return room, nil
}

func (s *RoomService) RegisterMember(ctx context.Context, roomID uuid.UUID, user *domain.User) (*domain.Member, error) {
	const op = "service.room.register.member"
	log := s.log.With(
		slog.String("op", op),
		slog.String("room_id", roomID.String()),
	)

	if user == nil {
		return nil, errors.New("user is required")
	}

	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		log.Info("err", sl.Err(err))
		return nil, err
	}

	if err := s.ensureUser(ctx, user); err != nil {
		log.Info("ensure user failed", "details", sl.Err(err))
		return nil, err
	}

	member := domain.NewMember(user.ID, user.Name, room.IsHost(user.ID))

	existing := make([]*domain.Member, 0, len(room.Members))
	room.Mutex.RLock()
	for _, m := range room.Members {
		existing = append(existing, m)
	}
	room.Mutex.RUnlock()

	room.Mutex.Lock()
	room.Members[member.ID] = member
	room.Mutex.Unlock()

	// The newcomer learns who is already here; everyone else learns about
	// the newcomer.
	for _, m := range existing {
		member.EnqueueEvent(domain.SyncMessage{
			Type:     domain.MessageTypeUserJoined,
			RoomID:   room.ID.String(),
			UserID:   m.UserID.String(),
			Username: m.Username,
		})
	}

	s.broadcast(room, domain.SyncMessage{
		Type:     domain.MessageTypeUserJoined,
		RoomID:   room.ID.String(),
		UserID:   member.UserID.String(),
		Username: member.Username,
	}, member.ID)

	log.Info("member registered",
		"member_id", member.ID,
		"user_id", member.UserID,
		"username", member.Username,
		"is_host", member.IsHost,
	)
	return member, nil
}

func (s *RoomService) UnregisterMember(ctx context.Context, roomID uuid.UUID, memberID string) error {
	s.log.Info("unregistering member",
		"room_id", roomID.String(),
		"member_id", memberID,
	)
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	room.Mutex.Lock()
	member, ok := room.Members[memberID]
	if !ok {
		room.Mutex.Unlock()
		return ErrMemberNotFound
	}

	delete(room.Members, memberID)
	roomEmpty := len(room.Members) == 0
	room.Mutex.Unlock()

	// Closing the stream is all the teardown the relay does here: the
	// member's pump goroutine owns the socket and closes it when the
	// stream ends.
	member.SetStatus(domain.MemberStatusDisconnected)
	member.CloseEvents()

	s.broadcast(room, domain.SyncMessage{
		Type:     domain.MessageTypeUserLeft,
		RoomID:   room.ID.String(),
		UserID:   member.UserID.String(),
		Username: member.Username,
	}, memberID)

	if roomEmpty {
		s.removeActiveRoom(room.ID)
	}

	return nil
}

// HandleSync relays one inbound message to the rest of the room. Sender
// identity is stamped server-side; whatever the client put there is
// discarded. Host-only commands from non-hosts are dropped.
func (s *RoomService) HandleSync(ctx context.Context, roomID uuid.UUID, memberID string, msg *domain.SyncMessage) error {
	const op = "service.room.sync"
	if msg == nil {
		return errors.New("message is required")
	}
	log := s.log.With(
		"op", op,
		"room_id", roomID.String(),
		"member_id", memberID,
	)

	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	room.Mutex.RLock()
	member, ok := room.Members[memberID]
	room.Mutex.RUnlock()
	if !ok {
		return ErrMemberNotFound
	}
	member.Touch()

	forward := *msg
	forward.RoomID = room.ID.String()
	forward.UserID = member.UserID.String()
	forward.Username = member.Username
	forward.ReceivedAt = time.Time{}
	forward.Processed = false

	switch msg.Type {
	case domain.MessageTypePlay, domain.MessageTypePause,
		domain.MessageTypeSeek, domain.MessageTypeSyncResponse,
		domain.MessageTypeFileChanged:
		if !member.IsHost {
			log.Debug("dropping host-only message from viewer", "type", string(msg.Type))
			return ErrNotHost
		}
		s.broadcast(room, forward, member.ID)

	case domain.MessageTypeSyncRequest,
		domain.MessageTypeReaction,
		domain.MessageTypeTypingStart,
		domain.MessageTypeTypingStop:
		s.broadcast(room, forward, member.ID)

	case domain.MessageTypeChat:
		content := strings.TrimSpace(msg.Message)
		if content == "" {
			return errors.New("chat message cannot be empty")
		}
		if utf8.RuneCountInString(content) > maxChatMessageLength {
			return errors.New("chat message is too long")
		}

		chatMsg := domain.NewChatMessage(room.ID, member, content)
		if err := s.rooms.SaveChatMessage(ctx, chatMsg); err != nil {
			log.Error("failed to save chat message", sl.Err(err))
			return err
		}

		forward.Message = content
		s.broadcastAll(room, forward)

	default:
		return ErrUnsupportedType
	}

	return nil
}

func (s *RoomService) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]*domain.User, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(room.Members))

	room.Mutex.RLock()
	defer room.Mutex.RUnlock()

	for _, member := range room.Members {
		user, err := s.users.GetByID(ctx, member.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *RoomService) AddFile(ctx context.Context, roomID uuid.UUID, uploadedBy uuid.UUID, name, url, mimeType string, sizeBytes int64, duration float64) (*domain.MediaFile, error) {
	if name == "" || url == "" {
		return nil, errors.New("file name and url are required")
	}

	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	file := &domain.MediaFile{
		ID:              uuid.New(),
		RoomID:          roomID,
		Name:            name,
		URL:             url,
		MimeType:        mimeType,
		SizeBytes:       sizeBytes,
		DurationSeconds: duration,
		UploadedBy:      uploadedBy,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	s.log.Info("file added",
		"room_id", roomID.String(),
		"file_id", file.ID.String(),
		"file_name", file.Name,
	)
	return file, nil
}

func (s *RoomService) ListFiles(ctx context.Context, roomID uuid.UUID) ([]*domain.MediaFile, error) {
	return s.files.ListByRoom(ctx, roomID)
}

func (s *RoomService) RemoveFile(ctx context.Context, fileID uuid.UUID) error {
	return s.files.Delete(ctx, fileID)
}

func (s *RoomService) ensureUser(ctx context.Context, user *domain.User) error {
	const op = "service.room.ensureUser"
	log := s.log.With(slog.String("op", op), slog.String("user_id", user.ID.String()))

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Touch()

	_, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Info("user not found, creating new one")
			return s.users.Create(ctx, user)
		}
		log.Error("error getting user", "error", err)
		return err
	}

	return s.users.Update(ctx, user)
}

func (s *RoomService) broadcast(room *domain.Room, msg domain.SyncMessage, exclude string) {
	room.Mutex.RLock()
	members := make([]*domain.Member, 0, len(room.Members))
	for id, member := range room.Members {
		if id == exclude {
			continue
		}
		members = append(members, member)
	}
	room.Mutex.RUnlock()

	for _, member := range members {
		if !member.EnqueueEvent(msg) {
			s.log.Debug("dropping broadcast event", slog.String("member", member.ID), slog.String("type", string(msg.Type)))
		}
	}
}

func (s *RoomService) broadcastAll(room *domain.Room, msg domain.SyncMessage) {
	room.Mutex.RLock()
	members := make([]*domain.Member, 0, len(room.Members))
	for _, member := range room.Members {
		members = append(members, member)
	}
	room.Mutex.RUnlock()

	for _, member := range members {
		if !member.EnqueueEvent(msg) {
			s.log.Debug("dropping broadcast event", slog.String("member", member.ID), slog.String("type", string(msg.Type)))
		}
	}
}

func (s *RoomService) getActiveRoom(id uuid.UUID) *domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeRooms[id]
}

func (s *RoomService) getActiveRoomByCode(code string) *domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, room := range s.activeRooms {
		if room.RoomCode == code {
			return room
		}
	}
	return nil
}

func (s *RoomService) removeActiveRoom(id uuid.UUID) {
	s.mu.Lock()
	delete(s.activeRooms, id)
	s.mu.Unlock()
}

func (s *RoomService) activateRoom(room *domain.Room) *domain.Room {
	if room == nil {
		return nil
	}

	if room.Members == nil {
		room.Members = make(map[string]*domain.Member)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.activeRooms[room.ID]; existing != nil {
		return existing
	}

	s.activeRooms[room.ID] = room
	return room
}
