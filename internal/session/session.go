package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/armahc19/watchparty-frontend/internal/domain"
	"github.com/armahc19/watchparty-frontend/internal/media"
	"github.com/armahc19/watchparty-frontend/internal/playback"
	"github.com/armahc19/watchparty-frontend/internal/transport"
)

// Config binds one room, one identity and one player into a session.
type Config struct {
	BaseURL  string
	RoomID   string
	HostID   string
	Identity transport.IdentityProvider
	Player   media.Player
	Log      *slog.Logger

	Transport transport.Options
	Sync      playback.Options
}

// Session is the composition root: it wires the transport client and the
// sync engine to a concrete player and exposes the imperative commands the
// presentation layer calls.
type Session struct {
	log    *slog.Logger
	client *transport.Client
	engine *playback.Engine
	player media.Player

	// OnChat and OnStatus forward presentation-facing events.
	OnChat   func(msg *domain.SyncMessage)
	OnStatus func(status playback.SyncStatus)

	mu       sync.Mutex
	playlist []*domain.PlaylistItem
	current  *domain.PlaylistItem
	closed   bool
}

func New(cfg Config) (*Session, error) {
	if cfg.RoomID == "" {
		return nil, errors.New("room id is required")
	}
	if cfg.Identity == nil {
		return nil, errors.New("identity provider is required")
	}
	if cfg.Player == nil {
		return nil, errors.New("player is required")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	role := playback.RoleViewer
	if id, err := cfg.Identity.Identity(context.Background()); err == nil && id.UserID == cfg.HostID {
		role = playback.RoleHost
	}

	client := transport.NewClient(cfg.BaseURL, cfg.RoomID, cfg.Identity, log, cfg.Transport)
	engine := playback.NewEngine(role, cfg.Player, client, log, cfg.Sync)

	s := &Session{
		log:    log.With(slog.String("room_id", cfg.RoomID)),
		client: client,
		engine: engine,
		player: cfg.Player,
	}

	engine.OnChat = func(msg *domain.SyncMessage) {
		if s.OnChat != nil {
			s.OnChat(msg)
		}
	}
	engine.OnStatus = func(status playback.SyncStatus) {
		if s.OnStatus != nil {
			s.OnStatus(status)
		}
	}
	engine.OnFileChanged = s.applyRemoteFileChange

	client.OnMessage(engine.HandleMessage)
	client.OnStateChange(func(state transport.ConnectionState) {
		switch state {
		case transport.StateConnected:
			engine.HandleConnectionUp()
		case transport.StateDisconnected:
			engine.HandleConnectionDown()
		}
	})

	return s, nil
}

// Start connects to the room bus and arms the staleness detector.
func (s *Session) Start(ctx context.Context) error {
	s.engine.StartStaleness()
	return s.client.Connect(ctx)
}

func (s *Session) Role() playback.Role { return s.engine.Role() }

func (s *Session) SyncStatus() playback.SyncStatus { return s.engine.Status() }

func (s *Session) ConnState() transport.ConnectionState { return s.client.State() }

// SetPlaylist replaces the playlist from registry file records.
func (s *Session) SetPlaylist(files []*domain.MediaFile) {
	items := make([]*domain.PlaylistItem, 0, len(files))
	for _, f := range files {
		items = append(items, f.ToPlaylistItem())
	}

	s.mu.Lock()
	s.playlist = items
	s.mu.Unlock()
}

// Playlist returns the current playlist items.
func (s *Session) Playlist() []*domain.PlaylistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]*domain.PlaylistItem, len(s.playlist))
	copy(items, s.playlist)
	return items
}

// Current returns the active selection, nil when nothing is selected.
func (s *Session) Current() *domain.PlaylistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SelectFile makes item the active selection, resets position to zero and,
// when the caller is host, broadcasts the switch to viewers.
func (s *Session) SelectFile(item *domain.PlaylistItem) {
	if item == nil {
		return
	}

	s.mu.Lock()
	s.current = item
	s.mu.Unlock()

	s.player.Load(item)

	if s.engine.Role() == playback.RoleHost {
		s.engine.SendFileChanged(item.ID, item.Name, item.MimeType, item.DurationSeconds)
	}
}

// RemoveFile drops a playlist item. Removing the active selection stops
// playback and clears the selection.
func (s *Session) RemoveFile(id string) {
	s.mu.Lock()
	kept := s.playlist[:0]
	for _, item := range s.playlist {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.playlist = kept
	clearing := s.current != nil && s.current.ID == id
	if clearing {
		s.current = nil
	}
	s.mu.Unlock()

	if clearing {
		s.player.Pause()
	}
}

// HandlePlayIntent is the presentation-layer play control. The element is
// mutated and the command broadcast only when we are host and not applying
// a remote change.
func (s *Session) HandlePlayIntent() {
	if !s.hostAndIdle("play intent") {
		return
	}
	if err := s.player.Play(); err != nil {
		s.log.Warn("local play refused", slog.Any("error", err))
		return
	}
	s.engine.SendPlay()
}

func (s *Session) HandlePauseIntent() {
	if !s.hostAndIdle("pause intent") {
		return
	}
	s.player.Pause()
	s.engine.SendPause()
}

func (s *Session) HandleSeekIntent(seconds float64) {
	if !s.hostAndIdle("seek intent") {
		return
	}
	s.player.Seek(seconds)
	s.engine.SendSeek(seconds)
}

// SendChat broadcasts a chat message. Chat is not gated by role.
func (s *Session) SendChat(text string) bool {
	return s.client.Send(domain.SyncMessage{
		Type:    domain.MessageTypeChat,
		Message: text,
	})
}

// SendReaction broadcasts an emoji reaction.
func (s *Session) SendReaction(emoji string) bool {
	return s.client.Send(domain.SyncMessage{
		Type:  domain.MessageTypeReaction,
		Emoji: emoji,
	})
}

func (s *Session) StartTyping() bool {
	return s.client.Send(domain.SyncMessage{Type: domain.MessageTypeTypingStart})
}

func (s *Session) StopTyping() bool {
	return s.client.Send(domain.SyncMessage{Type: domain.MessageTypeTypingStop})
}

// Close tears down the session on every exit path: transport closed so no
// reconnects fire, engine timers cancelled, player paused.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.engine.Stop()
	s.client.Close()
	s.player.Pause()
}

func (s *Session) hostAndIdle(what string) bool {
	if s.engine.Role() != playback.RoleHost {
		s.log.Debug("refused, not host", slog.String("intent", what))
		return false
	}
	if s.engine.State() == playback.StateApplying {
		s.log.Debug("refused, applying remote change", slog.String("intent", what))
		return false
	}
	return true
}

// applyRemoteFileChange switches the active selection in response to a
// host broadcast. Unknown file IDs still play: the descriptor carried by
// the message is enough to build the item.
func (s *Session) applyRemoteFileChange(data *domain.FileData) {
	var item *domain.PlaylistItem

	s.mu.Lock()
	for _, candidate := range s.playlist {
		if candidate.ID == data.FileID {
			item = candidate
			break
		}
	}
	if item == nil {
		item = &domain.PlaylistItem{
			ID:              data.FileID,
			Name:            data.FileName,
			MimeType:        data.FileType,
			DurationSeconds: data.DurationSeconds,
			Kind:            domain.KindFromMime(data.FileType),
		}
	}
	s.current = item
	s.mu.Unlock()

	s.log.Info("switching active file",
		slog.String("file_id", item.ID),
		slog.String("file_name", item.Name),
	)
	s.player.Load(item)
}
