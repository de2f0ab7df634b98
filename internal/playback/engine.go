package playback

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/armahc19/watchparty-frontend/internal/domain"
	"github.com/armahc19/watchparty-frontend/internal/media"
	"github.com/armahc19/watchparty-frontend/lib/logger/sl"
)

type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

type SyncStatus string

const (
	StatusSynced    SyncStatus = "synced"
	StatusSyncing   SyncStatus = "syncing"
	StatusOutOfSync SyncStatus = "out_of_sync"
)

// State is the engine's explicit processing state. Applying means a remote
// message is being translated into a local media mutation; outbound commands
// are refused until the settle window expires so that the media events the
// mutation provokes are never re-broadcast.
type State string

const (
	StateIdle     State = "idle"
	StateApplying State = "applying"
)

// Bus is the slice of the transport client the engine needs.
type Bus interface {
	Send(msg domain.SyncMessage) bool
	Connected() bool
}

// Options tunes the engine. Zero values fall back to protocol defaults.
type Options struct {
	SettleWindow  time.Duration
	StaleAfter    time.Duration
	StalePoll     time.Duration
	SeekTolerance float64
}

func (o *Options) setDefaults() {
	if o.SettleWindow <= 0 {
		o.SettleWindow = 500 * time.Millisecond
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 10 * time.Second
	}
	if o.StalePoll <= 0 {
		o.StalePoll = 5 * time.Second
	}
	if o.SeekTolerance <= 0 {
		o.SeekTolerance = 1
	}
}

// Engine is the single source of truth for what the local player should be
// doing, reconciling host authority with network causality.
type Engine struct {
	role   Role
	player media.Player
	bus    Bus
	log    *slog.Logger
	opts   Options

	// OnChat receives chat, reaction and typing messages. They bypass the
	// state machine entirely.
	OnChat func(msg *domain.SyncMessage)
	// OnFileChanged receives the descriptor of the new active item; the
	// session is responsible for swapping the playlist selection.
	OnFileChanged func(data *domain.FileData)
	// OnStatus observes sync-status transitions.
	OnStatus func(status SyncStatus)

	mu            sync.Mutex
	applyingUntil time.Time
	status        SyncStatus
	lastSyncAt    time.Time
	requested     bool
	settleTimer   *time.Timer
	staleStop     chan struct{}
	staleOnce     sync.Once
}

func NewEngine(role Role, player media.Player, bus Bus, log *slog.Logger, opts Options) *Engine {
	if log == nil {
		log = slog.Default()
	}
	opts.setDefaults()
	return &Engine{
		role:      role,
		player:    player,
		bus:       bus,
		log:       log.With(slog.String("role", string(role))),
		opts:      opts,
		status:    StatusSynced,
		staleStop: make(chan struct{}),
	}
}

func (e *Engine) Role() Role { return e.role }

// State reports Idle or Applying.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applyingLocked() {
		return StateApplying
	}
	return StateIdle
}

// Status reports the derived sync status.
func (e *Engine) Status() SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// HandleMessage classifies one inbound message and applies its effect.
// Each message instance is handled at most once.
func (e *Engine) HandleMessage(msg *domain.SyncMessage) {
	if msg == nil {
		return
	}
	if !msg.MarkProcessed() {
		e.log.Debug("duplicate delivery ignored", slog.String("type", string(msg.Type)))
		return
	}

	if !msg.IsSyncType() {
		e.routePresentation(msg)
		return
	}

	e.mu.Lock()
	e.lastSyncAt = time.Now()
	wasStale := e.status == StatusOutOfSync
	e.mu.Unlock()
	if wasStale {
		e.transition(StatusSynced)
	}

	mutated := e.apply(msg)

	if mutated {
		e.enterApplying()
	}
}

func (e *Engine) apply(msg *domain.SyncMessage) bool {
	switch msg.Type {
	case domain.MessageTypePlay:
		if e.role == RoleHost || e.player.IsPlaying() {
			return false
		}
		if err := e.player.Play(); err != nil {
			e.log.Warn("playback refused", sl.Err(err))
		}
		return true

	case domain.MessageTypePause:
		if e.role == RoleHost || !e.player.IsPlaying() {
			return false
		}
		e.player.Pause()
		return true

	case domain.MessageTypeSeek:
		if e.role == RoleHost {
			return false
		}
		if math.Abs(e.player.CurrentTime()-msg.Timestamp) <= e.opts.SeekTolerance {
			return false
		}
		e.player.Seek(msg.Timestamp)
		return true

	case domain.MessageTypeSyncRequest:
		if e.role != RoleHost {
			return false
		}
		// Responses are not gated: a host answering a late joiner is not
		// re-broadcasting somebody else's command.
		e.bus.Send(domain.SyncMessage{
			Type:      domain.MessageTypeSyncResponse,
			Timestamp: e.player.CurrentTime(),
			IsPlaying: e.player.IsPlaying(),
		})
		return false

	case domain.MessageTypeSyncResponse:
		if e.role == RoleHost {
			return false
		}
		e.player.Seek(msg.Timestamp)
		if msg.IsPlaying && !e.player.IsPlaying() {
			if err := e.player.Play(); err != nil {
				e.log.Warn("playback refused", sl.Err(err))
			}
		} else if !msg.IsPlaying && e.player.IsPlaying() {
			e.player.Pause()
		}
		return true

	case domain.MessageTypeFileChanged:
		if e.role == RoleHost {
			return false
		}
		if msg.FileData == nil {
			e.log.Warn("file_changed without file data")
			return false
		}
		if e.OnFileChanged != nil {
			e.OnFileChanged(msg.FileData)
		}
		return true
	}

	return false
}

func (e *Engine) routePresentation(msg *domain.SyncMessage) {
	if e.OnChat != nil {
		e.OnChat(msg)
	}
}

// HandleConnectionUp implements the join protocol: a viewer asks the host
// for the current position exactly once per established connection.
func (e *Engine) HandleConnectionUp() {
	if e.role == RoleHost {
		return
	}

	e.mu.Lock()
	if e.requested {
		e.mu.Unlock()
		return
	}
	e.requested = true
	e.mu.Unlock()

	e.log.Info("requesting sync from host")
	e.bus.Send(domain.SyncMessage{Type: domain.MessageTypeSyncRequest})
}

// HandleConnectionDown re-arms the join handshake for the next connection.
func (e *Engine) HandleConnectionDown() {
	e.mu.Lock()
	e.requested = false
	e.mu.Unlock()
}

// SendPlay broadcasts a play command. Host-only; refused while a remote
// change is being applied or while disconnected.
func (e *Engine) SendPlay() bool {
	if !e.canSend("play") {
		return false
	}
	return e.bus.Send(domain.SyncMessage{Type: domain.MessageTypePlay})
}

// SendPause broadcasts a pause command under the same gating as SendPlay.
func (e *Engine) SendPause() bool {
	if !e.canSend("pause") {
		return false
	}
	return e.bus.Send(domain.SyncMessage{Type: domain.MessageTypePause})
}

// SendSeek broadcasts an absolute target position in seconds.
func (e *Engine) SendSeek(timestamp float64) bool {
	if !e.canSend("seek") {
		return false
	}
	return e.bus.Send(domain.SyncMessage{
		Type:      domain.MessageTypeSeek,
		Timestamp: timestamp,
	})
}

// SendFileChanged broadcasts the descriptor of the newly selected item.
func (e *Engine) SendFileChanged(fileID, fileName, fileType string, duration float64) bool {
	if !e.canSend("file_changed") {
		return false
	}
	return e.bus.Send(domain.SyncMessage{
		Type: domain.MessageTypeFileChanged,
		FileData: &domain.FileData{
			FileID:          fileID,
			FileName:        fileName,
			FileType:        fileType,
			DurationSeconds: duration,
		},
	})
}

func (e *Engine) canSend(cmd string) bool {
	if e.role != RoleHost {
		e.log.Debug("command refused, not host", slog.String("command", cmd))
		return false
	}

	e.mu.Lock()
	applying := e.applyingLocked()
	e.mu.Unlock()
	if applying {
		e.log.Debug("command refused, applying remote change", slog.String("command", cmd))
		return false
	}

	if !e.bus.Connected() {
		e.log.Debug("command refused, disconnected", slog.String("command", cmd))
		return false
	}

	return true
}

// StartStaleness launches the advisory staleness detector. It only flips
// the status indicator; it deliberately does not re-issue sync_request, so
// an out-of-sync viewer stays out of sync until fresh traffic arrives.
func (e *Engine) StartStaleness() {
	if e.role == RoleHost {
		return
	}

	go func() {
		ticker := time.NewTicker(e.opts.StalePoll)
		defer ticker.Stop()
		for {
			select {
			case <-e.staleStop:
				return
			case <-ticker.C:
				e.checkStale()
			}
		}
	}()
}

// Stop cancels the settle timer and the staleness detector.
func (e *Engine) Stop() {
	e.staleOnce.Do(func() { close(e.staleStop) })

	e.mu.Lock()
	if e.settleTimer != nil {
		e.settleTimer.Stop()
		e.settleTimer = nil
	}
	e.mu.Unlock()
}

func (e *Engine) checkStale() {
	e.mu.Lock()
	stale := !e.lastSyncAt.IsZero() &&
		time.Since(e.lastSyncAt) > e.opts.StaleAfter &&
		!e.applyingLocked() &&
		e.player.IsPlaying()
	e.mu.Unlock()

	if stale {
		e.transition(StatusOutOfSync)
	}
}

func (e *Engine) enterApplying() {
	e.mu.Lock()
	e.applyingUntil = time.Now().Add(e.opts.SettleWindow)
	if e.settleTimer != nil {
		e.settleTimer.Stop()
	}
	e.settleTimer = time.AfterFunc(e.opts.SettleWindow, e.settle)
	e.mu.Unlock()

	e.transition(StatusSyncing)
}

func (e *Engine) settle() {
	e.mu.Lock()
	e.applyingUntil = time.Time{}
	e.settleTimer = nil
	e.mu.Unlock()

	e.transition(StatusSynced)
}

func (e *Engine) applyingLocked() bool {
	return time.Now().Before(e.applyingUntil)
}

func (e *Engine) transition(status SyncStatus) {
	e.mu.Lock()
	if e.status == status {
		e.mu.Unlock()
		return
	}
	e.status = status
	e.mu.Unlock()

	if e.OnStatus != nil {
		e.OnStatus(status)
	}
}
