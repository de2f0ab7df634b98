package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armahc19/watchparty-frontend/internal/domain"
	"github.com/armahc19/watchparty-frontend/lib/logger/handlers/slogdiscard"
)

type fakePlayer struct {
	mu       sync.Mutex
	playing  bool
	position float64
	item     *domain.PlaylistItem
	seeks    []float64
	playErr  error
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	p.playing = true
	return nil
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

func (p *fakePlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = seconds
	p.seeks = append(p.seeks, seconds)
}

func (p *fakePlayer) Load(item *domain.PlaylistItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.item = item
	p.playing = false
	p.position = 0
}

func (p *fakePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.item == nil {
		return 0
	}
	return p.item.DurationSeconds
}

func (p *fakePlayer) seekCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seeks)
}

type fakeBus struct {
	mu        sync.Mutex
	sends     []domain.SyncMessage
	connected bool
}

func (b *fakeBus) Send(msg domain.SyncMessage) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return false
	}
	b.sends = append(b.sends, msg)
	return true
}

func (b *fakeBus) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBus) sent() []domain.SyncMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.SyncMessage, len(b.sends))
	copy(out, b.sends)
	return out
}

func newTestEngine(t *testing.T, role Role, opts Options) (*Engine, *fakePlayer, *fakeBus) {
	t.Helper()
	player := &fakePlayer{}
	bus := &fakeBus{connected: true}
	engine := NewEngine(role, player, bus, slogdiscard.NewDiscardLogger(), opts)
	t.Cleanup(engine.Stop)
	return engine, player, bus
}

func TestViewerAppliesPlayPauseSeek(t *testing.T) {
	engine, player, _ := newTestEngine(t, RoleViewer, Options{})

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypePlay})
	assert.True(t, player.IsPlaying())

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypePause})
	assert.False(t, player.IsPlaying())

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypeSeek, Timestamp: 42})
	assert.Equal(t, 42.0, player.CurrentTime())
}

func TestHostIgnoresViewerDirectedMessages(t *testing.T) {
	engine, player, _ := newTestEngine(t, RoleHost, Options{})

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypePlay})
	assert.False(t, player.IsPlaying())

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypeSeek, Timestamp: 42})
	assert.Zero(t, player.CurrentTime())

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypeSyncResponse, Timestamp: 99, IsPlaying: true})
	assert.Zero(t, player.CurrentTime())
	assert.False(t, player.IsPlaying())
}

func TestNoFeedbackLoopDuringSettleWindow(t *testing.T) {
	// A remote pause applied locally must not produce any outbound
	// message while the settle window is open.
	engine, player, bus := newTestEngine(t, RoleViewer, Options{SettleWindow: 200 * time.Millisecond})

	require.NoError(t, player.Play())
	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypePause})

	assert.False(t, player.IsPlaying())
	assert.Equal(t, StateApplying, engine.State())

	engine.SendPause()
	engine.SendPlay()
	engine.SendSeek(10)
	assert.Empty(t, bus.sent())

	assert.Eventually(t, func() bool {
		return engine.State() == StateIdle
	}, time.Second, 10*time.Millisecond)
}

func TestHostCommandRefusedWhileApplying(t *testing.T) {
	engine, _, bus := newTestEngine(t, RoleHost, Options{SettleWindow: 150 * time.Millisecond})

	// Force the engine into Applying the way a remote mutation would.
	engine.enterApplying()

	assert.False(t, engine.SendPlay())
	assert.Empty(t, bus.sent())

	assert.Eventually(t, func() bool {
		return engine.SendPlay()
	}, time.Second, 10*time.Millisecond)
	assert.NotEmpty(t, bus.sent())
}

func TestViewerNeverSends(t *testing.T) {
	engine, _, bus := newTestEngine(t, RoleViewer, Options{})

	assert.False(t, engine.SendPlay())
	assert.False(t, engine.SendPause())
	assert.False(t, engine.SendSeek(12))
	assert.False(t, engine.SendFileChanged("1", "a.mp4", "video/mp4", 60))

	assert.Empty(t, bus.sent())
}

func TestMessageHandledExactlyOnce(t *testing.T) {
	engine, player, _ := newTestEngine(t, RoleViewer, Options{})

	msg := &domain.SyncMessage{Type: domain.MessageTypeSeek, Timestamp: 42}
	engine.HandleMessage(msg)
	engine.HandleMessage(msg)

	assert.Equal(t, 1, player.seekCount())
}

func TestSeekWithinToleranceIgnored(t *testing.T) {
	engine, player, _ := newTestEngine(t, RoleViewer, Options{})

	player.position = 41.5
	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypeSeek, Timestamp: 42})

	assert.Zero(t, player.seekCount())
	assert.Equal(t, StateIdle, engine.State())
}

func TestHostAnswersSyncRequest(t *testing.T) {
	engine, player, bus := newTestEngine(t, RoleHost, Options{})

	player.position = 120
	require.NoError(t, player.Play())

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypeSyncRequest})

	sent := bus.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.MessageTypeSyncResponse, sent[0].Type)
	assert.Equal(t, 120.0, sent[0].Timestamp)
	assert.True(t, sent[0].IsPlaying)

	// Answering is not a media mutation, so the host stays idle.
	assert.Equal(t, StateIdle, engine.State())
}

func TestLateJoinerConvergesOnSyncResponse(t *testing.T) {
	engine, player, _ := newTestEngine(t, RoleViewer, Options{})

	// Pre-join state is irrelevant; the response is adopted as-is.
	player.position = 7
	require.NoError(t, player.Play())

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypeSyncResponse, Timestamp: 120, IsPlaying: true})
	assert.Equal(t, 120.0, player.CurrentTime())
	assert.True(t, player.IsPlaying())

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypeSyncResponse, Timestamp: 30, IsPlaying: false})
	assert.Equal(t, 30.0, player.CurrentTime())
	assert.False(t, player.IsPlaying())
}

func TestSyncRequestSentOncePerConnection(t *testing.T) {
	engine, _, bus := newTestEngine(t, RoleViewer, Options{})

	engine.HandleConnectionUp()
	engine.HandleConnectionUp()
	assert.Len(t, bus.sent(), 1)
	assert.Equal(t, domain.MessageTypeSyncRequest, bus.sent()[0].Type)

	// A reconnect re-arms the handshake.
	engine.HandleConnectionDown()
	engine.HandleConnectionUp()
	assert.Len(t, bus.sent(), 2)
}

func TestHostNeverRequestsSync(t *testing.T) {
	engine, _, bus := newTestEngine(t, RoleHost, Options{})

	engine.HandleConnectionUp()
	assert.Empty(t, bus.sent())
}

func TestFileChangedForwardsDescriptor(t *testing.T) {
	engine, _, _ := newTestEngine(t, RoleViewer, Options{})

	var got *domain.FileData
	engine.OnFileChanged = func(data *domain.FileData) { got = data }

	engine.HandleMessage(&domain.SyncMessage{
		Type: domain.MessageTypeFileChanged,
		FileData: &domain.FileData{
			FileID:          "2",
			FileName:        "episode-2.mp4",
			FileType:        "video/mp4",
			DurationSeconds: 1800,
		},
	})

	require.NotNil(t, got)
	assert.Equal(t, "2", got.FileID)
}

func TestChatBypassesStateMachine(t *testing.T) {
	engine, _, _ := newTestEngine(t, RoleViewer, Options{})

	var chats []*domain.SyncMessage
	engine.OnChat = func(msg *domain.SyncMessage) { chats = append(chats, msg) }

	for _, typ := range []domain.MessageType{
		domain.MessageTypeChat,
		domain.MessageTypeReaction,
		domain.MessageTypeTypingStart,
		domain.MessageTypeTypingStop,
	} {
		engine.HandleMessage(&domain.SyncMessage{Type: typ})
	}

	assert.Len(t, chats, 4)
	assert.Equal(t, StateIdle, engine.State())
	assert.Equal(t, StatusSynced, engine.Status())
}

func TestStalenessIsAdvisoryOnly(t *testing.T) {
	// Known gap carried over deliberately: going out of sync flips the
	// status indicator but never re-issues sync_request on its own.
	engine, player, bus := newTestEngine(t, RoleViewer, Options{
		SettleWindow: 10 * time.Millisecond,
		StaleAfter:   50 * time.Millisecond,
		StalePoll:    10 * time.Millisecond,
	})
	engine.StartStaleness()

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypePlay})
	require.True(t, player.IsPlaying())

	assert.Eventually(t, func() bool {
		return engine.Status() == StatusOutOfSync
	}, time.Second, 10*time.Millisecond)

	assert.Empty(t, bus.sent())

	// Fresh traffic flips it back.
	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypePause})
	assert.Eventually(t, func() bool {
		return engine.Status() == StatusSynced
	}, time.Second, 10*time.Millisecond)
}

func TestStalenessIgnoredWhilePaused(t *testing.T) {
	engine, player, _ := newTestEngine(t, RoleViewer, Options{
		SettleWindow: 10 * time.Millisecond,
		StaleAfter:   30 * time.Millisecond,
		StalePoll:    10 * time.Millisecond,
	})
	engine.StartStaleness()

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypePause})
	require.False(t, player.IsPlaying())

	time.Sleep(150 * time.Millisecond)
	assert.NotEqual(t, StatusOutOfSync, engine.Status())
}

func TestStatusTransitionsAroundMutation(t *testing.T) {
	engine, _, _ := newTestEngine(t, RoleViewer, Options{SettleWindow: 50 * time.Millisecond})

	var transitions []SyncStatus
	var mu sync.Mutex
	engine.OnStatus = func(status SyncStatus) {
		mu.Lock()
		transitions = append(transitions, status)
		mu.Unlock()
	}

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypePlay})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transitions) == 2 &&
			transitions[0] == StatusSyncing &&
			transitions[1] == StatusSynced
	}, time.Second, 10*time.Millisecond)
}

func TestPlayRejectionIsContained(t *testing.T) {
	engine, player, _ := newTestEngine(t, RoleViewer, Options{})
	player.playErr = assert.AnError

	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypePlay})

	// The rejection is logged and swallowed; playback stays paused and
	// the engine keeps processing.
	assert.False(t, player.IsPlaying())
	player.playErr = nil
	engine.HandleMessage(&domain.SyncMessage{Type: domain.MessageTypePlay, Processed: false})
	assert.True(t, player.IsPlaying())
}
