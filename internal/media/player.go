package media

import (
	"sync"
	"time"

	"github.com/armahc19/watchparty-frontend/internal/domain"
)

// Player is the playable element the sync core drives. The browser media
// element is one implementation; ClockPlayer is a headless one.
type Player interface {
	Play() error
	Pause()
	Seek(seconds float64)
	Load(item *domain.PlaylistItem)
	CurrentTime() float64
	IsPlaying() bool
	Duration() float64
}

// ClockPlayer simulates playback by advancing its position with the wall
// clock while playing. Position is anchored on every play/pause/seek so it
// never drifts from the transitions applied to it.
type ClockPlayer struct {
	mu      sync.Mutex
	item    *domain.PlaylistItem
	playing bool
	base    float64
	anchor  time.Time
	now     func() time.Time

	// playErr, when set, makes Play fail the way a browser rejects
	// autoplay without a user gesture.
	playErr error
}

func NewClockPlayer() *ClockPlayer {
	return &ClockPlayer{now: time.Now}
}

// SetClock replaces the time source. Used by tests to drive position
// deterministically.
func (p *ClockPlayer) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.anchor = now()
	p.now = now
}

// FailPlayback makes subsequent Play calls return err. Pass nil to restore.
func (p *ClockPlayer) FailPlayback(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playErr = err
}

func (p *ClockPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playErr != nil {
		return p.playErr
	}
	if p.playing {
		return nil
	}

	p.playing = true
	p.anchor = p.now()
	return nil
}

func (p *ClockPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return
	}

	p.base = p.positionLocked()
	p.playing = false
}

func (p *ClockPlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.base = p.clampLocked(seconds)
	p.anchor = p.now()
}

// Load swaps the active item and resets playback, like replacing the
// element's source.
func (p *ClockPlayer) Load(item *domain.PlaylistItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.item = item
	p.playing = false
	p.base = 0
	p.anchor = p.now()
}

func (p *ClockPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *ClockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *ClockPlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.item == nil {
		return 0
	}
	return p.item.DurationSeconds
}

func (p *ClockPlayer) Item() *domain.PlaylistItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.item
}

func (p *ClockPlayer) positionLocked() float64 {
	if !p.playing {
		return p.base
	}
	return p.clampLocked(p.base + p.now().Sub(p.anchor).Seconds())
}

func (p *ClockPlayer) clampLocked(seconds float64) float64 {
	if seconds < 0 {
		return 0
	}
	if p.item != nil && p.item.DurationSeconds > 0 && seconds > p.item.DurationSeconds {
		return p.item.DurationSeconds
	}
	return seconds
}
