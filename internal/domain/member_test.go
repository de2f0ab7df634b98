package domain

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEnqueueEventDropsWhenFull(t *testing.T) {
	m := NewMember(uuid.New(), "alice", false)

	for i := 0; i < cap(m.Events); i++ {
		assert.True(t, m.EnqueueEvent(SyncMessage{Type: MessageTypeReaction}))
	}
	assert.False(t, m.EnqueueEvent(SyncMessage{Type: MessageTypeReaction}))
}

func TestEnqueueEventAfterClose(t *testing.T) {
	m := NewMember(uuid.New(), "alice", false)

	m.CloseEvents()
	m.CloseEvents()

	assert.False(t, m.EnqueueEvent(SyncMessage{Type: MessageTypeReaction}))

	_, open := <-m.Events
	assert.False(t, open)
}

func TestEnqueueEventRacingClose(t *testing.T) {
	// A broadcaster holding the member while another goroutine tears it
	// down must drop the event, never panic on a closed channel.
	for i := 0; i < 100; i++ {
		m := NewMember(uuid.New(), "alice", false)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.EnqueueEvent(SyncMessage{Type: MessageTypeReaction})
			}
		}()
		go func() {
			defer wg.Done()
			m.CloseEvents()
		}()
		wg.Wait()
	}
}
