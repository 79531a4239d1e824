package engagement

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()

	a, _, _ := newTestTracker(120)
	b, _, _ := newTestTracker(120)
	require.True(t, registry.Add(a))
	require.True(t, registry.Add(b))

	ctx := context.Background()
	a.Play(ctx)
	b.Play(ctx)

	assert.Equal(t, a, registry.Get(a.SessionID()))
	assert.Equal(t, b, registry.Get(b.SessionID()))

	registry.Remove(a.SessionID())
	assert.Nil(t, registry.Get(a.SessionID()))
	assert.Equal(t, StateEnded, a.State())

	registry.CloseAll()
	assert.Nil(t, registry.Get(b.SessionID()))
	assert.Equal(t, StateEnded, b.State())
}

func TestRegistryRejectsAddAfterClose(t *testing.T) {
	registry := NewRegistry()
	registry.CloseAll()

	tracker := New(Config{Emitter: &fakeEmitter{}, Log: zerolog.Nop()})
	tracker.Play(context.Background())

	assert.False(t, registry.Add(tracker))
	assert.Equal(t, StateEnded, tracker.State())
	assert.Nil(t, registry.Get(tracker.SessionID()))
}
