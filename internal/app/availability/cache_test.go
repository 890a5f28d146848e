package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villabook/internal/domain/reservation"
	"villabook/internal/infra/storage/memory"
)

func TestRemoteCache_RunFollowsChanges(t *testing.T) {
	store := memory.NewReservationStore()
	b := NewBroadcaster()
	changes, cancelSub := b.Subscribe(4)
	defer cancelSub()

	cache := NewRemoteCache(store, b, nil)
	assert.False(t, cache.Loaded())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cache.Run(ctx) }()

	select {
	case c := <-changes:
		assert.Equal(t, ChangeReservations, c.Kind)
	case <-time.After(time.Second):
		t.Fatal("initial load not broadcast")
	}
	assert.True(t, cache.Loaded())

	require.Eventually(t, func() bool { return store.Watchers() == 1 }, time.Second, 5*time.Millisecond)
	_, err := store.Create(context.Background(), stored("VM-1", "4D", "2026-01-10", "2026-01-13", reservation.StatusConfirmed))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		list, _ := cache.Reservations()
		return len(list) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestBroadcaster_SlowSubscriberKeepsLatest(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(1)
	b.Publish(Change{Kind: ChangeBlocks})
	b.Publish(Change{Kind: ChangeWritten, UnitID: "4D"})

	got := <-ch
	assert.Equal(t, ChangeWritten, got.Kind)
	assert.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()
	assert.Zero(t, b.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}
