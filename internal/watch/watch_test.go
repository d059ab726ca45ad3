package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hillview/lookout/pkg/viewbus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T) *viewbus.Client {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := viewbus.NewClient(&redis.Options{Addr: mr.Addr()}, "watch-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFollowDeliversEvents(t *testing.T) {
	client := setupClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []viewbus.ViewEventKind

	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, client, func(ev *viewbus.ViewEvent) {
			mu.Lock()
			seen = append(seen, ev.Kind)
			mu.Unlock()
		})
	}()

	time.Sleep(50 * time.Millisecond)

	require.NoError(t, client.PublishView(ctx, &viewbus.ViewEvent{Kind: viewbus.ViewEventVisible}))
	require.NoError(t, client.PublishView(ctx, &viewbus.ViewEvent{Kind: viewbus.ViewEventBest}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []viewbus.ViewEventKind{viewbus.ViewEventVisible, viewbus.ViewEventBest}, seen)
}

func TestAwaitViewFiltersByKind(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	result := make(chan *viewbus.ViewEvent, 1)
	errCh := make(chan error, 1)
	go func() {
		ev, err := AwaitView(ctx, client, viewbus.ViewEventBest, 2*time.Second)
		result <- ev
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)

	// A visible event first; AwaitView must hold out for the best event.
	require.NoError(t, client.PublishView(ctx, &viewbus.ViewEvent{Kind: viewbus.ViewEventVisible}))
	require.NoError(t, client.PublishView(ctx, &viewbus.ViewEvent{Kind: viewbus.ViewEventBest, Bearing: 88}))

	select {
	case ev := <-result:
		require.NoError(t, <-errCh)
		require.NotNil(t, ev)
		assert.Equal(t, viewbus.ViewEventBest, ev.Kind)
		assert.Equal(t, 88.0, ev.Bearing)
	case <-time.After(3 * time.Second):
		t.Fatal("AwaitView never returned")
	}
}

func TestAwaitViewTimesOut(t *testing.T) {
	client := setupClient(t)

	_, err := AwaitView(context.Background(), client, viewbus.ViewEventBest, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting")
}
