package viewbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-instance", client.instanceName)
		assert.NotEmpty(t, client.ClientID())
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "instance name cannot be empty")
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestPublishUpdateValidation(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("rejects unknown category", func(t *testing.T) {
		err := client.PublishUpdate(ctx, &UpdateEvent{Category: "zoom", Payload: json.RawMessage("1")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown update category")
	})

	t.Run("rejects missing payload on non-internal event", func(t *testing.T) {
		err := client.PublishUpdate(ctx, &UpdateEvent{Category: "area"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no payload")
	})

	t.Run("accepts internal event without payload", func(t *testing.T) {
		err := client.PublishUpdate(ctx, &UpdateEvent{Category: "sources", Internal: true})
		assert.NoError(t, err)
	})
}

func TestUpdateEventRoundTrip(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeUpdateEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	// Give the pub/sub goroutine time to subscribe before publishing;
	// Redis Pub/Sub drops messages with no subscribers.
	time.Sleep(50 * time.Millisecond)

	payload, err := json.Marshal(Area{TopLeftLat: 47.7, TopLeftLon: -122.4, BottomRightLat: 47.5, BottomRightLon: -122.2})
	require.NoError(t, err)

	err = client.PublishUpdate(ctx, &UpdateEvent{Category: "area", Payload: payload})
	require.NoError(t, err)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "area", ev.Category)
		assert.Equal(t, client.ClientID(), ev.ClientID, "publisher stamps its client id")

		_, decoded, err := ev.DecodePayload()
		require.NoError(t, err)
		area, ok := decoded.(Area)
		require.True(t, ok)
		assert.Equal(t, 47.7, area.TopLeftLat)
	case <-time.After(2 * time.Second):
		t.Fatal("update event never arrived")
	}
}

func TestViewEventRoundTrip(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeViewEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	time.Sleep(50 * time.Millisecond)

	err = client.PublishView(ctx, &ViewEvent{
		Kind: ViewEventVisible,
		Photos: []Photo{
			{ID: "p1", Lat: 47.6, Lon: -122.3, CompassAngle: 220, Source: "hillview"},
		},
		Seq: 9,
	})
	require.NoError(t, err)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, ViewEventVisible, ev.Kind)
		require.Len(t, ev.Photos, 1)
		assert.Equal(t, "p1", ev.Photos[0].ID)
		assert.Equal(t, int64(9), ev.Seq)
		assert.NotZero(t, ev.PublishedAtMs, "publish stamps the publication time")
	case <-time.After(2 * time.Second):
		t.Fatal("view event never arrived")
	}
}

func TestSubscriptionReportsMalformedEvents(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeUpdateEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	time.Sleep(50 * time.Millisecond)

	mr.Publish(UpdateEventsChannel("test-instance"), "{not json")

	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "failed to unmarshal")
	case <-time.After(2 * time.Second):
		t.Fatal("malformed event was not reported")
	}

	// The subscription survives and still delivers good events.
	err = client.PublishUpdate(ctx, &UpdateEvent{Category: "bearing", Payload: json.RawMessage("90")})
	require.NoError(t, err)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "bearing", ev.Category)
	case <-time.After(2 * time.Second):
		t.Fatal("good event after a malformed one never arrived")
	}
}

func TestInstanceNamespacing(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	a, err := NewClient(&redis.Options{Addr: mr.Addr()}, "instance-a")
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	b, err := NewClient(&redis.Options{Addr: mr.Addr()}, "instance-b")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	ctx := context.Background()
	subA, err := a.SubscribeViewEvents(ctx)
	require.NoError(t, err)
	defer subA.Close()

	time.Sleep(50 * time.Millisecond)

	err = b.PublishView(ctx, &ViewEvent{Kind: ViewEventBest, Bearing: 12})
	require.NoError(t, err)

	select {
	case <-subA.Events():
		t.Fatal("instance-a received instance-b's event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscriptionCloseEndsChannels(t *testing.T) {
	client, _ := setupTestClient(t)

	sub, err := client.SubscribeUpdateEvents(context.Background())
	require.NoError(t, err)

	sub.Close()

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "events channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("events channel never closed")
	}
}
