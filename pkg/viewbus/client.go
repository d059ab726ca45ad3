package viewbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Pub/Sub operations for the view bus.
// All channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple
// goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
	clientID     string
}

// NewClient creates a new view bus client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: Lookout instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		clientID:     uuid.New().String(),
	}, nil
}

// ClientID returns the identifier this client stamps on the events it
// publishes.
func (c *Client) ClientID() string {
	return c.clientID
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PublishUpdate posts an inbound update event for the scheduler to consume.
// Validates the event before publishing and stamps the client id if unset.
func (c *Client) PublishUpdate(ctx context.Context, ev *UpdateEvent) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid update event: %w", err)
	}
	if ev.ClientID == "" {
		ev.ClientID = c.clientID
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal update event: %w", err)
	}

	channel := UpdateEventsChannel(c.instanceName)
	if err := c.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish update event: %w", err)
	}
	return nil
}

// PublishView posts a derived view event for the rendering layer.
// Stamps the publication time if unset.
func (c *Client) PublishView(ctx context.Context, ev *ViewEvent) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid view event: %w", err)
	}
	if ev.PublishedAtMs == 0 {
		ev.PublishedAtMs = time.Now().UnixMilli()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal view event: %w", err)
	}

	channel := ViewEventsChannel(c.instanceName)
	if err := c.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish view event: %w", err)
	}
	return nil
}

// UpdateSubscription delivers inbound update events.
type UpdateSubscription struct {
	events <-chan *UpdateEvent
	errors <-chan error
	cancel context.CancelFunc
}

// Events returns the channel of decoded update events.
func (s *UpdateSubscription) Events() <-chan *UpdateEvent { return s.events }

// Errors returns the channel of decode errors. Malformed messages are
// reported here and skipped; the subscription keeps running.
func (s *UpdateSubscription) Errors() <-chan error { return s.errors }

// Close stops the subscription and releases its resources.
func (s *UpdateSubscription) Close() { s.cancel() }

// SubscribeUpdateEvents subscribes to inbound update events for this
// instance. Caller must call subscription.Close() when done; context
// cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 16). Redis Pub/Sub is
// at-most-once: a subscriber that falls far behind may miss events, which
// the update model tolerates because every update supersedes the last.
func (c *Client) SubscribeUpdateEvents(ctx context.Context) (*UpdateSubscription, error) {
	events := make(chan *UpdateEvent, 16)
	errs := make(chan error, 16)
	subCtx, cancel := context.WithCancel(ctx)

	c.pump(subCtx, UpdateEventsChannel(c.instanceName), errs, func(payload string) {
		var ev UpdateEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			reportErr(subCtx, errs, fmt.Errorf("failed to unmarshal update event: %w", err))
			return
		}
		if err := ev.Validate(); err != nil {
			reportErr(subCtx, errs, fmt.Errorf("dropping update event: %w", err))
			return
		}
		select {
		case events <- &ev:
		case <-subCtx.Done():
		}
	}, func() {
		close(events)
		close(errs)
	})

	return &UpdateSubscription{events: events, errors: errs, cancel: cancel}, nil
}

// ViewSubscription delivers derived view events.
type ViewSubscription struct {
	events <-chan *ViewEvent
	errors <-chan error
	cancel context.CancelFunc
}

// Events returns the channel of decoded view events.
func (s *ViewSubscription) Events() <-chan *ViewEvent { return s.events }

// Errors returns the channel of decode errors.
func (s *ViewSubscription) Errors() <-chan error { return s.errors }

// Close stops the subscription and releases its resources.
func (s *ViewSubscription) Close() { s.cancel() }

// SubscribeViewEvents subscribes to derived view events for this instance.
// Same delivery semantics as SubscribeUpdateEvents.
func (c *Client) SubscribeViewEvents(ctx context.Context) (*ViewSubscription, error) {
	events := make(chan *ViewEvent, 16)
	errs := make(chan error, 16)
	subCtx, cancel := context.WithCancel(ctx)

	c.pump(subCtx, ViewEventsChannel(c.instanceName), errs, func(payload string) {
		var ev ViewEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			reportErr(subCtx, errs, fmt.Errorf("failed to unmarshal view event: %w", err))
			return
		}
		select {
		case events <- &ev:
		case <-subCtx.Done():
		}
	}, func() {
		close(events)
		close(errs)
	})

	return &ViewSubscription{events: events, errors: errs, cancel: cancel}, nil
}

// pump runs the shared subscription loop: it receives raw messages from the
// named channel and hands each payload to deliver, closing down when ctx is
// cancelled or the Pub/Sub stream ends.
func (c *Client) pump(ctx context.Context, channel string, errs chan<- error, deliver func(payload string), onClose func()) {
	pubsub := c.rdb.Subscribe(ctx, channel)

	go func() {
		defer onClose()
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				deliver(msg.Payload)
			}
		}
	}()
}

func reportErr(ctx context.Context, errs chan<- error, err error) {
	select {
	case errs <- err:
	case <-ctx.Done():
	}
}
