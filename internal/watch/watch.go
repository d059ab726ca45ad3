package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/hillview/lookout/pkg/viewbus"
)

// Follow subscribes to an instance's view events and invokes fn for each
// one until ctx is cancelled. Subscription errors (malformed events) are
// skipped; the stream keeps running. Returns nil on cancellation.
func Follow(ctx context.Context, client *viewbus.Client, fn func(*viewbus.ViewEvent)) error {
	sub, err := client.SubscribeViewEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to view events: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			fn(ev)
		case _, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			// Malformed events are non-fatal; keep following.
		}
	}
}

// AwaitView blocks until a view event of the given kind arrives, or the
// timeout expires. Useful for tests and scripts that need to observe one
// derivation settle.
func AwaitView(ctx context.Context, client *viewbus.Client, kind viewbus.ViewEventKind, timeout time.Duration) (*viewbus.ViewEvent, error) {
	sub, err := client.SubscribeViewEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to view events: %w", err)
	}
	defer sub.Close()

	timeoutCh := time.After(timeout)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for %s view event after %v", kind, timeout)
		case ev, ok := <-sub.Events():
			if !ok {
				return nil, fmt.Errorf("view event stream closed")
			}
			if ev.Kind == kind {
				return ev, nil
			}
		case <-sub.Errors():
			// Skip malformed events while waiting.
		}
	}
}
