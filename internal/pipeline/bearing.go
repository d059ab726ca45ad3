package pipeline

import (
	"context"
	"fmt"

	"github.com/hillview/lookout/pkg/updates"
	"github.com/hillview/lookout/pkg/viewbus"
)

// processBearing ranks the visible photos by angular distance from the
// viewing bearing and publishes the best-facing selection. An internal
// re-trigger reranks against the last known bearing.
func (p *Pipeline) processBearing(ctx context.Context, snap updates.Snapshot, abort *updates.Abort) error {
	p.mu.Lock()
	bearing := p.bearing
	p.mu.Unlock()

	if snap.Payload != nil {
		deg, ok := snap.Payload.(float64)
		if !ok {
			return fmt.Errorf("bearing payload has unexpected type %T", snap.Payload)
		}
		bearing = deg
	}

	p.mu.Lock()
	visible := p.visible
	p.mu.Unlock()

	var best *viewbus.Photo
	bestDist := 0.0
	for i := range visible {
		d := viewbus.AngularDistance(bearing, visible[i].CompassAngle)
		if best == nil || d < bestDist {
			photo := visible[i]
			best = &photo
			bestDist = d
		}
	}

	p.mu.Lock()
	p.bearing = bearing
	p.best = best
	p.mu.Unlock()

	data := map[string]interface{}{
		"seq":     int64(snap.Seq),
		"bearing": bearing,
	}
	if best != nil {
		data["best"] = best.ID
	}
	p.logEvent("best_ranked", data)

	if err := p.publish(ctx, &viewbus.ViewEvent{
		Kind:    viewbus.ViewEventBest,
		Best:    best,
		Bearing: bearing,
		Seq:     int64(snap.Seq),
	}); err != nil {
		return fmt.Errorf("failed to publish best photo: %w", err)
	}
	return nil
}
