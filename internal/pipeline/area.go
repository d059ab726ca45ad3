package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/hillview/lookout/pkg/updates"
	"github.com/hillview/lookout/pkg/viewbus"
)

// abortCheckStride is how many photos the area filter processes between
// abort-flag polls.
const abortCheckStride = 256

// processArea filters the candidate set against the visible bounding box,
// publishes the visible photo list, and re-triggers bearing ranking. With
// no area known yet there is nothing to derive. An aborted filter leaves
// the previous visible list in place and publishes nothing.
func (p *Pipeline) processArea(ctx context.Context, snap updates.Snapshot, abort *updates.Abort) error {
	if snap.Payload == nil {
		// No area has ever been submitted; internal re-triggers before the
		// first map viewport arrive here.
		return nil
	}
	area, ok := snap.Payload.(viewbus.Area)
	if !ok {
		return fmt.Errorf("area payload has unexpected type %T", snap.Payload)
	}
	if !area.Valid() {
		return fmt.Errorf("area %+v is not a well-formed bounding box", area)
	}

	p.mu.Lock()
	candidates := p.candidates
	maxVisible := p.cfg.MaxVisible
	p.mu.Unlock()

	var visible []viewbus.Photo
	for i, photo := range candidates {
		if i%abortCheckStride == 0 && abort.Requested() {
			p.logEvent("area_aborted", map[string]interface{}{
				"seq": int64(snap.Seq),
			})
			return nil
		}
		if area.Contains(photo.Lat, photo.Lon) {
			visible = append(visible, photo)
		}
	}

	// Same presentation order the backend uses for bbox queries.
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].CompassAngle < visible[j].CompassAngle
	})
	if maxVisible > 0 && len(visible) > maxVisible {
		visible = visible[:maxVisible]
	}

	p.mu.Lock()
	p.visible = visible
	p.mu.Unlock()

	p.logEvent("visible_derived", map[string]interface{}{
		"seq":     int64(snap.Seq),
		"visible": len(visible),
	})

	if err := p.publish(ctx, &viewbus.ViewEvent{
		Kind:   viewbus.ViewEventVisible,
		Photos: visible,
		Seq:    int64(snap.Seq),
	}); err != nil {
		return fmt.Errorf("failed to publish visible photos: %w", err)
	}

	// The best-facing selection depends on the visible list; rerun bearing
	// against the direction already held.
	p.trigger.SubmitInternal(updates.CategoryBearing)
	return nil
}
