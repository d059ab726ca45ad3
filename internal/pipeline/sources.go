package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/hillview/lookout/pkg/updates"
	"github.com/hillview/lookout/pkg/viewbus"
)

// processSources folds any newly delivered source batches into the per-source
// store and rebuilds the candidate set from the enabled sources. An internal
// re-trigger rebuilds from the batches already held (used after a config
// change). Polls the abort flag between sources; an aborted rebuild leaves
// the previous candidate set in place.
func (p *Pipeline) processSources(ctx context.Context, snap updates.Snapshot, abort *updates.Abort) error {
	if snap.Payload != nil {
		batches, ok := snap.Payload.([]viewbus.SourceBatch)
		if !ok {
			return fmt.Errorf("sources payload has unexpected type %T", snap.Payload)
		}
		p.mu.Lock()
		for _, b := range batches {
			p.batches[b.Source] = b.Photos
		}
		p.mu.Unlock()
	}

	p.mu.Lock()
	enabled := p.cfg.EnabledSet()
	names := make([]string, 0, len(p.batches))
	for name := range p.batches {
		if enabled[name] {
			names = append(names, name)
		}
	}
	p.mu.Unlock()
	sort.Strings(names)

	var candidates []viewbus.Photo
	for _, name := range names {
		if abort.Requested() {
			p.logEvent("sources_aborted", map[string]interface{}{
				"seq": int64(snap.Seq),
			})
			return nil
		}
		p.mu.Lock()
		candidates = append(candidates, p.batches[name]...)
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.candidates = candidates
	p.mu.Unlock()

	p.logEvent("candidates_rebuilt", map[string]interface{}{
		"seq":        int64(snap.Seq),
		"sources":    len(names),
		"candidates": len(candidates),
	})

	// Visibility is derived from the candidate set; rerun area against the
	// box already held.
	p.trigger.SubmitInternal(updates.CategoryArea)
	return nil
}
