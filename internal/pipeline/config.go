package pipeline

import (
	"context"
	"fmt"

	"github.com/hillview/lookout/pkg/updates"
	"github.com/hillview/lookout/pkg/viewbus"
)

// processConfig applies a new source configuration and re-triggers source
// derivation so the candidate set reflects it. An internal re-trigger with
// no payload re-applies the configuration already held.
func (p *Pipeline) processConfig(ctx context.Context, snap updates.Snapshot, abort *updates.Abort) error {
	if snap.Payload != nil {
		cfg, ok := snap.Payload.(viewbus.SourceConfig)
		if !ok {
			return fmt.Errorf("config payload has unexpected type %T", snap.Payload)
		}
		p.mu.Lock()
		p.cfg = cfg
		p.mu.Unlock()
	}

	p.mu.Lock()
	enabled := len(p.cfg.Enabled)
	p.mu.Unlock()

	p.logEvent("config_applied", map[string]interface{}{
		"seq":             int64(snap.Seq),
		"enabled_sources": enabled,
	})

	// Everything downstream derives from the config; rerun sources against
	// the batches already held.
	p.trigger.SubmitInternal(updates.CategorySources)
	return nil
}
