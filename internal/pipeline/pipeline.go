// Package pipeline implements the four recompute functions behind the
// scheduler: applying source configuration, rebuilding the candidate photo
// set, deriving the photos visible in the current area, and ranking them
// against the viewing bearing.
//
// The processors chain through internal re-triggers: config → sources →
// area → bearing, so an upstream change re-derives everything downstream of
// it from the payloads the scheduler already holds. Derived state is
// mutated only inside processor invocations; the scheduler's single-flight
// guarantee means they never overlap, and the pipeline mutex exists only
// for out-of-band Status readers.
package pipeline

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/hillview/lookout/internal/scheduler"
	"github.com/hillview/lookout/pkg/updates"
	"github.com/hillview/lookout/pkg/viewbus"
)

// Publisher is where processors emit derived views. *viewbus.Client
// satisfies it; tests plug in a recorder.
type Publisher interface {
	PublishView(ctx context.Context, ev *viewbus.ViewEvent) error
}

// Trigger submits recompute-only re-triggers back into the scheduler.
// *scheduler.Engine satisfies it.
type Trigger interface {
	SubmitInternal(c updates.Category) updates.SequenceID
}

// Pipeline holds the derived photo-viewer state and the processors that
// maintain it.
type Pipeline struct {
	instanceName string
	pub          Publisher // nil disables publication
	trigger      Trigger   // set by Register

	mu         sync.Mutex
	cfg        viewbus.SourceConfig
	batches    map[string][]viewbus.Photo // latest delivery per source, enabled or not
	candidates []viewbus.Photo
	visible    []viewbus.Photo
	best       *viewbus.Photo
	bearing    float64
}

// New creates a pipeline. pub may be nil for a purely in-process pipeline
// (views are then derived but not published anywhere).
func New(instanceName string, pub Publisher) *Pipeline {
	return &Pipeline{
		instanceName: instanceName,
		pub:          pub,
		batches:      make(map[string][]viewbus.Photo),
	}
}

// Register installs the four processors on the engine and wires the
// pipeline's internal re-triggers through it. Call once, before Engine.Run.
func (p *Pipeline) Register(e *scheduler.Engine) {
	p.trigger = e
	e.Register(updates.CategoryConfig, p.processConfig)
	e.Register(updates.CategorySources, p.processSources)
	e.Register(updates.CategoryArea, p.processArea)
	e.Register(updates.CategoryBearing, p.processBearing)
}

// Status is a point-in-time summary of the derived state, for the CLI.
type Status struct {
	EnabledSources []string
	CandidateCount int
	VisibleCount   int
	Bearing        float64
	BestPhotoID    string
}

// Status returns a snapshot of the derived state. Safe from any goroutine.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		EnabledSources: append([]string(nil), p.cfg.Enabled...),
		CandidateCount: len(p.candidates),
		VisibleCount:   len(p.visible),
		Bearing:        p.bearing,
	}
	if p.best != nil {
		s.BestPhotoID = p.best.ID
	}
	return s
}

func (p *Pipeline) publish(ctx context.Context, ev *viewbus.ViewEvent) error {
	if p.pub == nil {
		return nil
	}
	return p.pub.PublishView(ctx, ev)
}

// logEvent logs a structured event in JSON format.
func (p *Pipeline) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "pipeline"
	data["event_type"] = eventType
	data["instance"] = p.instanceName

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Pipeline] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
