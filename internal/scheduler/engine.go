package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hillview/lookout/pkg/updates"
)

// Processor is one of the four externally supplied recompute functions. It
// receives a read-only snapshot of its category's state and a cooperative
// abort flag; it is expected, not required, to poll the flag at safe
// checkpoints and return early. A processor may submit further updates
// (including internal recompute-only ones) through the engine.
type Processor func(ctx context.Context, snap updates.Snapshot, abort *updates.Abort) error

// Engine serializes the four update channels through a single cooperative
// execution slot. Producers submit from any goroutine; the loop started by
// Run is the only goroutine that touches category state, and at most one
// processor invocation is in flight at any time.
//
// The loop drains the mailbox applying the preemption rule (an update of
// equal or higher priority than the active run aborts it and waits for its
// acknowledgement before folding; a strictly lower-priority update folds
// immediately and waits its turn), then dispatches the highest-priority
// stale category.
type Engine struct {
	instanceName string

	seq  updates.Sequencer
	mbox *updates.Mailbox

	procs [updates.NumCategories]Processor

	// Loop-owned; no goroutine other than Run's may touch these.
	store stateStore
	slot  *invocation
}

// NewEngine creates an engine with no processors registered. Register all
// four categories before calling Run.
func NewEngine(instanceName string) *Engine {
	return &Engine{
		instanceName: instanceName,
		mbox:         updates.NewMailbox(),
	}
}

// Register installs the processor for a category. Must be called before Run;
// registering twice for the same category replaces the earlier function.
func (e *Engine) Register(c updates.Category, p Processor) {
	if !c.Valid() {
		panic(fmt.Sprintf("scheduler: register for invalid category %d", int(c)))
	}
	e.procs[c] = p
}

// Submit enqueues a new payload for a category and returns the sequence id
// assigned to it. Safe to call from any goroutine, including from inside a
// running processor. Panics on an invalid category: the category set is
// closed at compile time, so an invalid value is a programmer error.
func (e *Engine) Submit(c updates.Category, payload any) updates.SequenceID {
	if !c.Valid() {
		panic(fmt.Sprintf("scheduler: submit for invalid category %d", int(c)))
	}
	id := e.seq.Next()
	e.mbox.Append(updates.Update{Category: c, Seq: id, Payload: payload})
	return id
}

// SubmitInternal enqueues a recompute-only re-trigger for a category: the
// category is marked stale without replacing its payload, so its processor
// reruns against the data it already has.
func (e *Engine) SubmitInternal(c updates.Category) updates.SequenceID {
	if !c.Valid() {
		panic(fmt.Sprintf("scheduler: internal submit for invalid category %d", int(c)))
	}
	id := e.seq.Next()
	e.mbox.Append(updates.Update{Category: c, Seq: id, Internal: true})
	return id
}

// Shutdown submits the sentinel that drives the loop to exit. The loop
// finishes draining up to the sentinel, awaits any in-flight invocation,
// and then Run returns.
func (e *Engine) Shutdown() {
	e.mbox.Append(updates.ShutdownUpdate(e.seq.Next()))
}

// Run executes the scheduler loop until Shutdown is called or ctx is
// cancelled. Returns an error only if a category has no registered
// processor; shutdown and cancellation both return nil.
func (e *Engine) Run(ctx context.Context) error {
	for _, c := range updates.Categories {
		if e.procs[c] == nil {
			return fmt.Errorf("no processor registered for category %s", c)
		}
	}

	e.logEvent("scheduler_started", map[string]interface{}{})

	for {
		if e.slot == nil && !e.store.AnyStale() && !e.mbox.HasMore() {
			// Idle: nothing running, nothing stale. Block for the next update.
			u, err := e.mbox.Take(ctx)
			if err != nil {
				e.logEvent("scheduler_cancelled", map[string]interface{}{})
				return nil
			}
			if e.drainOne(u) {
				return nil
			}
		} else if e.slot != nil && !e.mbox.HasMore() {
			// Running with an empty mailbox: wait for either new updates or
			// the completion acknowledgement. These are the loop's only
			// suspension points besides the idle take above.
			select {
			case <-ctx.Done():
				e.abortAndAwait()
				e.logEvent("scheduler_cancelled", map[string]interface{}{})
				return nil
			case <-e.mbox.Ready():
				// Drain below. The signal is a hint; the drain loop
				// tolerates finding nothing.
			case acked := <-e.slot.done:
				e.finish(acked)
			}
		}

		// Draining: fold every queued update into category state.
		for e.mbox.HasMore() {
			u, ok := e.mbox.TryTake()
			if !ok {
				break
			}
			if e.drainOne(u) {
				return nil
			}
		}

		// Dispatching: with the mailbox quiet, start the highest-priority
		// stale category if the slot is free.
		if e.slot == nil {
			if c, ok := e.store.FirstStale(); ok {
				e.dispatch(ctx, c)
			}
		}
	}
}

// drainOne folds a single update into category state, applying the
// preemption rule against the active invocation. Returns true if u was the
// shutdown sentinel and the loop must exit.
func (e *Engine) drainOne(u updates.Update) (shutdown bool) {
	if u.IsShutdown() {
		e.abortAndAwait()
		e.logEvent("scheduler_stopped", map[string]interface{}{
			"seq": int64(u.Seq),
		})
		return true
	}

	if e.slot != nil && !e.slot.category.Outranks(u.Category) {
		// Equal or higher priority interrupts the active run. Category
		// state must not change while the invocation still holds its
		// snapshot, so the fold below happens only after the ack.
		e.logEvent("run_preempted", map[string]interface{}{
			"active":   e.slot.category.String(),
			"incoming": u.Category.String(),
			"seq":      int64(u.Seq),
		})
		e.abortAndAwait()
	}

	if u.Internal {
		e.store.BumpOnly(u.Category, u.Seq)
	} else {
		e.store.SetPayloadAndBump(u.Category, u.Payload, u.Seq)
	}
	return false
}

// dispatch moves the highest-priority stale category into the slot.
func (e *Engine) dispatch(ctx context.Context, c updates.Category) {
	if e.slot != nil {
		// Structurally unreachable: every path that folds an interrupting
		// update consumes the previous ack first.
		panic("scheduler: dispatch with an invocation already in flight")
	}
	snap := e.store.Snapshot(c)
	e.slot = e.start(ctx, snap)
	e.logEvent("run_dispatched", map[string]interface{}{
		"category": c.String(),
		"seq":      int64(snap.Seq),
	})
}

// abortAndAwait requests a cooperative abort of the active invocation and
// blocks until its acknowledgement arrives. No-op when the slot is empty.
// The protocol never forces termination: an invocation that ignores the
// flag still completes safely, only later.
func (e *Engine) abortAndAwait() {
	if e.slot == nil {
		return
	}
	e.slot.abort.Request()
	acked := <-e.slot.done
	e.finish(acked)
}

// finish consumes a completion acknowledgement: the category that actually
// ran is marked processed for the id the run was given, and the slot frees.
func (e *Engine) finish(acked updates.SequenceID) {
	e.store.MarkProcessed(e.slot.category, acked)
	e.logEvent("run_complete", map[string]interface{}{
		"category": e.slot.category.String(),
		"seq":      int64(acked),
	})
	e.slot = nil
}

// logEvent logs a structured event in JSON format.
func (e *Engine) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "scheduler"
	data["event_type"] = eventType
	data["instance"] = e.instanceName

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Scheduler] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
