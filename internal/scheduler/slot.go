package scheduler

import (
	"context"
	"fmt"

	"github.com/hillview/lookout/pkg/updates"
)

// invocation is the processor slot: the single in-flight processor run plus
// its cooperative abort flag and completion channel. The loop holds at most
// one at a time; that is the single-flight invariant.
type invocation struct {
	category updates.Category
	seq      updates.SequenceID
	abort    *updates.Abort

	// done is the single-slot rendezvous between the invocation goroutine
	// and the loop. The goroutine always sends exactly one ack, carrying
	// the sequence id the run was dispatched with, whether the run
	// completed, honored an abort, errored, or panicked.
	done chan updates.SequenceID
}

// start launches the registered processor for snap's category. The
// invocation runs out-of-band; the loop rendezvouses with it only through
// the done channel.
func (e *Engine) start(ctx context.Context, snap updates.Snapshot) *invocation {
	inv := &invocation{
		category: snap.Category,
		seq:      snap.Seq,
		abort:    &updates.Abort{},
		done:     make(chan updates.SequenceID, 1),
	}
	proc := e.procs[snap.Category]

	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logEvent("processor_panic", map[string]interface{}{
					"category": snap.Category.String(),
					"seq":      int64(snap.Seq),
					"panic":    fmt.Sprintf("%v", r),
				})
			}
			inv.done <- inv.seq
		}()

		if err := proc(ctx, snap, inv.abort); err != nil {
			// A failed run still counts as processed for its input, so the
			// loop does not spin retrying an identical failing payload. A
			// later genuinely-new update retries naturally.
			e.logEvent("processor_error", map[string]interface{}{
				"category": snap.Category.String(),
				"seq":      int64(snap.Seq),
				"error":    err.Error(),
			})
		}
	}()

	return inv
}
