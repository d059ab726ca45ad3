package updates

import "sync/atomic"

// Abort is the cooperative cancellation flag shared between the scheduler
// and the processor invocation it dispatched. The scheduler requests, the
// processor may honor; neither side ever forces termination, so a processor
// that ignores the flag still completes safely, only later.
type Abort struct {
	requested atomic.Bool
}

// Request asks the running processor to stop at its next safe checkpoint.
func (a *Abort) Request() {
	a.requested.Store(true)
}

// Requested reports whether an abort has been requested. Processors poll
// this between units of work and return early when it turns true.
func (a *Abort) Requested() bool {
	return a.requested.Load()
}
