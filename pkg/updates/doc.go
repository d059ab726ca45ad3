// Package updates defines the data types and queueing primitives shared by
// every producer of viewer state changes and the scheduler that consumes them.
//
// # Overview
//
// A Lookout process tracks four independent streams of external change:
// source configuration, the candidate photo set, the visible map area, and
// the viewing bearing. Each change is wrapped in an Update, stamped with a
// strictly increasing SequenceID at submission time, and appended to a
// Mailbox. The scheduler (internal/scheduler) is the Mailbox's single
// consumer; producers only ever enqueue.
//
// # Categories and Priority
//
// Category is a closed, compile-time set with a fixed total priority order:
//
//	Config > Sources > Area > Bearing
//
// A configuration change invalidates everything downstream of it, so it is
// allowed to interrupt any running recomputation; a bearing change interrupts
// nothing and simply waits its turn.
//
// # Internal Updates
//
// An Update with Internal=true carries no payload. It marks its category
// stale so the scheduler reruns that category's processor against the
// payload it already holds. Processors use this to chain recomputations:
// for example the config processor re-triggers source derivation without
// fabricating a new source payload.
//
// # Concurrency
//
// Sequencer and Mailbox are safe for any number of concurrent producers.
// Abort is a cooperative cancellation flag: the scheduler sets it, the
// running processor polls it at safe checkpoints. Nothing in this package
// forcibly terminates anything.
package updates
