package scheduler

import (
	"github.com/hillview/lookout/pkg/updates"
)

// categoryState is the per-category record of the latest known payload and
// the two progress counters. lastProcessedID <= lastUpdateID at all times;
// the pair is equal exactly when the category has no outstanding work.
type categoryState struct {
	current         any
	lastUpdateID    updates.SequenceID
	lastProcessedID updates.SequenceID
}

// stateStore holds one categoryState per category. It is owned exclusively
// by the scheduler loop goroutine and therefore needs no locking: producers
// reach it only via the mailbox, processors only via the snapshot they are
// lent at dispatch.
type stateStore struct {
	states [updates.NumCategories]categoryState
}

// SetPayloadAndBump replaces the category's payload and advances
// lastUpdateID, marking the category stale.
func (st *stateStore) SetPayloadAndBump(c updates.Category, payload any, id updates.SequenceID) {
	s := &st.states[c]
	s.current = payload
	s.lastUpdateID = id
}

// BumpOnly advances lastUpdateID without touching the payload. The category
// becomes stale and its processor will rerun against the existing payload.
// This realizes internal recompute-only re-triggers.
func (st *stateStore) BumpOnly(c updates.Category, id updates.SequenceID) {
	st.states[c].lastUpdateID = id
}

// MarkProcessed records that the category's processor completed a run for
// the given sequence id. The id is the one carried back on the completion
// acknowledgement, so it always targets the run that actually happened.
func (st *stateStore) MarkProcessed(c updates.Category, id updates.SequenceID) {
	st.states[c].lastProcessedID = id
}

// IsStale reports whether the category has unprocessed work.
func (st *stateStore) IsStale(c updates.Category) bool {
	s := st.states[c]
	return s.lastUpdateID != s.lastProcessedID
}

// AnyStale reports whether any category has unprocessed work.
func (st *stateStore) AnyStale() bool {
	for _, c := range updates.Categories {
		if st.IsStale(c) {
			return true
		}
	}
	return false
}

// FirstStale returns the highest-priority stale category, scanning in the
// fixed priority order.
func (st *stateStore) FirstStale() (updates.Category, bool) {
	for _, c := range updates.Categories {
		if st.IsStale(c) {
			return c, true
		}
	}
	return 0, false
}

// Snapshot builds the read-only view lent to a processor invocation.
func (st *stateStore) Snapshot(c updates.Category) updates.Snapshot {
	s := st.states[c]
	return updates.Snapshot{
		Category: c,
		Seq:      s.lastUpdateID,
		Payload:  s.current,
	}
}
