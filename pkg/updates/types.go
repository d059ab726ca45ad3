package updates

import "fmt"

// SequenceID is a process-lifetime monotonic identifier assigned to every
// update at submission time. IDs are strictly increasing but not necessarily
// gap-free, and are never reused.
type SequenceID int64

// Category identifies one of the four update channels. The declaration order
// is the priority order: a lower numeric value outranks a higher one.
type Category int

const (
	// CategoryConfig carries changes to the active source configuration.
	// Highest priority: a config change invalidates all derived state.
	CategoryConfig Category = iota

	// CategorySources carries changes to the candidate photo set.
	CategorySources

	// CategoryArea carries changes to the visible map bounding box.
	CategoryArea

	// CategoryBearing carries changes to the viewing direction.
	// Lowest priority: bearing reranking never interrupts anything.
	CategoryBearing

	numCategories
)

// NumCategories is the size of the closed category set.
const NumCategories = int(numCategories)

// Categories lists all categories in descending priority order. Useful for
// fixed-order scans; do not mutate.
var Categories = [NumCategories]Category{
	CategoryConfig,
	CategorySources,
	CategoryArea,
	CategoryBearing,
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	return c >= CategoryConfig && c < numCategories
}

// Outranks reports whether c has strictly higher priority than other.
func (c Category) Outranks(other Category) bool {
	return c < other
}

func (c Category) String() string {
	switch c {
	case CategoryConfig:
		return "config"
	case CategorySources:
		return "sources"
	case CategoryArea:
		return "area"
	case CategoryBearing:
		return "bearing"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory maps a category name (as carried on the wire by the view
// bus) back to its Category value. Unlike the Category constants themselves,
// wire input is not a closed set, so this returns an error rather than
// panicking on unknown names.
func ParseCategory(name string) (Category, error) {
	switch name {
	case "config":
		return CategoryConfig, nil
	case "sources":
		return CategorySources, nil
	case "area":
		return CategoryArea, nil
	case "bearing":
		return CategoryBearing, nil
	default:
		return 0, fmt.Errorf("unknown update category %q", name)
	}
}

// Update is a single submitted state change awaiting incorporation into the
// scheduler's category state. Updates are ephemeral: they live between
// submission and being folded into category state, and are never persisted.
type Update struct {
	Category Category
	Seq      SequenceID

	// Payload is the new value for the category. Ignored when Internal is
	// true. The scheduler treats it as opaque; the pipeline's processors
	// give it meaning.
	Payload any

	// Internal marks an update synthesized by a processor to force a peer
	// category to recompute from its existing payload.
	Internal bool

	// shutdown marks the sentinel drained by the scheduler to exit its loop.
	// Only Shutdown() constructs one.
	shutdown bool
}

// ShutdownUpdate returns the sentinel update that drives the scheduler loop
// to its terminal state.
func ShutdownUpdate(seq SequenceID) Update {
	return Update{Seq: seq, shutdown: true}
}

// IsShutdown reports whether u is the shutdown sentinel.
func (u Update) IsShutdown() bool {
	return u.shutdown
}

// Snapshot is the read-only view of one category's state lent to a processor
// for the duration of a single invocation. Seq is the category's newest
// update id at dispatch time; the completion acknowledgement carries it back.
type Snapshot struct {
	Category Category
	Seq      SequenceID
	Payload  any
}
