package viewbus

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/hillview/lookout/pkg/updates"
)

// Photo is a single geotagged, oriented photo candidate.
type Photo struct {
	ID           string  `json:"id"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	CompassAngle float64 `json:"compass_angle"` // degrees clockwise from north
	CapturedAtMs int64   `json:"captured_at_ms"`
	Source       string  `json:"source"` // which photo source supplied it
	URL          string  `json:"url,omitempty"`
}

// Area is the visible map region as a bounding box.
type Area struct {
	TopLeftLat     float64 `json:"top_left_lat"`
	TopLeftLon     float64 `json:"top_left_lon"`
	BottomRightLat float64 `json:"bottom_right_lat"`
	BottomRightLon float64 `json:"bottom_right_lon"`
}

// Contains reports whether the point falls inside the box. Matches the
// backend's bbox query semantics: latitude shrinks north-to-south, so
// top-left latitude is the upper bound.
func (a Area) Contains(lat, lon float64) bool {
	return lat >= a.BottomRightLat && lat <= a.TopLeftLat &&
		lon >= a.TopLeftLon && lon <= a.BottomRightLon
}

// Valid reports whether the box is well-formed.
func (a Area) Valid() bool {
	return a.TopLeftLat >= a.BottomRightLat && a.TopLeftLon <= a.BottomRightLon
}

// SourceConfig is the active-source configuration: which photo sources feed
// the candidate set and how the derived views are bounded.
type SourceConfig struct {
	// Enabled lists the source names whose photos participate in
	// visibility derivation.
	Enabled []string `json:"enabled"`

	// MaxVisible caps the visible photo list. Zero means unlimited.
	MaxVisible int `json:"max_visible,omitempty"`
}

// EnabledSet returns the enabled sources as a lookup set.
func (c SourceConfig) EnabledSet() map[string]bool {
	set := make(map[string]bool, len(c.Enabled))
	for _, s := range c.Enabled {
		set[s] = true
	}
	return set
}

// SourceBatch is one photo source's latest delivery of candidates.
type SourceBatch struct {
	Source string  `json:"source"`
	Photos []Photo `json:"photos"`
}

// AngularDistance returns the absolute difference between two bearings in
// degrees, wrapped to [0, 180].
func AngularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// UpdateEvent is the inbound wire format: one state change posted by the UI
// bridge or a sensor adapter for the scheduler to consume.
type UpdateEvent struct {
	// Category names the update channel: "config", "sources", "area" or
	// "bearing".
	Category string `json:"category"`

	// Payload is category-shaped JSON; see DecodePayload. Ignored when
	// Internal is true.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Internal requests a recompute-only re-trigger.
	Internal bool `json:"internal,omitempty"`

	// ClientID identifies the producer, for tracing.
	ClientID string `json:"client_id,omitempty"`
}

// Validate checks the event is well-formed enough to decode.
func (ev *UpdateEvent) Validate() error {
	if _, err := updates.ParseCategory(ev.Category); err != nil {
		return err
	}
	if !ev.Internal && len(ev.Payload) == 0 {
		return fmt.Errorf("update event for %s has no payload and is not internal", ev.Category)
	}
	return nil
}

// DecodePayload unmarshals the payload into the concrete type its category
// calls for: SourceConfig for config, []SourceBatch for sources, Area for
// area, float64 degrees for bearing. Internal events decode to nil.
func (ev *UpdateEvent) DecodePayload() (updates.Category, any, error) {
	cat, err := updates.ParseCategory(ev.Category)
	if err != nil {
		return 0, nil, err
	}
	if ev.Internal {
		return cat, nil, nil
	}

	switch cat {
	case updates.CategoryConfig:
		var c SourceConfig
		if err := json.Unmarshal(ev.Payload, &c); err != nil {
			return 0, nil, fmt.Errorf("failed to decode config payload: %w", err)
		}
		return cat, c, nil
	case updates.CategorySources:
		var b []SourceBatch
		if err := json.Unmarshal(ev.Payload, &b); err != nil {
			return 0, nil, fmt.Errorf("failed to decode sources payload: %w", err)
		}
		return cat, b, nil
	case updates.CategoryArea:
		var a Area
		if err := json.Unmarshal(ev.Payload, &a); err != nil {
			return 0, nil, fmt.Errorf("failed to decode area payload: %w", err)
		}
		return cat, a, nil
	case updates.CategoryBearing:
		var deg float64
		if err := json.Unmarshal(ev.Payload, &deg); err != nil {
			return 0, nil, fmt.Errorf("failed to decode bearing payload: %w", err)
		}
		return cat, deg, nil
	default:
		return 0, nil, fmt.Errorf("unhandled category %s", cat)
	}
}

// ViewEventKind distinguishes the derived outputs published on the bus.
type ViewEventKind string

const (
	// ViewEventVisible carries the photos inside the current area.
	ViewEventVisible ViewEventKind = "visible_photos"

	// ViewEventBest carries the single photo whose compass angle best
	// matches the current viewing bearing.
	ViewEventBest ViewEventKind = "best_photo"
)

/// ViewEvent is the outbound wire format: a derived view for the rendering
// layer.
type ViewEvent struct {
	Kind ViewEventKind `json:"kind"`

	// Photos is the visible list (ViewEventVisible only).
	Photos []Photo `json:"photos,omitempty"`

	// Best is the best-facing photo (ViewEventBest only); nil when nothing
	// is visible.
	Best *Photo `json:"best,omitempty"`

	// Bearing is the viewing bearing the selection was ranked against
	// (ViewEventBest only).
	Bearing float64 `json:"bearing,omitempty"`

	// Seq is the scheduler sequence id of the run that produced this view.
	// Consumers can drop events that arrive out of order.
	Seq int64 `json:"seq"`

	PublishedAtMs int64 `json:"published_at_ms"`
}

// Validate checks the event is well-formed for publication.
func (ev *ViewEvent) Validate() error {
	switch ev.Kind {
	case ViewEventVisible, ViewEventBest:
		return nil
	default:
		return fmt.Errorf("unknown view event kind %q", ev.Kind)
	}
}
