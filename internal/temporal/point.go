package temporal

import (
	"slices"
	"time"
)

// Point is a single event observed on three clocks.
type Point struct {
	// ID identifies the event. Unique within a timeline.
	ID string

	// ValidTime is when the event actually occurred.
	ValidTime time.Time

	// TransactionTime is when the event was recorded.
	TransactionTime time.Time

	// DecisionTime is when an action was taken on the event. Nil if no
	// decision was made.
	DecisionTime *time.Time

	// Data is the opaque event payload.
	Data map[string]any
}

// Lag returns TransactionTime - ValidTime. Negative for time travel.
func (p Point) Lag() time.Duration {
	return p.TransactionTime.Sub(p.ValidTime)
}

// TimePtr returns a pointer to t. Convenience for building DecisionTime.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// Timeline is a named, ordered collection of points.
//
// The order of Points is insertion order. Analysis never depends on it:
// Detect re-derives valid-time order on a copy.
type Timeline struct {
	Name   string
	Points []Point
}

// NewTimeline creates an empty timeline.
func NewTimeline(name string) *Timeline {
	return &Timeline{
		Name:   name,
		Points: []Point{},
	}
}

// Add appends a point in insertion order.
func (t *Timeline) Add(p Point) {
	t.Points = append(t.Points, p)
}

// Len returns the number of points.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Points)
}

// UnnamedTimeline is shown in place of an empty timeline name.
const UnnamedTimeline = "Loaded Timeline"

// DisplayName returns the name for reports, falling back to UnnamedTimeline.
func (t *Timeline) DisplayName() string {
	if t == nil || t.Name == "" {
		return UnnamedTimeline
	}
	return t.Name
}

// Lookup returns the point with the given ID.
func (t *Timeline) Lookup(id string) (Point, bool) {
	for _, p := range t.Points {
		if p.ID == id {
			return p, true
		}
	}
	return Point{}, false
}

// SortedByValidTime returns a copy of the points ordered ascending by valid
// time. Ties keep insertion order.
func (t *Timeline) SortedByValidTime() []Point {
	sorted := slices.Clone(t.Points)
	slices.SortStableFunc(sorted, func(a, b Point) int {
		return a.ValidTime.Compare(b.ValidTime)
	})
	return sorted
}
