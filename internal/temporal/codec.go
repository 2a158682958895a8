package temporal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// timestampLayouts are tried in order when parsing exchange timestamps.
// Zone-less layouts parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp as written by the exchange
// format or by producers that omit the zone offset.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp %q", s)
}

// FormatTimestamp renders t in RFC 3339 with nanosecond precision.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// wirePoint is the exchange representation of a Point.
type wirePoint struct {
	EventID         string         `json:"event_id"`
	ValidTime       string         `json:"valid_time"`
	TransactionTime string         `json:"transaction_time"`
	DecisionTime    *string        `json:"decision_time"`
	Data            map[string]any `json:"data"`
}

// Metadata is written alongside saved timelines. It is informational and
// ignored on load.
type Metadata struct {
	Created    string `json:"created"`
	PointCount int    `json:"point_count"`
}

type wireTimeline struct {
	Name     string      `json:"name"`
	Points   []wirePoint `json:"points"`
	Metadata *Metadata   `json:"metadata,omitempty"`
}

func toWire(p Point) wirePoint {
	w := wirePoint{
		EventID:         p.ID,
		ValidTime:       FormatTimestamp(p.ValidTime),
		TransactionTime: FormatTimestamp(p.TransactionTime),
		Data:            p.Data,
	}
	if p.DecisionTime != nil {
		dt := FormatTimestamp(*p.DecisionTime)
		w.DecisionTime = &dt
	}
	if w.Data == nil {
		w.Data = map[string]any{}
	}
	return w
}

func fromWire(w wirePoint) (Point, error) {
	if w.ValidTime == "" {
		return Point{}, fmt.Errorf("valid_time is required")
	}
	if w.TransactionTime == "" {
		return Point{}, fmt.Errorf("transaction_time is required")
	}

	vt, err := ParseTimestamp(w.ValidTime)
	if err != nil {
		return Point{}, fmt.Errorf("valid_time: %w", err)
	}
	tt, err := ParseTimestamp(w.TransactionTime)
	if err != nil {
		return Point{}, fmt.Errorf("transaction_time: %w", err)
	}

	p := Point{
		ID:              w.EventID,
		ValidTime:       vt,
		TransactionTime: tt,
		Data:            w.Data,
	}
	if w.DecisionTime != nil && *w.DecisionTime != "" {
		dt, err := ParseTimestamp(*w.DecisionTime)
		if err != nil {
			return Point{}, fmt.Errorf("decision_time: %w", err)
		}
		p.DecisionTime = &dt
	}
	if p.ID == "" {
		p.ID = defaultEventID(vt)
	}
	if p.Data == nil {
		p.Data = map[string]any{}
	}
	return p, nil
}

// defaultEventID names a point that arrived without an identifier after its
// valid time in Unix seconds.
func defaultEventID(vt time.Time) string {
	return "evt_" + strconv.FormatFloat(float64(vt.UnixNano())/1e9, 'f', -1, 64)
}

// MarshalJSON encodes the point in exchange format.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(p))
}

// UnmarshalJSON decodes a point from exchange format.
func (p *Point) UnmarshalJSON(data []byte) error {
	var w wirePoint
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := fromWire(w)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// MarshalJSON encodes the timeline in exchange format without metadata.
func (t Timeline) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.wire(nil))
}

// UnmarshalJSON decodes a timeline from exchange format and validates it.
func (t *Timeline) UnmarshalJSON(data []byte) error {
	var w wireTimeline
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	decoded := Timeline{Name: w.Name, Points: make([]Point, 0, len(w.Points))}
	for i, wp := range w.Points {
		p, err := fromWire(wp)
		if err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		decoded.Points = append(decoded.Points, p)
	}
	if err := decoded.Validate(); err != nil {
		return err
	}

	*t = decoded
	return nil
}

func (t Timeline) wire(meta *Metadata) wireTimeline {
	w := wireTimeline{
		Name:     t.Name,
		Points:   make([]wirePoint, len(t.Points)),
		Metadata: meta,
	}
	for i, p := range t.Points {
		w.Points[i] = toWire(p)
	}
	return w
}

// Validate checks the structural rules of a timeline: every point has an
// identifier, both required clocks, and identifiers are unique.
func (t *Timeline) Validate() error {
	seen := make(map[string]int, len(t.Points))
	for i, p := range t.Points {
		if p.ID == "" {
			return fmt.Errorf("point %d: event_id is required", i)
		}
		if p.ValidTime.IsZero() {
			return fmt.Errorf("point %s: valid_time is required", p.ID)
		}
		if p.TransactionTime.IsZero() {
			return fmt.Errorf("point %s: transaction_time is required", p.ID)
		}
		if first, dup := seen[p.ID]; dup {
			return fmt.Errorf("point %d: duplicate event_id %q (first at %d)", i, p.ID, first)
		}
		seen[p.ID] = i
	}
	return nil
}

// Decode reads one timeline in exchange format.
func Decode(r io.Reader) (*Timeline, error) {
	var tl Timeline
	if err := json.NewDecoder(r).Decode(&tl); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	return &tl, nil
}

// Encode writes the timeline as indented exchange JSON. Metadata is
// omitted when meta is nil.
func Encode(w io.Writer, tl *Timeline, meta *Metadata) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tl.wire(meta)); err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// LoadFile reads a timeline file written by SaveFile or any producer of
// the exchange format.
func LoadFile(path string) (*Timeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open timeline: %w", err)
	}
	defer f.Close()

	tl, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tl, nil
}

// SaveFile writes the timeline with a metadata block stamped at created.
func SaveFile(path string, tl *Timeline, created time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create timeline file: %w", err)
	}

	meta := &Metadata{
		Created:    FormatTimestamp(created),
		PointCount: tl.Len(),
	}
	if err := Encode(f, tl, meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
