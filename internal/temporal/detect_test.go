package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func point(id string, vt, tt time.Time) Point {
	return Point{ID: id, ValidTime: vt, TransactionTime: tt, Data: map[string]any{}}
}

func timelineOf(points ...Point) *Timeline {
	tl := NewTimeline("test")
	for _, p := range points {
		tl.Add(p)
	}
	return tl
}

func ofType(anomalies []Anomaly, typ AnomalyType) []Anomaly {
	var out []Anomaly
	for _, a := range anomalies {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func TestDetect_EmptyTimeline(t *testing.T) {
	got := Detect(NewTimeline("empty"))
	require.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, Detect(nil))
}

func TestDetect_TimeTravelScenario(t *testing.T) {
	tl := timelineOf(point("evt-1", t0, t0.Add(-5*time.Second)))

	got := Detect(tl)

	require.Len(t, got, 1)
	assert.Equal(t, TimeTravel, got[0].Type)
	assert.Equal(t, SeverityCritical, got[0].Severity)
	assert.Equal(t, []string{"evt-1"}, got[0].PointIDs)
}

func TestDetect_SevereLagScenario(t *testing.T) {
	tl := timelineOf(point("evt-1", t0, t0.Add(500*time.Second)))

	got := Detect(tl)

	require.Len(t, got, 1)
	assert.Equal(t, IngestionLag, got[0].Type)
	assert.Equal(t, SeverityHigh, got[0].Severity)
	assert.Contains(t, got[0].Description, "500.00 seconds")
}

func TestDetect_LagBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		lag      time.Duration
		want     bool
		severity Severity
	}{
		{"no lag", 0, false, ""},
		{"just under threshold", 59 * time.Second, false, ""},
		{"exactly threshold", 60 * time.Second, false, ""},
		{"just over threshold", 61 * time.Second, true, SeverityMedium},
		{"exactly severe threshold", 300 * time.Second, true, SeverityMedium},
		{"just over severe threshold", 300*time.Second + time.Millisecond, true, SeverityHigh},
		{"far over severe threshold", time.Hour, true, SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ofType(Detect(timelineOf(point("p", t0, t0.Add(tt.lag)))), IngestionLag)
			if !tt.want {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.severity, got[0].Severity)
		})
	}
}

func TestDetect_PrematureDecision(t *testing.T) {
	p := point("evt-1", t0, t0.Add(10*time.Second))
	p.DecisionTime = TimePtr(t0.Add(5 * time.Second))

	got := Detect(timelineOf(p))

	require.Len(t, got, 1)
	assert.Equal(t, PrematureDecision, got[0].Type)
	assert.Equal(t, SeverityHigh, got[0].Severity)
}

func TestDetect_DecisionAtTransactionTimeIsFine(t *testing.T) {
	p := point("evt-1", t0, t0.Add(10*time.Second))
	p.DecisionTime = TimePtr(t0.Add(10 * time.Second))

	assert.Empty(t, Detect(timelineOf(p)))
}

func TestDetect_NoDecisionTimeNeverPremature(t *testing.T) {
	p := point("evt-1", t0, t0.Add(-time.Second))

	got := Detect(timelineOf(p))

	assert.Empty(t, ofType(got, PrematureDecision))
}

func TestDetect_OutOfOrderReferencesBothPoints(t *testing.T) {
	first := point("a", t0, t0.Add(50*time.Second))
	second := point("b", t0.Add(10*time.Second), t0.Add(20*time.Second))

	got := Detect(timelineOf(first, second))

	require.Len(t, got, 1)
	assert.Equal(t, OutOfOrder, got[0].Type)
	assert.Equal(t, SeverityHigh, got[0].Severity)
	assert.Equal(t, []string{"a", "b"}, got[0].PointIDs)
}

func TestDetect_OutOfOrderRequiresStrictlyLaterValidTime(t *testing.T) {
	first := point("a", t0, t0.Add(50*time.Second))
	second := point("b", t0, t0.Add(20*time.Second))

	got := Detect(timelineOf(first, second))

	assert.Empty(t, ofType(got, OutOfOrder))
}

func TestDetect_OutOfOrderComparesOnlyImmediatePredecessor(t *testing.T) {
	a := point("a", t0, t0.Add(50*time.Second))
	b := point("b", t0.Add(10*time.Second), t0.Add(10*time.Second))
	c := point("c", t0.Add(20*time.Second), t0.Add(30*time.Second))

	got := ofType(Detect(timelineOf(a, b, c)), OutOfOrder)

	// c was recorded before a, but a is not c's predecessor.
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a", "b"}, got[0].PointIDs)
}

func TestDetect_InsertionOrderIrrelevant(t *testing.T) {
	a := point("a", t0, t0.Add(50*time.Second))
	b := point("b", t0.Add(10*time.Second), t0.Add(20*time.Second))
	c := point("c", t0.Add(20*time.Second), t0.Add(-time.Minute))

	forward := Detect(timelineOf(a, b, c))
	backward := Detect(timelineOf(c, b, a))

	assert.Equal(t, forward, backward)
}

func TestDetect_StableOnValidTimeTies(t *testing.T) {
	a := point("a", t0, t0.Add(90*time.Second))
	b := point("b", t0, t0.Add(120*time.Second))

	got := Detect(timelineOf(a, b))

	require.Len(t, got, 2)
	assert.Equal(t, []string{"a"}, got[0].PointIDs)
	assert.Equal(t, []string{"b"}, got[1].PointIDs)

	got = Detect(timelineOf(b, a))
	require.Len(t, got, 2)
	assert.Equal(t, []string{"b"}, got[0].PointIDs)
	assert.Equal(t, []string{"a"}, got[1].PointIDs)
}

func TestDetect_RulesAreNotExclusive(t *testing.T) {
	prev := point("prev", t0, t0.Add(time.Hour))
	cur := point("cur", t0.Add(time.Minute), t0.Add(40*time.Minute))
	cur.DecisionTime = TimePtr(t0.Add(30 * time.Second))

	got := Detect(timelineOf(prev, cur))

	types := make([]AnomalyType, len(got))
	for i, a := range got {
		types[i] = a.Type
	}
	assert.Equal(t, []AnomalyType{
		IngestionLag,      // prev: one hour
		PrematureDecision, // cur
		IngestionLag,      // cur: 39 minutes
		OutOfOrder,        // (prev, cur)
	}, types)
}

func TestDetect_TimeTravelPerPoint(t *testing.T) {
	tl := NewTimeline("many")
	travellers := 0
	for i := 0; i < 20; i++ {
		vt := t0.Add(time.Duration(i) * time.Minute)
		tt := vt.Add(10 * time.Second)
		if i%3 == 0 {
			tt = vt.Add(-10 * time.Second)
			travellers++
		}
		tl.Add(point(string(rune('a'+i)), vt, tt))
	}

	got := ofType(Detect(tl), TimeTravel)

	assert.Len(t, got, travellers)
	for _, a := range got {
		assert.Equal(t, SeverityCritical, a.Severity)
		require.Len(t, a.PointIDs, 1)
	}
}

func TestDetect_DoesNotMutateTimeline(t *testing.T) {
	b := point("b", t0.Add(time.Minute), t0)
	a := point("a", t0, t0.Add(time.Second))
	tl := timelineOf(b, a)

	Detect(tl)

	assert.Equal(t, "b", tl.Points[0].ID)
	assert.Equal(t, "a", tl.Points[1].ID)
}

func TestSummarize(t *testing.T) {
	got := Summarize(Detect(ExampleTimeline("", t0)))

	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 1, got.ByType[TimeTravel])
	assert.Equal(t, 1, got.ByType[PrematureDecision])
	assert.Equal(t, 2, got.ByType[IngestionLag])
	assert.Equal(t, 0, got.ByType[OutOfOrder])
	assert.Equal(t, 1, got.BySeverity[SeverityCritical])
	assert.Equal(t, 3, got.BySeverity[SeverityHigh])
	assert.Equal(t, SeverityCritical, got.Worst)
}

func TestSummarize_Empty(t *testing.T) {
	got := Summarize(nil)

	assert.Equal(t, 0, got.Total)
	assert.Equal(t, Severity(""), got.Worst)
}
