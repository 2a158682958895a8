package worker

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

// MockConfidence is the confidence every mock analysis reports.
const MockConfidence = 0.85

// Mock narrates the local anomaly detector. Its output depends only on the
// timeline, which makes swarm runs reproducible.
type Mock struct {
	name string
}

// NewMock returns a mock worker that signs its analyses with name.
func NewMock(name string) *Mock {
	return &Mock{name: name}
}

func (m *Mock) Analyze(ctx context.Context, tl *temporal.Timeline) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		kind, _ := contextKind(ctx)
		return Analysis{}, newError(kind, m.name, err)
	}

	anomalies := temporal.Detect(tl)
	summary := temporal.Summarize(anomalies)

	var b strings.Builder
	fmt.Fprintf(&b, "Mock Analysis by %s:\n\n", m.name)

	fmt.Fprintf(&b, "1. Temporal Anomalies Detected: %d\n", summary.Total)
	for _, a := range anomalies {
		fmt.Fprintf(&b, "   - [%s] %s\n", a.Severity, a.Description)
	}

	b.WriteString("\n2. Pattern Analysis:\n")
	types := make([]string, 0, len(summary.ByType))
	for typ, n := range summary.ByType {
		types = append(types, fmt.Sprintf("%s=%d", typ, n))
	}
	slices.Sort(types)
	if len(types) == 0 {
		b.WriteString("   - VT/TT/DT alignment consistent\n")
	} else {
		fmt.Fprintf(&b, "   - %s\n", strings.Join(types, ", "))
	}

	b.WriteString("\n3. Recommendations:\n")
	for _, rec := range recommendations(summary) {
		fmt.Fprintf(&b, "   - %s\n", rec)
	}

	fmt.Fprintf(&b, "\n4. Confidence: %.0f%%\n", MockConfidence*100)
	fmt.Fprintf(&b, "\nData points analyzed: %d\n", tl.Len())

	return Analysis{
		Text:       b.String(),
		Confidence: ConfidencePtr(MockConfidence),
		Model:      "mock",
	}, nil
}

func recommendations(s temporal.Summary) []string {
	var recs []string
	if s.ByType[temporal.TimeTravel] > 0 {
		recs = append(recs, "Check clock synchronization between producers and the ingestion tier")
	}
	if s.ByType[temporal.PrematureDecision] > 0 {
		recs = append(recs, "Add decision delay until the transaction is durably recorded")
	}
	if s.ByType[temporal.IngestionLag] > 0 {
		recs = append(recs, "Review event ingestion pipeline throughput")
	}
	if s.ByType[temporal.OutOfOrder] > 0 {
		recs = append(recs, "Implement ordering guarantees or sequence numbers on ingest")
	}
	if len(recs) == 0 {
		recs = append(recs, "No action required")
	}
	return recs
}
