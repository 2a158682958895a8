package harness

import (
	"fmt"
	"math"

	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

// confidenceTolerance absorbs float noise in confidence assertions.
const confidenceTolerance = 1e-6

// evaluateAssertions checks every assertion against the report and records
// failures on result.
func evaluateAssertions(assertions []Assertion, report *Report, result *Result) {
	for i, a := range assertions {
		if err := evaluateAssertion(a, report); err != nil {
			result.AddError(fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
}

func evaluateAssertion(a Assertion, report *Report) error {
	switch a.Type {
	case AssertAnomalyCount:
		return assertAnomalyCount(a, report)
	case AssertConsensus:
		return assertConsensus(a, report)
	case AssertTaskCount:
		return assertTaskCount(a, report)
	case AssertStoredMetric:
		return assertStoredMetric(a, report)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertAnomalyCount counts detector findings, optionally of one type.
func assertAnomalyCount(a Assertion, report *Report) error {
	got := len(report.Anomalies)
	if a.Anomaly != "" {
		got = report.Summary.ByType[temporal.AnomalyType(a.Anomaly)]
	}
	if got != a.Count {
		if a.Anomaly != "" {
			return fmt.Errorf("expected %d %s anomalies, got %d", a.Count, a.Anomaly, got)
		}
		return fmt.Errorf("expected %d anomalies, got %d", a.Count, got)
	}
	return nil
}

// assertConsensus checks whether consensus was reached and, when given,
// its participant count and confidence. Reached defaults to true.
func assertConsensus(a Assertion, report *Report) error {
	want := a.Reached == nil || *a.Reached
	got := report.Consensus != nil
	if want != got {
		if want {
			return fmt.Errorf("expected consensus, none reached")
		}
		return fmt.Errorf("expected no consensus, got one with %d participants", report.Consensus.Participants)
	}
	if !got {
		return nil
	}

	if a.Participants != nil && *a.Participants != report.Consensus.Participants {
		return fmt.Errorf("expected %d participants, got %d", *a.Participants, report.Consensus.Participants)
	}
	if a.Confidence != nil && math.Abs(*a.Confidence-report.Consensus.Confidence) > confidenceTolerance {
		return fmt.Errorf("expected confidence %v, got %v", *a.Confidence, report.Consensus.Confidence)
	}
	return nil
}

// assertTaskCount counts tasks that ended in a status.
func assertTaskCount(a Assertion, report *Report) error {
	status := hive.TaskStatus(a.Status)
	got := 0
	for _, t := range report.Tasks {
		if t.Status == status {
			got++
		}
	}
	if got != a.Count {
		return fmt.Errorf("expected %d %s tasks, got %d", a.Count, status, got)
	}
	return nil
}

// assertStoredMetric counts persisted metrics with a name.
func assertStoredMetric(a Assertion, report *Report) error {
	if got := report.Metrics[a.Metric]; got != a.Count {
		return fmt.Errorf("expected %d %s metrics, got %d", a.Count, a.Metric, got)
	}
	return nil
}
