package temporal

import (
	"fmt"
	"time"
)

// AnomalyType identifies which detection rule fired.
type AnomalyType string

const (
	// TimeTravel means the event was recorded before it happened.
	TimeTravel AnomalyType = "time_travel"

	// PrematureDecision means the event was acted on before it was recorded.
	PrematureDecision AnomalyType = "premature_decision"

	// IngestionLag means recording trailed the event by more than LagThreshold.
	IngestionLag AnomalyType = "ingestion_lag"

	// OutOfOrder means a later event was recorded before its predecessor.
	OutOfOrder AnomalyType = "out_of_order"
)

// Severity ranks an anomaly.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities; higher is worse. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Lag thresholds for ingestion_lag. A gap equal to a threshold does not
// cross it.
const (
	LagThreshold       = 60 * time.Second
	SevereLagThreshold = 300 * time.Second
)

// Anomaly is one detector finding.
//
// PointIDs holds the offending point, or the (previous, current) pair for
// out_of_order.
type Anomaly struct {
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	PointIDs    []string    `json:"point_ids"`
}

// Detect returns every anomaly in the timeline.
//
// Points are visited in valid-time order (stable on ties). For each point
// the four rules are evaluated in a fixed order: time_travel,
// premature_decision, ingestion_lag, out_of_order. Rules are not mutually
// exclusive and records are never deduplicated.
//
// Detect does not mutate the timeline. It returns an empty, non-nil slice
// when nothing fires.
func Detect(tl *Timeline) []Anomaly {
	anomalies := []Anomaly{}
	if tl.Len() == 0 {
		return anomalies
	}

	sorted := tl.SortedByValidTime()
	for i, p := range sorted {
		if p.TransactionTime.Before(p.ValidTime) {
			anomalies = append(anomalies, Anomaly{
				Type:        TimeTravel,
				Severity:    SeverityCritical,
				Description: fmt.Sprintf("transaction time precedes valid time for event %s", p.ID),
				PointIDs:    []string{p.ID},
			})
		}

		if p.DecisionTime != nil && p.DecisionTime.Before(p.TransactionTime) {
			anomalies = append(anomalies, Anomaly{
				Type:        PrematureDecision,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("decision made before transaction was recorded for event %s", p.ID),
				PointIDs:    []string{p.ID},
			})
		}

		if lag := p.Lag(); lag > LagThreshold {
			severity := SeverityMedium
			if lag > SevereLagThreshold {
				severity = SeverityHigh
			}
			anomalies = append(anomalies, Anomaly{
				Type:        IngestionLag,
				Severity:    severity,
				Description: fmt.Sprintf("lag of %.2f seconds between valid and transaction time for event %s", lag.Seconds(), p.ID),
				PointIDs:    []string{p.ID},
			})
		}

		if i > 0 {
			prev := sorted[i-1]
			if p.ValidTime.After(prev.ValidTime) && p.TransactionTime.Before(prev.TransactionTime) {
				anomalies = append(anomalies, Anomaly{
					Type:        OutOfOrder,
					Severity:    SeverityHigh,
					Description: fmt.Sprintf("events processed out of order: %s and %s", prev.ID, p.ID),
					PointIDs:    []string{prev.ID, p.ID},
				})
			}
		}
	}

	return anomalies
}

// Summary counts anomalies by type and severity.
type Summary struct {
	Total      int                 `json:"total"`
	ByType     map[AnomalyType]int `json:"by_type"`
	BySeverity map[Severity]int    `json:"by_severity"`
	Worst      Severity            `json:"worst,omitempty"`
}

// Summarize aggregates a detector result.
func Summarize(anomalies []Anomaly) Summary {
	s := Summary{
		Total:      len(anomalies),
		ByType:     make(map[AnomalyType]int),
		BySeverity: make(map[Severity]int),
	}
	for _, a := range anomalies {
		s.ByType[a.Type]++
		s.BySeverity[a.Severity]++
		if a.Severity.Rank() > s.Worst.Rank() {
			s.Worst = a.Severity
		}
	}
	return s
}
