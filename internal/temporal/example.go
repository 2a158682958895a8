package temporal

import (
	"fmt"
	"time"
)

// ExampleTimeline builds a demonstration timeline anchored at now.
//
// Five well-behaved events ten minutes apart are followed by one event of
// each interesting kind: a time traveller, a premature decision (which is
// also ingested late), and a large ingestion lag.
func ExampleTimeline(name string, now time.Time) *Timeline {
	if name == "" {
		name = "Example Timeline"
	}
	tl := NewTimeline(name)

	for i := 0; i < 5; i++ {
		vt := now.Add(time.Duration(i*10) * time.Minute)
		tt := vt.Add(30 * time.Second)
		dt := tt.Add(15 * time.Second)
		tl.Add(Point{
			ID:              fmt.Sprintf("evt_%d", i+1),
			ValidTime:       vt,
			TransactionTime: tt,
			DecisionTime:    &dt,
			Data:            map[string]any{"status": "normal", "value": i * 100},
		})
	}

	tl.Add(Point{
		ID:              "evt_anomaly_1",
		ValidTime:       now.Add(60 * time.Minute),
		TransactionTime: now.Add(55 * time.Minute),
		DecisionTime:    TimePtr(now.Add(65 * time.Minute)),
		Data:            map[string]any{"status": "anomaly", "type": "time_travel"},
	})

	tl.Add(Point{
		ID:              "evt_anomaly_2",
		ValidTime:       now.Add(70 * time.Minute),
		TransactionTime: now.Add(80 * time.Minute),
		DecisionTime:    TimePtr(now.Add(75 * time.Minute)),
		Data:            map[string]any{"status": "anomaly", "type": "premature_decision"},
	})

	tl.Add(Point{
		ID:              "evt_anomaly_3",
		ValidTime:       now.Add(90 * time.Minute),
		TransactionTime: now.Add(95*time.Minute + 30*time.Second),
		DecisionTime:    TimePtr(now.Add(96 * time.Minute)),
		Data:            map[string]any{"status": "anomaly", "type": "large_lag"},
	})

	return tl
}
