package hive

import (
	"context"
	"log/slog"
	"time"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

//go:generate mockgen -source=recorder.go -destination=mocks/mock_recorder.go -package=mocks

// Metric is a single measurement emitted by the coordinator.
type Metric struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Value      float64           `json:"value"`
	Source     string            `json:"source"`
	Tags       map[string]string `json:"tags,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// Recorder persists coordinator activity. Implementations should be
// idempotent; the coordinator may record the same task several times as it
// moves through its lifecycle.
type Recorder interface {
	RecordTimeline(ctx context.Context, id string, tl *temporal.Timeline, at time.Time) error
	RecordEvent(ctx context.Context, timelineID string, p temporal.Point) error
	RecordTask(ctx context.Context, t Task) error
	RecordConsensus(ctx context.Context, c Consensus) error
	RecordMetric(ctx context.Context, m Metric) error
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordTimeline(context.Context, string, *temporal.Timeline, time.Time) error {
	return nil
}
func (NopRecorder) RecordEvent(context.Context, string, temporal.Point) error { return nil }
func (NopRecorder) RecordTask(context.Context, Task) error                    { return nil }
func (NopRecorder) RecordConsensus(context.Context, Consensus) error          { return nil }
func (NopRecorder) RecordMetric(context.Context, Metric) error                { return nil }

// DefaultRecorderBuffer is the capacity of the persistence queue.
const DefaultRecorderBuffer = 1024

type record struct {
	kind string
	id   string
	fn   func(ctx context.Context, r Recorder) error
}

// asyncRecorder forwards records to a Recorder from its own goroutine.
// Sends never block: when the buffer is full the record is dropped and
// logged. Failures are logged and discarded.
type asyncRecorder struct {
	target Recorder
	ch     chan record
	done   chan struct{}
}

func newAsyncRecorder(target Recorder, buffer int) *asyncRecorder {
	if buffer <= 0 {
		buffer = DefaultRecorderBuffer
	}
	return &asyncRecorder{
		target: target,
		ch:     make(chan record, buffer),
		done:   make(chan struct{}),
	}
}

// run drains the queue until close is called. Writes use a context that
// survives cancellation of ctx so the backlog is flushed on shutdown.
func (a *asyncRecorder) run(ctx context.Context) {
	defer close(a.done)
	writeCtx := context.WithoutCancel(ctx)
	for rec := range a.ch {
		if err := rec.fn(writeCtx, a.target); err != nil {
			slog.Warn("record failed",
				"kind", rec.kind,
				"id", rec.id,
				"error", err,
			)
		}
	}
}

func (a *asyncRecorder) send(kind, id string, fn func(ctx context.Context, r Recorder) error) {
	select {
	case a.ch <- record{kind: kind, id: id, fn: fn}:
	default:
		slog.Warn("record dropped: buffer full", "kind", kind, "id", id)
	}
}

// close stops accepting records and waits for the backlog to drain.
func (a *asyncRecorder) close() {
	close(a.ch)
	<-a.done
}

func (a *asyncRecorder) timeline(id string, tl *temporal.Timeline, at time.Time) {
	a.send("timeline", id, func(ctx context.Context, r Recorder) error {
		if err := r.RecordTimeline(ctx, id, tl, at); err != nil {
			return err
		}
		for _, p := range tl.Points {
			if err := r.RecordEvent(ctx, id, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *asyncRecorder) task(t Task) {
	a.send("task", t.ID, func(ctx context.Context, r Recorder) error {
		return r.RecordTask(ctx, t)
	})
}

func (a *asyncRecorder) consensus(c Consensus) {
	a.send("consensus", c.TimelineID, func(ctx context.Context, r Recorder) error {
		return r.RecordConsensus(ctx, c)
	})
}

func (a *asyncRecorder) metric(m Metric) {
	a.send("metric", m.Name, func(ctx context.Context, r Recorder) error {
		return r.RecordMetric(ctx, m)
	})
}
