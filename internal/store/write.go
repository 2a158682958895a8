package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

var _ hive.Recorder = (*Store)(nil)

// RecordTimeline inserts a timeline row keyed by id.
// Uses ON CONFLICT(id) DO NOTHING - resubmitting a timeline is a no-op.
func (s *Store) RecordTimeline(ctx context.Context, id string, tl *temporal.Timeline, at time.Time) error {
	body, err := marshalJSON(tl)
	if err != nil {
		return fmt.Errorf("record timeline: marshal: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO timelines
		(id, name, point_count, body, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		tl.Name,
		tl.Len(),
		body,
		formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("record timeline: %w", err)
	}
	return nil
}

// RecordEvent inserts one point of a timeline.
// Uses ON CONFLICT DO NOTHING for idempotency.
//
// Note: The timeline referenced by timelineID must exist (foreign key constraint).
func (s *Store) RecordEvent(ctx context.Context, timelineID string, p temporal.Point) error {
	data := p.Data
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := marshalJSON(data)
	if err != nil {
		return fmt.Errorf("record event: marshal data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(timeline_id, event_id, valid_time, transaction_time, decision_time, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(timeline_id, event_id) DO NOTHING
	`,
		timelineID,
		p.ID,
		formatTime(p.ValidTime),
		formatTime(p.TransactionTime),
		formatTimePtr(p.DecisionTime),
		dataJSON,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// RecordTask upserts the latest state of a task. A row whose status is
// already terminal is left untouched, so late or replayed records cannot
// move a task backwards.
func (s *Store) RecordTask(ctx context.Context, t hive.Task) error {
	output, err := marshalNullJSON(t.Output)
	if err != nil {
		return fmt.Errorf("record task: marshal output: %w", err)
	}
	taskErr, err := marshalNullJSON(t.Error)
	if err != nil {
		return fmt.Errorf("record task: marshal error: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks
		(id, timeline_id, type, analysis_type, priority, status, worker_id, output, error, progress, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			worker_id = excluded.worker_id,
			output = excluded.output,
			error = excluded.error,
			progress = excluded.progress,
			completed_at = excluded.completed_at
		WHERE tasks.status NOT IN ('completed', 'failed', 'cancelled')
	`,
		t.ID,
		t.Input.TimelineID,
		string(t.Type),
		t.Input.AnalysisType,
		t.Priority,
		string(t.Status),
		t.WorkerID,
		output,
		taskErr,
		t.Progress,
		formatTime(t.CreatedAt),
		formatTimePtr(t.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("record task: %w", err)
	}
	return nil
}

// RecordConsensus inserts the consensus record for a timeline.
// Uses ON CONFLICT(timeline_id) DO NOTHING - the first record wins.
func (s *Store) RecordConsensus(ctx context.Context, c hive.Consensus) error {
	analyses, err := marshalJSON(c.Analyses)
	if err != nil {
		return fmt.Errorf("record consensus: marshal analyses: %w", err)
	}
	taskIDs, err := marshalJSON(c.TaskIDs)
	if err != nil {
		return fmt.Errorf("record consensus: marshal task ids: %w", err)
	}
	workerIDs, err := marshalJSON(c.WorkerIDs)
	if err != nil {
		return fmt.Errorf("record consensus: marshal worker ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO consensus
		(timeline_id, narrative, confidence, participants, method, analyses, task_ids, worker_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(timeline_id) DO NOTHING
	`,
		c.TimelineID,
		c.Narrative,
		c.Confidence,
		c.Participants,
		c.Method,
		analyses,
		taskIDs,
		workerIDs,
		formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record consensus: %w", err)
	}
	return nil
}

// RecordMetric appends a measurement.
func (s *Store) RecordMetric(ctx context.Context, m hive.Metric) error {
	tags := m.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	tagsJSON, err := marshalJSON(tags)
	if err != nil {
		return fmt.Errorf("record metric: marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO metrics
		(name, type, value, source, tags, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		m.Name,
		m.Type,
		m.Value,
		m.Source,
		tagsJSON,
		formatTime(m.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("record metric: %w", err)
	}
	return nil
}
