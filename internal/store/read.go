package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/temporal"
	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

// Timeline returns the stored timeline.
// Returns sql.ErrNoRows if not found.
func (s *Store) Timeline(ctx context.Context, id string) (*temporal.Timeline, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM timelines WHERE id = ?`, id).Scan(&body)
	if err != nil {
		return nil, err
	}

	tl := temporal.NewTimeline("")
	if err := json.Unmarshal([]byte(body), tl); err != nil {
		return nil, fmt.Errorf("decode timeline %s: %w", id, err)
	}
	return tl, nil
}

// Events returns a timeline's points ordered by valid time, then event ID.
// Returns an empty slice (not nil) if the timeline has no events.
func (s *Store) Events(ctx context.Context, timelineID string) ([]temporal.Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, valid_time, transaction_time, decision_time, data
		FROM events
		WHERE timeline_id = ?
		ORDER BY valid_time ASC, event_id COLLATE BINARY ASC
	`, timelineID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	points := []temporal.Point{}
	for rows.Next() {
		var (
			p        temporal.Point
			vt, tt   string
			dt       sql.NullString
			dataJSON string
		)
		if err := rows.Scan(&p.ID, &vt, &tt, &dt, &dataJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if p.ValidTime, err = parseTime(vt); err != nil {
			return nil, err
		}
		if p.TransactionTime, err = parseTime(tt); err != nil {
			return nil, err
		}
		if p.DecisionTime, err = parseTimePtr(dt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(dataJSON), &p.Data); err != nil {
			return nil, fmt.Errorf("decode event %s data: %w", p.ID, err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return points, nil
}

const taskColumns = `id, timeline_id, type, analysis_type, priority, status, worker_id, output, error, progress, created_at, completed_at`

// Task returns the last recorded state of a task. Input.Timeline is nil;
// use Timeline to load it.
// Returns sql.ErrNoRows if not found.
func (s *Store) Task(ctx context.Context, id string) (hive.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// TimelineTasks returns every task recorded for a timeline, oldest first.
// Returns an empty slice (not nil) if there are none.
func (s *Store) TimelineTasks(ctx context.Context, timelineID string) ([]hive.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE timeline_id = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, timelineID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []hive.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// Counts aggregates recorded tasks by status. Assigned and running tasks
// both count as active.
func (s *Store) Counts(ctx context.Context) (hive.Counts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return hive.Counts{}, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var c hive.Counts
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return hive.Counts{}, fmt.Errorf("scan counts: %w", err)
		}
		switch hive.TaskStatus(status) {
		case hive.TaskPending:
			c.Pending += n
		case hive.TaskAssigned, hive.TaskRunning:
			c.Active += n
		case hive.TaskCompleted:
			c.Completed += n
		case hive.TaskFailed:
			c.Failed += n
		case hive.TaskCancelled:
			c.Cancelled += n
		}
	}
	if err := rows.Err(); err != nil {
		return hive.Counts{}, fmt.Errorf("iterate counts: %w", err)
	}
	return c, nil
}

// Consensus returns the consensus record for a timeline.
// Returns sql.ErrNoRows if none was reached.
func (s *Store) Consensus(ctx context.Context, timelineID string) (hive.Consensus, error) {
	var (
		c                            hive.Consensus
		analyses, taskIDs, workerIDs string
		createdAt                    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT timeline_id, narrative, confidence, participants, method, analyses, task_ids, worker_ids, created_at
		FROM consensus
		WHERE timeline_id = ?
	`, timelineID).Scan(
		&c.TimelineID,
		&c.Narrative,
		&c.Confidence,
		&c.Participants,
		&c.Method,
		&analyses,
		&taskIDs,
		&workerIDs,
		&createdAt,
	)
	if err != nil {
		return hive.Consensus{}, err
	}

	if err := json.Unmarshal([]byte(analyses), &c.Analyses); err != nil {
		return hive.Consensus{}, fmt.Errorf("decode consensus analyses: %w", err)
	}
	if err := json.Unmarshal([]byte(taskIDs), &c.TaskIDs); err != nil {
		return hive.Consensus{}, fmt.Errorf("decode consensus task ids: %w", err)
	}
	if err := json.Unmarshal([]byte(workerIDs), &c.WorkerIDs); err != nil {
		return hive.Consensus{}, fmt.Errorf("decode consensus worker ids: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return hive.Consensus{}, err
	}
	return c, nil
}

// Metrics returns measurements with the given name in recording order.
// An empty name returns all metrics.
func (s *Store) Metrics(ctx context.Context, name string) ([]hive.Metric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, value, source, tags, recorded_at
		FROM metrics
		WHERE ? = '' OR name = ?
		ORDER BY id ASC
	`, name, name)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	metrics := []hive.Metric{}
	for rows.Next() {
		var (
			m        hive.Metric
			tags, at string
		)
		if err := rows.Scan(&m.Name, &m.Type, &m.Value, &m.Source, &tags, &at); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
			return nil, fmt.Errorf("decode metric tags: %w", err)
		}
		if m.RecordedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return metrics, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (hive.Task, error) {
	var (
		t                hive.Task
		taskType, status string
		output, taskErr  sql.NullString
		createdAt        string
		completedAt      sql.NullString
	)
	err := row.Scan(
		&t.ID,
		&t.Input.TimelineID,
		&taskType,
		&t.Input.AnalysisType,
		&t.Priority,
		&status,
		&t.WorkerID,
		&output,
		&taskErr,
		&t.Progress,
		&createdAt,
		&completedAt,
	)
	if err != nil {
		return hive.Task{}, err
	}
	t.Type = hive.TaskType(taskType)
	t.Status = hive.TaskStatus(status)

	if t.Output, err = unmarshalNullJSON[worker.Analysis](output); err != nil {
		return hive.Task{}, fmt.Errorf("decode task %s output: %w", t.ID, err)
	}
	if t.Error, err = unmarshalNullJSON[hive.TaskError](taskErr); err != nil {
		return hive.Task{}, fmt.Errorf("decode task %s error: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return hive.Task{}, err
	}
	if t.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return hive.Task{}, err
	}
	return t, nil
}
