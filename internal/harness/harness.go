package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/store"
	"github.com/Clyde17271/LEX-TRI/internal/temporal"
	"github.com/Clyde17271/LEX-TRI/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store. The run ends when
// every submitted task is terminal; the coordinator is then stopped so the
// store holds everything before the report is read.
//
// An error is returned when the scenario cannot run at all (bad timeline,
// timeout). Assertion failures are reported in Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	start, err := scenario.start()
	if err != nil {
		return nil, fmt.Errorf("invalid start time: %w", err)
	}
	timeout, err := scenario.timeout()
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	taskTimeout, err := scenario.taskTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid task timeout: %w", err)
	}
	tl, err := scenario.buildTimeline(start)
	if err != nil {
		return nil, fmt.Errorf("failed to build timeline: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	members, err := scenario.members()
	if err != nil {
		return nil, err
	}
	replicas := scenario.Submit.Replicas
	if replicas == 0 {
		replicas = len(members)
	}
	priority := scenario.Submit.Priority
	if priority == 0 {
		priority = hive.DefaultPriority
	}

	cfg := hive.DefaultConfig()
	if scenario.Hive.ConsensusThreshold != 0 {
		cfg.ConsensusThreshold = scenario.Hive.ConsensusThreshold
	}
	cfg.TaskTimeout = taskTimeout

	terminal := make(chan struct{}, replicas)
	coord, err := hive.New(cfg, members,
		hive.WithRecorder(st),
		hive.WithClock(testutil.NewStepClock(start, time.Millisecond)),
		hive.WithIDGenerator(hive.NewSequenceGenerator("task")),
		hive.WithTaskHandler(func(t hive.Task) {
			if t.Status.Terminal() {
				select {
				case terminal <- struct{}{}:
				default:
				}
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var g errgroup.Group
	g.Go(func() error { return coord.Run(runCtx) })

	timelineID, taskIDs, submitErr := coord.SubmitTimeline(ctx, tl, hive.SubmitOptions{
		Priority: priority,
		Replicas: replicas,
	})

	waitErr := submitErr
	for i := 0; waitErr == nil && i < len(taskIDs); i++ {
		select {
		case <-terminal:
		case <-ctx.Done():
			waitErr = fmt.Errorf("scenario timed out after %s with %d of %d tasks finished", timeout, i, len(taskIDs))
		}
	}

	stop()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("coordinator failed: %w", err)
	}
	if submitErr != nil {
		return nil, fmt.Errorf("failed to submit timeline: %w", submitErr)
	}
	if waitErr != nil {
		return nil, waitErr
	}

	report, err := buildReport(context.WithoutCancel(ctx), scenario, st, tl, timelineID, taskIDs, coord.Quorum())
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Report = report
	evaluateAssertions(scenario.Assertions, report, result)
	return result, nil
}

// members builds the scripted roster. Node IDs are the worker names.
func (s *Scenario) members() ([]hive.Member, error) {
	members := make([]hive.Member, 0, len(s.Workers))
	for _, ws := range s.Workers {
		script := testutil.Script{
			Text:       ws.Text,
			Confidence: ws.Confidence,
			Fail:       failKinds[ws.Fail],
		}
		if ws.Delay != "" {
			d, err := time.ParseDuration(ws.Delay)
			if err != nil {
				return nil, fmt.Errorf("worker %s: %w", ws.Name, err)
			}
			script.Delay = d
		}
		members = append(members, hive.Member{
			ID:     ws.Name,
			Name:   ws.Name,
			Worker: testutil.NewScriptedWorker(ws.Name, script),
		})
	}
	return members, nil
}

func buildReport(
	ctx context.Context,
	scenario *Scenario,
	st *store.Store,
	tl *temporal.Timeline,
	timelineID string,
	taskIDs []string,
	quorum int,
) (*Report, error) {
	anomalies := temporal.Detect(tl)
	report := &Report{
		Scenario:   scenario.Name,
		TimelineID: timelineID,
		Points:     tl.Len(),
		Anomalies:  anomalies,
		Summary:    temporal.Summarize(anomalies),
		Quorum:     quorum,
		Tasks:      make([]TaskLine, 0, len(taskIDs)),
		Metrics:    map[string]int{},
	}

	for _, id := range taskIDs {
		t, err := st.Task(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read task %s: %w", id, err)
		}
		line := TaskLine{ID: t.ID, Worker: t.WorkerID, Status: t.Status}
		if t.Error != nil {
			line.ErrorKind = string(t.Error.Kind)
		}
		report.Tasks = append(report.Tasks, line)
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read counts: %w", err)
	}
	report.Counts = counts

	cons, err := st.Consensus(ctx, timelineID)
	switch {
	case err == nil:
		workers := slices.Clone(cons.WorkerIDs)
		slices.Sort(workers)
		report.Consensus = &ConsensusLine{
			Participants: cons.Participants,
			Confidence:   cons.Confidence,
			Method:       cons.Method,
			Workers:      workers,
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("failed to read consensus: %w", err)
	}

	metrics, err := st.Metrics(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	for _, m := range metrics {
		report.Metrics[m.Name]++
	}

	return report, nil
}
