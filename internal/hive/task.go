package hive

import (
	"errors"
	"fmt"
	"time"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

// TaskType names the kind of work a task carries.
type TaskType string

// TaskTemporalAnalysis is the only task type the hive executes.
const TaskTemporalAnalysis TaskType = "temporal_analysis"

// AnalysisComprehensive is the default analysis type on task input.
const AnalysisComprehensive = "comprehensive"

// TaskStatus is a task's lifecycle state.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskAssigned  TaskStatus = "assigned"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

var allowedTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:  {TaskAssigned, TaskCancelled},
	TaskAssigned: {TaskRunning},
	TaskRunning:  {TaskCompleted, TaskFailed},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TaskInput is the payload of a temporal analysis task.
type TaskInput struct {
	TimelineID   string             `json:"timeline_id"`
	Timeline     *temporal.Timeline `json:"timeline"`
	AnalysisType string             `json:"analysis_type"`
}

// TaskError describes why a task failed.
type TaskError struct {
	Kind    worker.Kind `json:"kind"`
	Message string      `json:"message"`
	Worker  string      `json:"worker"`
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Worker, e.Message)
}

// taskErrorFrom converts a worker failure into the payload stored on a task.
func taskErrorFrom(err error, fallbackWorker string) *TaskError {
	te := &TaskError{Kind: worker.KindOf(err), Message: err.Error(), Worker: fallbackWorker}
	var we *worker.Error
	if errors.As(err, &we) {
		if we.Worker != "" {
			te.Worker = we.Worker
		}
		if we.Err != nil {
			te.Message = we.Err.Error()
		}
	}
	return te
}

// Task is one unit of work.
type Task struct {
	ID          string           `json:"id"`
	Type        TaskType         `json:"type"`
	Priority    int              `json:"priority"`
	Input       TaskInput        `json:"input"`
	Status      TaskStatus       `json:"status"`
	WorkerID    string           `json:"worker_id,omitempty"`
	Output      *worker.Analysis `json:"output,omitempty"`
	Error       *TaskError       `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Progress    int              `json:"progress"`

	// seq orders submissions for priority ties.
	seq int64
}

// NewAnalysisTask builds a pending temporal analysis task.
func NewAnalysisTask(id, timelineID string, tl *temporal.Timeline, priority int, createdAt time.Time) *Task {
	return &Task{
		ID:       id,
		Type:     TaskTemporalAnalysis,
		Priority: priority,
		Input: TaskInput{
			TimelineID:   timelineID,
			Timeline:     tl,
			AnalysisType: AnalysisComprehensive,
		},
		Status:    TaskPending,
		CreatedAt: createdAt,
	}
}

// Snapshot returns a copy safe to hand to other goroutines. The timeline
// pointer is shared and must be treated as read-only.
func (t *Task) Snapshot() Task {
	cp := *t
	if t.Output != nil {
		out := *t.Output
		cp.Output = &out
	}
	if t.Error != nil {
		e := *t.Error
		cp.Error = &e
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	return cp
}

// transition moves the task to next or panics.
func (t *Task) transition(next TaskStatus) {
	if !CanTransition(t.Status, next) {
		panic(&InvariantError{
			Code:    InvariantIllegalTransition,
			Message: fmt.Sprintf("illegal transition %s -> %s", t.Status, next),
			TaskID:  t.ID,
		})
	}
	t.Status = next
}
