package hive

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func testNodes(n int) []*Node {
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = &Node{
			ID:     fmt.Sprintf("node-%d", i+1),
			Name:   fmt.Sprintf("Analyst-%d", i+1),
			Status: NodeActive,
		}
	}
	return nodes
}

func testTask(id string, priority int) *Task {
	return NewAnalysisTask(id, "tl-1", temporal.NewTimeline("t"), priority, t0)
}

func okAnalysis() worker.Analysis {
	return worker.Analysis{Text: "fine", Confidence: worker.ConfidencePtr(0.8)}
}

func TestScheduler_PriorityDispatch(t *testing.T) {
	s := NewScheduler(testNodes(3))
	for i, p := range []int{1, 9, 5, 3, 7} {
		require.NoError(t, s.Submit(testTask(fmt.Sprintf("t%d", i), p)))
	}

	got := s.Dispatch()

	require.Len(t, got, 3)
	var priorities []int
	for _, a := range got {
		priorities = append(priorities, a.Task.Priority)
		assert.Equal(t, TaskAssigned, a.Task.Status)
		assert.Equal(t, a.Node.ID, a.Task.WorkerID)
	}
	assert.Equal(t, []int{9, 7, 5}, priorities)
	assert.Len(t, s.Pending(), 2)
	assert.Equal(t, 3, s.ActiveCount())
}

func TestScheduler_TiesKeepSubmissionOrder(t *testing.T) {
	s := NewScheduler(testNodes(1))
	require.NoError(t, s.Submit(testTask("first", 5)))
	require.NoError(t, s.Submit(testTask("second", 5)))
	require.NoError(t, s.Submit(testTask("urgent", 6)))

	var order []string
	for range 3 {
		got := s.Dispatch()
		require.Len(t, got, 1)
		order = append(order, got[0].Task.ID)
		s.Start(got[0].Task.ID)
		s.Complete(got[0].Task.ID, okAnalysis(), t0)
	}

	assert.Equal(t, []string{"urgent", "first", "second"}, order)
}

func TestScheduler_NeverExceedsPool(t *testing.T) {
	s := NewScheduler(testNodes(2))
	for i := range 10 {
		require.NoError(t, s.Submit(testTask(fmt.Sprintf("t%d", i), i)))
	}

	assert.Len(t, s.Dispatch(), 2)
	assert.Empty(t, s.Dispatch())
	assert.Equal(t, 2, s.ActiveCount())
	assert.Len(t, s.Pending(), 8)
}

func TestScheduler_OneTaskPerNode(t *testing.T) {
	s := NewScheduler(testNodes(3))
	for i := range 6 {
		require.NoError(t, s.Submit(testTask(fmt.Sprintf("t%d", i), 0)))
	}

	got := s.Dispatch()

	seen := map[string]bool{}
	for _, a := range got {
		assert.False(t, seen[a.Node.ID], "node %s assigned twice", a.Node.ID)
		seen[a.Node.ID] = true
		assert.Equal(t, a.Task.ID, a.Node.CurrentTask)
		assert.Equal(t, NodeBusy, a.Node.Status)
	}
}

func TestScheduler_NoIdleNodeKeepsTask(t *testing.T) {
	nodes := testNodes(2)
	nodes[1].Status = NodeOffline
	s := NewScheduler(nodes)
	require.NoError(t, s.Submit(testTask("a", 2)))
	require.NoError(t, s.Submit(testTask("b", 1)))

	got := s.Dispatch()

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Task.ID)

	// The only active node is busy: "b" must stay queued, not be dropped.
	assert.Empty(t, s.Dispatch())
	require.Len(t, s.Pending(), 1)
	assert.Equal(t, "b", s.Pending()[0].ID)
	assert.Equal(t, TaskPending, s.Pending()[0].Status)

	s.Start("a")
	s.Complete("a", okAnalysis(), t0)

	got = s.Dispatch()
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Task.ID)
}

func TestScheduler_Lifecycle(t *testing.T) {
	nodes := testNodes(1)
	s := NewScheduler(nodes)
	require.NoError(t, s.Submit(testTask("a", 1)))

	a := s.Dispatch()[0].Task
	assert.Equal(t, TaskAssigned, a.Status)

	s.Start("a")
	assert.Equal(t, TaskRunning, a.Status)

	at := t0.Add(time.Minute)
	s.Complete("a", okAnalysis(), at)
	assert.Equal(t, TaskCompleted, a.Status)
	assert.Equal(t, 100, a.Progress)
	require.NotNil(t, a.CompletedAt)
	assert.Equal(t, at, *a.CompletedAt)
	assert.Equal(t, "fine", a.Output.Text)

	assert.Equal(t, 1, nodes[0].TasksCompleted)
	assert.True(t, nodes[0].Idle())
	assert.Equal(t, []*Task{a}, s.History())
	assert.Equal(t, Counts{Completed: 1}, s.Counts())
}

func TestScheduler_Fail(t *testing.T) {
	nodes := testNodes(1)
	s := NewScheduler(nodes)
	require.NoError(t, s.Submit(testTask("a", 1)))
	s.Dispatch()
	s.Start("a")

	failed := s.Fail("a", &TaskError{Kind: worker.KindStatus, Message: "503", Worker: "Analyst-1"}, t0)

	assert.Equal(t, TaskFailed, failed.Status)
	assert.Nil(t, failed.Output)
	assert.Equal(t, worker.KindStatus, failed.Error.Kind)
	assert.Equal(t, 0, nodes[0].TasksCompleted)
	assert.True(t, nodes[0].Idle())
	assert.Equal(t, Counts{Failed: 1}, s.Counts())
}

func TestScheduler_SubmitValidation(t *testing.T) {
	s := NewScheduler(testNodes(1))

	assert.True(t, IsValidationError(s.Submit(nil)))
	assert.True(t, IsValidationError(s.Submit(testTask("", 1))))

	require.NoError(t, s.Submit(testTask("a", 1)))
	assert.True(t, IsValidationError(s.Submit(testTask("a", 1))))

	running := testTask("b", 1)
	running.Status = TaskRunning
	assert.True(t, IsValidationError(s.Submit(running)))
}

func TestScheduler_Cancel(t *testing.T) {
	s := NewScheduler(testNodes(1))
	require.NoError(t, s.Submit(testTask("a", 2)))
	require.NoError(t, s.Submit(testTask("b", 1)))

	s.Dispatch()

	_, err := s.Cancel("a", t0)
	assert.ErrorIs(t, err, ErrNotPending)

	_, err = s.Cancel("missing", t0)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	cancelled, err := s.Cancel("b", t0)
	require.NoError(t, err)
	assert.Equal(t, TaskCancelled, cancelled.Status)
	assert.Empty(t, s.Pending())
	assert.Equal(t, 1, s.Counts().Cancelled)

	_, err = s.Cancel("b", t0)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestScheduler_IllegalTransitionsPanic(t *testing.T) {
	s := NewScheduler(testNodes(1))
	require.NoError(t, s.Submit(testTask("a", 1)))

	assertInvariant := func(code InvariantCode, fn func()) {
		t.Helper()
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected panic")
			ie, ok := r.(*InvariantError)
			require.True(t, ok, "panic value %T", r)
			assert.Equal(t, code, ie.Code)
		}()
		fn()
	}

	// Completing a task that was never dispatched.
	assertInvariant(InvariantUnknownTask, func() { s.Complete("a", okAnalysis(), t0) })

	s.Dispatch()
	// Assigned tasks must start before completing.
	assertInvariant(InvariantIllegalTransition, func() { s.Complete("a", okAnalysis(), t0) })

	s.Start("a")
	assertInvariant(InvariantIllegalTransition, func() { s.Start("a") })

	s.Complete("a", okAnalysis(), t0)
	assertInvariant(InvariantUnknownTask, func() { s.Fail("a", &TaskError{}, t0) })
}

func TestScheduler_SetNodeStatus(t *testing.T) {
	nodes := testNodes(2)
	s := NewScheduler(nodes)

	require.NoError(t, s.SetNodeStatus("node-1", NodeOffline))
	require.NoError(t, s.Submit(testTask("a", 1)))
	got := s.Dispatch()
	require.Len(t, got, 1)
	assert.Equal(t, "node-2", got[0].Node.ID)

	assert.ErrorIs(t, s.SetNodeStatus("nope", NodeActive), ErrNodeNotFound)
	assert.True(t, IsValidationError(s.SetNodeStatus("node-1", NodeBusy)))
	assert.True(t, IsValidationError(s.SetNodeStatus("node-1", NodeStatus("sleepy"))))

	// Taking a busy node offline sticks after its task finishes.
	require.NoError(t, s.SetNodeStatus("node-2", NodeOffline))
	s.Start("a")
	s.Complete("a", okAnalysis(), t0)
	assert.Equal(t, NodeOffline, nodes[1].Status)

	// Reactivating a busy node leaves it busy until release.
	require.NoError(t, s.SetNodeStatus("node-1", NodeActive))
	require.NoError(t, s.Submit(testTask("b", 1)))
	s.Dispatch()
	require.NoError(t, s.SetNodeStatus("node-1", NodeActive))
	assert.Equal(t, NodeBusy, nodes[0].Status)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(TaskPending, TaskAssigned))
	assert.True(t, CanTransition(TaskPending, TaskCancelled))
	assert.True(t, CanTransition(TaskRunning, TaskFailed))
	assert.False(t, CanTransition(TaskAssigned, TaskCancelled))
	assert.False(t, CanTransition(TaskCompleted, TaskPending))
	assert.False(t, CanTransition(TaskFailed, TaskRunning))
	assert.False(t, CanTransition(TaskRunning, TaskPending))
}

func TestTaskErrorFrom(t *testing.T) {
	te := taskErrorFrom(&worker.Error{Kind: worker.KindTimeout, Worker: "Alpha", Err: errors.New("deadline")}, "fallback")
	assert.Equal(t, &TaskError{Kind: worker.KindTimeout, Message: "deadline", Worker: "Alpha"}, te)

	te = taskErrorFrom(errors.New("raw"), "fallback")
	assert.Equal(t, &TaskError{Kind: worker.KindTransport, Message: "raw", Worker: "fallback"}, te)
}
