package hive

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

func TestQuorum(t *testing.T) {
	tests := []struct {
		workers   int
		threshold float64
		want      int
	}{
		{3, 0.7, 2},
		{4, 0.7, 2},
		{5, 0.7, 3},
		{10, 0.7, 7},
		{3, 0.5, 2},
		{1, 0.7, 2},
		{10, 1.0, 10},
		{20, 0.35, 7},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%.2f", tt.workers, tt.threshold), func(t *testing.T) {
			assert.Equal(t, tt.want, Quorum(tt.workers, tt.threshold))
		})
	}
}

func completedTask(id, timelineID, text string, conf *float64) *Task {
	t := testTask(id, 0)
	t.Input.TimelineID = timelineID
	t.Status = TaskCompleted
	t.WorkerID = "w-" + id
	t.Output = &worker.Analysis{Text: text, Confidence: conf}
	return t
}

func TestBuildConsensus(t *testing.T) {
	tasks := []*Task{
		completedTask("a", "tl", "first", worker.ConfidencePtr(0.9)),
		completedTask("b", "tl", "second", nil),
	}

	c := BuildConsensus("tl", tasks, t0)

	assert.Equal(t, "Analysis 1:\nfirst\n\nAnalysis 2:\nsecond", c.Narrative)
	assert.InDelta(t, 0.7, c.Confidence, 1e-9)
	assert.Equal(t, 2, c.Participants)
	assert.Equal(t, ConsensusMethod, c.Method)
	assert.Equal(t, []string{"a", "b"}, c.TaskIDs)
	assert.Equal(t, []string{"w-a", "w-b"}, c.WorkerIDs)
	assert.Equal(t, t0, c.CreatedAt)
}

func TestConsensusBuilder_EmitsOnceAtQuorum(t *testing.T) {
	b := NewConsensusBuilder(3, 0.7)
	require.Equal(t, 2, b.Quorum())

	var history []*Task
	history = append(history, completedTask("a", "tl", "one", nil))
	_, ok := b.Observe("tl", history, t0)
	assert.False(t, ok, "no record before the second completion")

	history = append(history, completedTask("b", "tl", "two", nil))
	c, ok := b.Observe("tl", history, t0)
	require.True(t, ok)
	assert.Equal(t, 2, c.Participants)
	assert.InDelta(t, DefaultConfidence, c.Confidence, 1e-9)

	history = append(history, completedTask("c", "tl", "three", nil))
	_, ok = b.Observe("tl", history, t0)
	assert.False(t, ok, "later completions do not re-emit")

	got, ok := b.Get("tl")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got.TaskIDs)
	assert.Equal(t, 1, b.Len())
}

func TestConsensusBuilder_IgnoresFailuresAndOtherTimelines(t *testing.T) {
	b := NewConsensusBuilder(3, 0.7)

	failed := testTask("f", 0)
	failed.Input.TimelineID = "tl"
	failed.Status = TaskFailed

	history := []*Task{
		completedTask("a", "tl", "one", nil),
		failed,
		completedTask("x", "other", "elsewhere", nil),
	}
	_, ok := b.Observe("tl", history, t0)
	assert.False(t, ok)

	_, ok = b.Observe("", history, t0)
	assert.False(t, ok)

	_, ok = b.Get("tl")
	assert.False(t, ok)
}
