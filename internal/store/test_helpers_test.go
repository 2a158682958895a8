package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/temporal"
	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestTimeline() *temporal.Timeline {
	return temporal.ExampleTimeline("stored", t0)
}

// createTestTask creates a pending task with minimal required fields.
func createTestTask(id, timelineID string, priority int) hive.Task {
	return *hive.NewAnalysisTask(id, timelineID, nil, priority, t0)
}

func completedTask(id, timelineID, workerID string, confidence float64) hive.Task {
	task := createTestTask(id, timelineID, 5)
	at := t0.Add(time.Minute)
	task.Status = hive.TaskCompleted
	task.WorkerID = workerID
	task.Output = &worker.Analysis{
		Text:       "analysis by " + workerID,
		Confidence: worker.ConfidencePtr(confidence),
		Model:      "mock",
	}
	task.CompletedAt = &at
	task.Progress = 100
	return task
}
