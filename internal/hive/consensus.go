package hive

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

const (
	// DefaultConsensusThreshold is the fraction of the pool that must agree.
	DefaultConsensusThreshold = 0.7

	// DefaultConfidence stands in for analyses without a self-reported
	// confidence.
	DefaultConfidence = 0.5

	// ConsensusMethod labels how records are combined.
	ConsensusMethod = "mean_confidence"

	quorumEpsilon = 1e-9
)

// Quorum returns the number of completed analyses needed for consensus:
// max(2, floor(workers * threshold)). The epsilon absorbs binary float
// error so that 10 * 0.7 yields 7.
func Quorum(workers int, threshold float64) int {
	return max(2, int(math.Floor(float64(workers)*threshold+quorumEpsilon)))
}

// Consensus is the merged result for one timeline.
type Consensus struct {
	TimelineID   string            `json:"timeline_id"`
	Narrative    string            `json:"narrative"`
	Analyses     []worker.Analysis `json:"analyses"`
	Confidence   float64           `json:"confidence"`
	Participants int               `json:"participants"`
	Method       string            `json:"method"`
	TaskIDs      []string          `json:"task_ids"`
	WorkerIDs    []string          `json:"worker_ids"`
	CreatedAt    time.Time         `json:"created_at"`
}

// BuildConsensus merges completed tasks in the given order. Tasks without
// output are skipped.
func BuildConsensus(timelineID string, tasks []*Task, at time.Time) Consensus {
	c := Consensus{
		TimelineID: timelineID,
		Method:     ConsensusMethod,
		CreatedAt:  at,
		Analyses:   []worker.Analysis{},
		TaskIDs:    []string{},
		WorkerIDs:  []string{},
	}

	blocks := make([]string, 0, len(tasks))
	var total float64
	for _, t := range tasks {
		if t.Output == nil {
			continue
		}
		c.Analyses = append(c.Analyses, *t.Output)
		c.TaskIDs = append(c.TaskIDs, t.ID)
		c.WorkerIDs = append(c.WorkerIDs, t.WorkerID)
		blocks = append(blocks, fmt.Sprintf("Analysis %d:\n%s", len(blocks)+1, t.Output.Text))

		conf := DefaultConfidence
		if t.Output.Confidence != nil {
			conf = *t.Output.Confidence
		}
		total += conf
	}

	c.Participants = len(c.Analyses)
	c.Narrative = strings.Join(blocks, "\n\n")
	if c.Participants > 0 {
		c.Confidence = total / float64(c.Participants)
	}
	return c
}

// ConsensusBuilder decides when a timeline has reached quorum. It emits at
// most one record per timeline; completions after that are ignored.
type ConsensusBuilder struct {
	quorum  int
	records map[string]*Consensus
}

// NewConsensusBuilder creates a builder for a pool of the given size.
func NewConsensusBuilder(workers int, threshold float64) *ConsensusBuilder {
	return &ConsensusBuilder{
		quorum:  Quorum(workers, threshold),
		records: make(map[string]*Consensus),
	}
}

// Quorum returns the completion count that triggers consensus.
func (b *ConsensusBuilder) Quorum() int {
	return b.quorum
}

// Observe is called after a task for timelineID completes. history is the
// scheduler's terminal history in completion order. It returns the new
// record when this completion reaches quorum.
func (b *ConsensusBuilder) Observe(timelineID string, history []*Task, at time.Time) (Consensus, bool) {
	if timelineID == "" {
		return Consensus{}, false
	}
	if _, done := b.records[timelineID]; done {
		return Consensus{}, false
	}

	var related []*Task
	for _, t := range history {
		if t.Status == TaskCompleted && t.Input.TimelineID == timelineID {
			related = append(related, t)
		}
	}
	if len(related) < b.quorum {
		return Consensus{}, false
	}

	c := BuildConsensus(timelineID, related, at)
	b.records[timelineID] = &c
	return c, true
}

// Get returns the emitted record for timelineID.
func (b *ConsensusBuilder) Get(timelineID string) (Consensus, bool) {
	c, ok := b.records[timelineID]
	if !ok {
		return Consensus{}, false
	}
	return *c, true
}

// Len returns the number of emitted records.
func (b *ConsensusBuilder) Len() int {
	return len(b.records)
}
