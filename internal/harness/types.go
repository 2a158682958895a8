package harness

import (
	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

// Report is the deterministic summary of a scenario run. It is what golden
// files hold.
type Report struct {
	Scenario   string             `json:"scenario"`
	TimelineID string             `json:"timeline_id"`
	Points     int                `json:"points"`
	Anomalies  []temporal.Anomaly `json:"anomalies"`
	Summary    temporal.Summary   `json:"summary"`
	Quorum     int                `json:"quorum"`
	Tasks      []TaskLine         `json:"tasks"`
	Counts     hive.Counts        `json:"counts"`
	Consensus  *ConsensusLine     `json:"consensus"`

	// Metrics counts persisted metrics by name.
	Metrics map[string]int `json:"metrics"`
}

// TaskLine is one task's final state in submission order.
type TaskLine struct {
	ID        string          `json:"id"`
	Worker    string          `json:"worker"`
	Status    hive.TaskStatus `json:"status"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

// ConsensusLine is the persisted consensus record without its narrative.
type ConsensusLine struct {
	Participants int      `json:"participants"`
	Confidence   float64  `json:"confidence"`
	Method       string   `json:"method"`
	Workers      []string `json:"workers"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions match.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Report *Report `json:"report"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
