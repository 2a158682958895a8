package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

// DefaultStart is the scenario clock's start when at is omitted.
const DefaultStart = "2024-01-15T10:00:00Z"

// DefaultTimeout bounds a scenario run when timeout is omitted.
const DefaultTimeout = 10 * time.Second

// Scenario defines one scripted swarm run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// At is the RFC 3339 start of the scenario clock.
	At string `yaml:"at,omitempty"`

	// Timeout bounds the run ("5s"). Defaults to DefaultTimeout.
	Timeout string `yaml:"timeout,omitempty"`

	Timeline TimelineSource `yaml:"timeline"`
	Hive     HiveSettings   `yaml:"hive,omitempty"`
	Workers  []WorkerScript `yaml:"workers"`
	Submit   SubmitStep     `yaml:"submit,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`

	// dir is the scenario file's directory; timeline files resolve
	// against it.
	dir string
}

// TimelineSource selects the timeline under test.
type TimelineSource struct {
	Example bool        `yaml:"example,omitempty"`
	File    string      `yaml:"file,omitempty"`
	Name    string      `yaml:"name,omitempty"`
	Points  []PointStep `yaml:"points,omitempty"`
}

// PointStep is an inline timeline point. Timestamps use any layout
// temporal.ParseTimestamp accepts.
type PointStep struct {
	ID          string         `yaml:"id"`
	Valid       string         `yaml:"valid"`
	Transaction string         `yaml:"transaction"`
	Decision    string         `yaml:"decision,omitempty"`
	Data        map[string]any `yaml:"data,omitempty"`
}

// HiveSettings overrides coordinator tuning.
type HiveSettings struct {
	ConsensusThreshold float64 `yaml:"consensus_threshold,omitempty"`
	TaskTimeout        string  `yaml:"task_timeout,omitempty"`
}

// WorkerScript scripts one analyst.
type WorkerScript struct {
	Name       string   `yaml:"name"`
	Text       string   `yaml:"text,omitempty"`
	Confidence *float64 `yaml:"confidence,omitempty"`

	// Fail is a worker failure kind: transport, status, decode, empty,
	// timeout, canceled or panic.
	Fail string `yaml:"fail,omitempty"`

	// Delay holds each call ("20ms").
	Delay string `yaml:"delay,omitempty"`
}

// SubmitStep configures the submission.
type SubmitStep struct {
	Priority int `yaml:"priority,omitempty"`
	Replicas int `yaml:"replicas,omitempty"`
}

// Assertion validates the outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "anomaly_count": Anomaly (optional) and Count
	// - "consensus": Reached, Participants (optional), Confidence (optional)
	// - "task_count": Status and Count
	// - "stored_metric": Metric and Count
	Type string `yaml:"type"`

	Anomaly      string   `yaml:"anomaly,omitempty"`
	Status       string   `yaml:"status,omitempty"`
	Metric       string   `yaml:"metric,omitempty"`
	Count        int      `yaml:"count,omitempty"`
	Reached      *bool    `yaml:"reached,omitempty"`
	Participants *int     `yaml:"participants,omitempty"`
	Confidence   *float64 `yaml:"confidence,omitempty"`
}

// Assertion type constants.
const (
	AssertAnomalyCount = "anomaly_count"
	AssertConsensus    = "consensus"
	AssertTaskCount    = "task_count"
	AssertStoredMetric = "stored_metric"
)

var failKinds = map[string]worker.Kind{
	string(worker.KindTransport): worker.KindTransport,
	string(worker.KindStatus):    worker.KindStatus,
	string(worker.KindDecode):    worker.KindDecode,
	string(worker.KindEmpty):     worker.KindEmpty,
	string(worker.KindTimeout):   worker.KindTimeout,
	string(worker.KindCanceled):  worker.KindCanceled,
	string(worker.KindPanic):     worker.KindPanic,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.dir = filepath.Dir(path)
	return scenario, nil
}

// ParseScenario parses scenario YAML. Timeline files resolve against the
// working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and value formats.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := s.start(); err != nil {
		return fmt.Errorf("at: %w", err)
	}
	if _, err := s.timeout(); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}

	sources := 0
	if s.Timeline.Example {
		sources++
	}
	if s.Timeline.File != "" {
		sources++
	}
	if len(s.Timeline.Points) > 0 {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("timeline: exactly one of example, file or points is required")
	}

	if s.Hive.TaskTimeout != "" {
		if _, err := s.taskTimeout(); err != nil {
			return fmt.Errorf("hive.task_timeout: %w", err)
		}
	}

	if len(s.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	seen := make(map[string]bool, len(s.Workers))
	for i, w := range s.Workers {
		if w.Name == "" {
			return fmt.Errorf("workers[%d]: name is required", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("workers[%d]: duplicate name %q", i, w.Name)
		}
		seen[w.Name] = true
		if _, ok := failKinds[w.Fail]; w.Fail != "" && !ok {
			return fmt.Errorf("workers[%d]: unknown failure kind %q", i, w.Fail)
		}
		if w.Delay != "" {
			if _, err := time.ParseDuration(w.Delay); err != nil {
				return fmt.Errorf("workers[%d].delay: %w", i, err)
			}
		}
	}

	if s.Submit.Replicas < 0 {
		return fmt.Errorf("submit.replicas must not be negative")
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertAnomalyCount, AssertConsensus:
		case AssertTaskCount:
			if a.Status == "" {
				return fmt.Errorf("assertions[%d]: task_count requires status", i)
			}
		case AssertStoredMetric:
			if a.Metric == "" {
				return fmt.Errorf("assertions[%d]: stored_metric requires metric", i)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
	}
	return nil
}

func (s *Scenario) start() (time.Time, error) {
	at := s.At
	if at == "" {
		at = DefaultStart
	}
	return temporal.ParseTimestamp(at)
}

func (s *Scenario) timeout() (time.Duration, error) {
	if s.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}

// taskTimeout returns the per-task limit, zero when unset.
func (s *Scenario) taskTimeout() (time.Duration, error) {
	if s.Hive.TaskTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Hive.TaskTimeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

// buildTimeline materializes the timeline source.
func (s *Scenario) buildTimeline(start time.Time) (*temporal.Timeline, error) {
	switch {
	case s.Timeline.Example:
		return temporal.ExampleTimeline(s.Timeline.Name, start), nil

	case s.Timeline.File != "":
		path := s.Timeline.File
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		return temporal.LoadFile(path)

	default:
		name := s.Timeline.Name
		if name == "" {
			name = s.Name
		}
		tl := temporal.NewTimeline(name)
		for i, ps := range s.Timeline.Points {
			p, err := ps.point()
			if err != nil {
				return nil, fmt.Errorf("timeline.points[%d]: %w", i, err)
			}
			tl.Add(p)
		}
		if err := tl.Validate(); err != nil {
			return nil, err
		}
		return tl, nil
	}
}

func (ps PointStep) point() (temporal.Point, error) {
	vt, err := temporal.ParseTimestamp(ps.Valid)
	if err != nil {
		return temporal.Point{}, fmt.Errorf("valid: %w", err)
	}
	tt, err := temporal.ParseTimestamp(ps.Transaction)
	if err != nil {
		return temporal.Point{}, fmt.Errorf("transaction: %w", err)
	}
	p := temporal.Point{
		ID:              ps.ID,
		ValidTime:       vt,
		TransactionTime: tt,
		Data:            ps.Data,
	}
	if ps.Decision != "" {
		dt, err := temporal.ParseTimestamp(ps.Decision)
		if err != nil {
			return temporal.Point{}, fmt.Errorf("decision: %w", err)
		}
		p.DecisionTime = &dt
	}
	return p, nil
}
