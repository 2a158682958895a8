// Package config loads lextri configuration.
//
// Configuration is YAML layered over built-in defaults and validated
// against an embedded CUE schema. API keys never appear in the file; each
// remote worker names the environment variable that holds its key.
package config

import (
	_ "embed"
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

//go:embed schema.cue
var schemaSource string

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Worker configures one analyst.
type Worker struct {
	Name         string   `yaml:"name"`
	Backend      string   `yaml:"backend"`
	Model        string   `yaml:"model,omitempty"`
	BaseURL      string   `yaml:"base_url,omitempty"`
	APIKeyEnv    string   `yaml:"api_key_env,omitempty"`
	Timeout      Duration `yaml:"timeout,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty"`
}

// Hive configures the coordinator.
type Hive struct {
	ConsensusThreshold float64  `yaml:"consensus_threshold"`
	DispatchInterval   Duration `yaml:"dispatch_interval"`
	LivenessInterval   Duration `yaml:"liveness_interval"`
	TaskTimeout        Duration `yaml:"task_timeout"`
	RecorderBuffer     int      `yaml:"recorder_buffer"`
}

// Store configures persistence. An empty path disables it.
type Store struct {
	Path string `yaml:"path"`
}

// Config is the full lextri configuration.
type Config struct {
	Hive    Hive     `yaml:"hive"`
	Workers []Worker `yaml:"workers"`
	Store   Store    `yaml:"store"`
}

// Default returns the built-in configuration: three mock analysts and the
// stock hive tuning.
func Default() Config {
	return Config{
		Hive: Hive{
			ConsensusThreshold: hive.DefaultConsensusThreshold,
			DispatchInterval:   Duration(hive.DefaultDispatchInterval),
			LivenessInterval:   Duration(hive.DefaultLivenessInterval),
			RecorderBuffer:     hive.DefaultRecorderBuffer,
		},
		Workers: []Worker{
			{
				Name:         "TemporalAnalyst-Alpha",
				Backend:      "mock",
				Capabilities: []string{"temporal_analysis", "anomaly_detection", "pattern_recognition"},
			},
			{
				Name:         "TemporalAnalyst-Beta",
				Backend:      "mock",
				Capabilities: []string{"temporal_analysis", "data_validation", "recommendation_engine"},
			},
			{
				Name:         "TemporalAnalyst-Gamma",
				Backend:      "mock",
				Capabilities: []string{"consensus_building", "result_synthesis", "confidence_assessment"},
			},
		},
	}
}

// HiveConfig converts to the coordinator's configuration.
func (c Config) HiveConfig() hive.Config {
	return hive.Config{
		ConsensusThreshold: c.Hive.ConsensusThreshold,
		DispatchInterval:   time.Duration(c.Hive.DispatchInterval),
		LivenessInterval:   time.Duration(c.Hive.LivenessInterval),
		TaskTimeout:        time.Duration(c.Hive.TaskTimeout),
		RecorderBuffer:     c.Hive.RecorderBuffer,
	}
}

// WorkerSpecs resolves backends and API keys. getenv is usually os.Getenv.
func (c Config) WorkerSpecs(getenv func(string) string) ([]worker.Spec, error) {
	specs := make([]worker.Spec, 0, len(c.Workers))
	for _, w := range c.Workers {
		backend, err := worker.ParseBackend(w.Backend)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, ErrConfigInvalid.Error()), "worker", w.Name)
		}

		var apiKey string
		if w.APIKeyEnv != "" {
			apiKey = getenv(w.APIKeyEnv)
			if apiKey == "" && backend == worker.BackendAnthropic {
				return nil, zerr.With(zerr.With(ErrMissingAPIKey, "worker", w.Name), "env", w.APIKeyEnv)
			}
		}

		specs = append(specs, worker.Spec{
			Name:         w.Name,
			Backend:      backend,
			Model:        w.Model,
			BaseURL:      w.BaseURL,
			APIKey:       apiKey,
			Timeout:      time.Duration(w.Timeout),
			Capabilities: w.Capabilities,
		})
	}
	return specs, nil
}

// Members builds the hive roster. Node IDs are the worker names.
func (c Config) Members(getenv func(string) string, opts ...worker.Option) ([]hive.Member, error) {
	specs, err := c.WorkerSpecs(getenv)
	if err != nil {
		return nil, err
	}

	members := make([]hive.Member, 0, len(specs))
	for _, spec := range specs {
		w, err := worker.New(spec, opts...)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, ErrConfigInvalid.Error()), "worker", spec.Name)
		}
		members = append(members, hive.Member{
			ID:           spec.Name,
			Name:         spec.Name,
			Capabilities: spec.Capabilities,
			Worker:       w,
		})
	}
	return members, nil
}

// Validate checks c against the embedded schema and the cross-field rules
// the schema cannot express.
func (c Config) Validate() error {
	cuectx := cuecontext.New()
	schema := cuectx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return zerr.Wrap(err, "compile config schema")
	}

	value := cuectx.Encode(c.schemaView())
	if err := value.Err(); err != nil {
		return zerr.Wrap(err, ErrConfigInvalid.Error())
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return zerr.Wrap(err, ErrConfigInvalid.Error())
	}

	seen := make(map[string]bool, len(c.Workers))
	for _, w := range c.Workers {
		if seen[w.Name] {
			return zerr.With(ErrDuplicateWorker, "worker", w.Name)
		}
		seen[w.Name] = true
	}
	return nil
}

// schemaView renders c in the shape the CUE schema expects: snake_case
// keys, durations as integer nanoseconds, unset optionals omitted.
func (c Config) schemaView() map[string]any {
	workers := make([]any, 0, len(c.Workers))
	for _, w := range c.Workers {
		m := map[string]any{
			"name":    w.Name,
			"backend": w.Backend,
		}
		if w.Model != "" {
			m["model"] = w.Model
		}
		if w.BaseURL != "" {
			m["base_url"] = w.BaseURL
		}
		if w.APIKeyEnv != "" {
			m["api_key_env"] = w.APIKeyEnv
		}
		if w.Timeout != 0 {
			m["timeout"] = int64(w.Timeout)
		}
		if w.Capabilities != nil {
			caps := make([]any, len(w.Capabilities))
			for i, s := range w.Capabilities {
				caps[i] = s
			}
			m["capabilities"] = caps
		}
		workers = append(workers, m)
	}

	return map[string]any{
		"hive": map[string]any{
			"consensus_threshold": c.Hive.ConsensusThreshold,
			"dispatch_interval":   int64(c.Hive.DispatchInterval),
			"liveness_interval":   int64(c.Hive.LivenessInterval),
			"task_timeout":        int64(c.Hive.TaskTimeout),
			"recorder_buffer":     c.Hive.RecorderBuffer,
		},
		"workers": workers,
		"store": map[string]any{
			"path": c.Store.Path,
		},
	}
}
