package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clyde17271/LEX-TRI/internal/config"
	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

func noEnv(string) string { return "" }

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, cfg.Validate())
	require.Len(t, cfg.Workers, 3)
	assert.Equal(t, "TemporalAnalyst-Alpha", cfg.Workers[0].Name)
	assert.Equal(t, "TemporalAnalyst-Gamma", cfg.Workers[2].Name)

	hc := cfg.HiveConfig()
	assert.Equal(t, 0.7, hc.ConsensusThreshold)
	assert.Equal(t, 5*time.Second, hc.DispatchInterval)
	assert.Equal(t, 30*time.Second, hc.LivenessInterval)
	assert.Equal(t, time.Duration(0), hc.TaskTimeout)
}

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`
hive:
  consensus_threshold: 0.5
  task_timeout: 45s
workers:
  - name: solo
    backend: openai
    model: gpt-4o
    base_url: http://localhost:1234/v1
    api_key_env: LEXTRI_OPENAI_KEY
    timeout: 2m
    capabilities: [temporal_analysis]
  - name: backup
    backend: mock
store:
  path: /var/lib/lextri/hive.db
`))
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Hive.ConsensusThreshold)
	assert.Equal(t, config.Duration(45*time.Second), cfg.Hive.TaskTimeout)
	// Untouched keys keep their defaults.
	assert.Equal(t, config.Duration(5*time.Second), cfg.Hive.DispatchInterval)

	require.Len(t, cfg.Workers, 2)
	assert.Equal(t, "solo", cfg.Workers[0].Name)
	assert.Equal(t, config.Duration(2*time.Minute), cfg.Workers[0].Timeout)
	assert.Equal(t, "/var/lib/lextri/hive.db", cfg.Store.Path)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "hive:\n  quorum: 3\n",
			want: "failed to parse config",
		},
		{
			name: "bad duration",
			yaml: "hive:\n  dispatch_interval: soon\n",
			want: "failed to parse config",
		},
		{
			name: "threshold above one",
			yaml: "hive:\n  consensus_threshold: 1.2\n",
			want: "invalid config",
		},
		{
			name: "zero dispatch interval",
			yaml: "hive:\n  dispatch_interval: 0s\n",
			want: "invalid config",
		},
		{
			name: "unknown backend",
			yaml: "workers:\n  - name: x\n    backend: gemini\n",
			want: "invalid config",
		},
		{
			name: "empty roster",
			yaml: "workers: []\n",
			want: "invalid config",
		},
		{
			name: "unnamed worker",
			yaml: "workers:\n  - backend: mock\n",
			want: "invalid config",
		},
		{
			name: "bad env var name",
			yaml: "workers:\n  - name: x\n    backend: openai\n    api_key_env: 'not a var'\n",
			want: "invalid config",
		},
		{
			name: "duplicate worker",
			yaml: "workers:\n  - name: x\n    backend: mock\n  - name: x\n    backend: mock\n",
			want: "duplicate worker name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lextri.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hive:\n  consensus_threshold: 0.9\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Hive.ConsensusThreshold)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to read config")
}

func TestMembers(t *testing.T) {
	cfg := config.Default()
	members, err := cfg.Members(noEnv)
	require.NoError(t, err)

	require.Len(t, members, 3)
	for i, m := range members {
		assert.Equal(t, cfg.Workers[i].Name, m.ID)
		assert.Equal(t, cfg.Workers[i].Capabilities, m.Capabilities)
		assert.IsType(t, &worker.Mock{}, m.Worker)
	}

	c, err := hive.New(cfg.HiveConfig(), members)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Quorum())
}

func TestWorkerSpecs_ResolvesKeys(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = []config.Worker{
		{Name: "a", Backend: "anthropic", APIKeyEnv: "KEY_A"},
		{Name: "o", Backend: "OpenAI", APIKeyEnv: "KEY_O"},
	}
	env := map[string]string{"KEY_A": "secret-a"}

	specs, err := cfg.WorkerSpecs(func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, worker.BackendAnthropic, specs[0].Backend)
	assert.Equal(t, "secret-a", specs[0].APIKey)
	// OpenAI-compatible local servers do not need a key.
	assert.Equal(t, worker.BackendOpenAI, specs[1].Backend)
	assert.Empty(t, specs[1].APIKey)

	delete(env, "KEY_A")
	_, err = cfg.WorkerSpecs(func(k string) string { return env[k] })
	require.Error(t, err)
	assert.ErrorContains(t, err, "missing API key")
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	v, err := config.Duration(90 * time.Second).MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", v)
}
