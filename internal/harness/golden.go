package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// MarshalReport renders a report as the bytes stored in golden files:
// indented JSON with a trailing newline.
func MarshalReport(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return buf.Bytes(), nil
}

// GoldenPath returns the golden file for a scenario file:
// <dir>/golden/<base>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// WriteGolden writes the report as the scenario's golden file.
func WriteGolden(scenarioFile string, r *Report) error {
	data, err := MarshalReport(r)
	if err != nil {
		return err
	}

	goldenPath := GoldenPath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// MatchGolden reports whether the report matches the scenario's golden
// file. The returned bool is false with a nil error when the file does not
// exist; use os.Stat(GoldenPath(...)) to tell the two apart.
func MatchGolden(scenarioFile string, r *Report) (bool, error) {
	golden, err := os.ReadFile(GoldenPath(scenarioFile))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}

	current, err := MarshalReport(r)
	if err != nil {
		return false, err
	}
	return bytes.Equal(golden, current), nil
}

// RunWithGolden loads and runs a scenario file and compares its report
// against the golden file next to it.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenarioFile string) *Result {
	t.Helper()

	scenario, err := LoadScenario(scenarioFile)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}

	result, err := Run(context.Background(), scenario)
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}

	data, err := MarshalReport(result.Report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Join(filepath.Dir(scenarioFile), "golden")),
		goldie.WithNameSuffix(".golden"),
	)
	name := strings.TrimSuffix(filepath.Base(scenarioFile), filepath.Ext(scenarioFile))
	g.Assert(t, name, data)

	return result
}
