package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	FailOn string // lowest severity that makes the command exit 1
}

// AnalyzeResult is the output of the analyze command.
type AnalyzeResult struct {
	File       string             `json:"file"`
	Name       string             `json:"name"`
	TimelineID string             `json:"timeline_id"`
	Points     int                `json:"points"`
	Anomalies  []temporal.Anomaly `json:"anomalies"`
	Summary    temporal.Summary   `json:"summary"`

	styles *styles
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <timeline.json>",
		Short: "Detect tri-temporal anomalies in a timeline",
		Long: `Run the local anomaly detector over a timeline file.

Every point is checked for time travel, premature decisions, ingestion
lag and out-of-order processing. No analysts are contacted.

Exit codes:
  0 - Analysis complete (and nothing at or above --fail-on)
  1 - An anomaly at or above --fail-on was found
  2 - Command error (unreadable or invalid timeline)

Examples:
  lextri analyze timeline.json
  lextri analyze timeline.json --format json
  lextri analyze timeline.json --fail-on high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FailOn, "fail-on", "", "exit 1 when an anomaly of this severity or worse is found (critical|high|medium|low)")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	failOn := temporal.Severity(opts.FailOn)
	if opts.FailOn != "" && failOn.Rank() == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --fail-on %q: must be one of critical, high, medium, low", opts.FailOn))
	}

	tl, err := temporal.LoadFile(path)
	if err != nil {
		_ = out.Error(CodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load timeline", err)
	}
	out.VerboseLog("loaded %s: %d points", path, tl.Len())

	result, err := analyzeTimeline(tl)
	if err != nil {
		_ = out.Error(CodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to fingerprint timeline", err)
	}
	result.File = path
	result.styles = newStyles(cmd.OutOrStdout())

	if err := out.Success(result); err != nil {
		return err
	}

	if failOn != "" && result.Summary.Worst.Rank() >= failOn.Rank() {
		return NewExitError(ExitFailure, fmt.Sprintf("found %s anomalies (threshold %s)", result.Summary.Worst, failOn))
	}
	return nil
}

func analyzeTimeline(tl *temporal.Timeline) (*AnalyzeResult, error) {
	id, err := temporal.Fingerprint(tl)
	if err != nil {
		return nil, err
	}
	anomalies := temporal.Detect(tl)
	return &AnalyzeResult{
		Name:       tl.DisplayName(),
		TimelineID: id,
		Points:     tl.Len(),
		Anomalies:  anomalies,
		Summary:    temporal.Summarize(anomalies),
	}, nil
}

// WriteText renders the human-readable report.
func (r *AnalyzeResult) WriteText(w io.Writer) error {
	st := r.styles
	if st == nil {
		st = newStyles(w)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%d points)\n", st.title.Render("Timeline:"), r.Name, r.Points)
	fmt.Fprintf(&b, "%s\n", st.muted.Render("id "+r.TimelineID))

	if r.Summary.Total == 0 {
		fmt.Fprintf(&b, "%s\n", st.ok.Render("No anomalies detected."))
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Anomalies: %d (worst: %s)\n", r.Summary.Total, r.Summary.Worst)
	for _, a := range r.Anomalies {
		fmt.Fprintf(&b, "  %s %s: %s\n", st.Severity(a.Severity), a.Type, a.Description)
	}

	b.WriteString("By type:")
	for _, typ := range []temporal.AnomalyType{temporal.TimeTravel, temporal.PrematureDecision, temporal.IngestionLag, temporal.OutOfOrder} {
		if n := r.Summary.ByType[typ]; n > 0 {
			fmt.Fprintf(&b, " %s=%d", typ, n)
		}
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
