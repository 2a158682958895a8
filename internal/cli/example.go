package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

// ExampleOptions holds flags for the example command.
type ExampleOptions struct {
	*RootOptions
	Output string
	Name   string
	At     string // RFC 3339 anchor; empty means now

	// Now overrides the wall clock (for testing).
	Now func() time.Time
}

// ExampleResult is reported after writing to a file.
type ExampleResult struct {
	File   string `json:"file"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

func (r ExampleResult) String() string {
	return fmt.Sprintf("Wrote %q (%d points) to %s", r.Name, r.Points, r.File)
}

// NewExampleCommand creates the example command.
func NewExampleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExampleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "example",
		Short: "Write a demonstration timeline",
		Long: `Generate a timeline with five well-behaved events followed by a time
traveller, a premature decision and a large ingestion lag.

Without -o the timeline is written to stdout.

Examples:
  lextri example -o timeline.json
  lextri example --name "Checkout" --at 2024-01-15T10:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExample(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "timeline name")
	cmd.Flags().StringVar(&opts.At, "at", "", "anchor time for the first event (RFC 3339)")

	return cmd
}

func runExample(opts *ExampleOptions, cmd *cobra.Command) error {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	created := now().UTC()

	anchor := created.Truncate(time.Second)
	if opts.At != "" {
		at, err := temporal.ParseTimestamp(opts.At)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --at", err)
		}
		anchor = at
	}

	tl := temporal.ExampleTimeline(opts.Name, anchor)

	if opts.Output == "" {
		meta := &temporal.Metadata{
			Created:    temporal.FormatTimestamp(created),
			PointCount: tl.Len(),
		}
		if err := temporal.Encode(cmd.OutOrStdout(), tl, meta); err != nil {
			return WrapExitError(ExitCommandError, "failed to write timeline", err)
		}
		return nil
	}

	if err := temporal.SaveFile(opts.Output, tl, created); err != nil {
		return WrapExitError(ExitCommandError, "failed to write timeline", err)
	}
	return opts.formatter(cmd).Success(ExampleResult{
		File:   opts.Output,
		Name:   tl.Name,
		Points: tl.Len(),
	})
}
