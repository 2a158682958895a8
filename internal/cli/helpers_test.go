package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// exampleTimelineID is the fingerprint of the example timeline anchored at
// t0 and named "Example Timeline".
const exampleTimelineID = "eb71cdb5399ad91941057c47d96c542afdf7fceeb74b3103c8cea6ddfcca361c"

// executeRoot runs the full command tree and captures its output.
func executeRoot(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// testCommand returns a bare command for calling run* functions directly.
func testCommand() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	return cmd, buf
}

// writeExampleTimeline saves the example timeline into dir.
func writeExampleTimeline(t *testing.T, dir, file string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, temporal.SaveFile(path, temporal.ExampleTimeline("", t0), t0))
	return path
}
