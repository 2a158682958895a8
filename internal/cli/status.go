package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
}

// TaskReport describes one stored task.
type TaskReport struct {
	ID          string          `json:"id"`
	TimelineID  string          `json:"timeline_id"`
	Status      hive.TaskStatus `json:"status"`
	Priority    int             `json:"priority"`
	Progress    int             `json:"progress"`
	Worker      string          `json:"worker,omitempty"`
	Confidence  *float64        `json:"confidence,omitempty"`
	Error       *hive.TaskError `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func (r TaskReport) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Task:     %s\n", r.ID)
	fmt.Fprintf(w, "Timeline: %s\n", r.TimelineID)
	fmt.Fprintf(w, "Status:   %s (%d%%)\n", r.Status, r.Progress)
	fmt.Fprintf(w, "Priority: %d\n", r.Priority)
	if r.Worker != "" {
		fmt.Fprintf(w, "Worker:   %s\n", r.Worker)
	}
	if r.Confidence != nil {
		fmt.Fprintf(w, "Confidence: %.2f\n", *r.Confidence)
	}
	if r.Error != nil {
		fmt.Fprintf(w, "Error:    %s\n", r.Error.Error())
	}
	return nil
}

// CountsReport aggregates stored tasks by status.
type CountsReport struct {
	Tasks hive.Counts `json:"tasks"`
	Total int         `json:"total"`
}

func (r CountsReport) WriteText(w io.Writer) error {
	c := r.Tasks
	_, err := fmt.Fprintf(w, "Tasks: %d total, %d pending, %d active, %d completed, %d failed, %d cancelled\n",
		r.Total, c.Pending, c.Active, c.Completed, c.Failed, c.Cancelled)
	return err
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status [task-id]",
		Short: "Show stored task status",
		Long: `Read task status from a database written by 'lextri swarm --db'.

With a task ID, prints that task. Without one, prints counts by status.

Examples:
  lextri status --db ./lextri.db
  lextri status --db ./lextri.db 0192f7c4-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := ""
			if len(args) == 1 {
				taskID = args[0]
			}
			return runStatus(opts, taskID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides store.path)")

	return cmd
}

func runStatus(opts *StatusOptions, taskID string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	dbPath := opts.Database
	if dbPath == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		dbPath = cfg.Store.Path
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	if _, err := os.Stat(dbPath); err != nil {
		_ = out.Error(CodeStoreFailure, fmt.Sprintf("database not found: %s", dbPath), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = out.Error(CodeStoreFailure, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if taskID == "" {
		counts, err := st.Counts(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read counts", err)
		}
		return out.Success(CountsReport{
			Tasks: counts,
			Total: counts.Pending + counts.Active + counts.Completed + counts.Failed + counts.Cancelled,
		})
	}

	task, err := st.Task(ctx, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		_ = out.Error(CodeNotFound, fmt.Sprintf("task %s not found", taskID), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("task %s not found", taskID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read task", err)
	}

	report := TaskReport{
		ID:          task.ID,
		TimelineID:  task.Input.TimelineID,
		Status:      task.Status,
		Priority:    task.Priority,
		Progress:    task.Progress,
		Worker:      task.WorkerID,
		Error:       task.Error,
		CreatedAt:   task.CreatedAt,
		CompletedAt: task.CompletedAt,
	}
	if task.Output != nil {
		report.Confidence = task.Output.Confidence
	}
	return out.Success(report)
}
