package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Clyde17271/LEX-TRI/internal/hive"
	"github.com/Clyde17271/LEX-TRI/internal/store"
	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

// DefaultSwarmTimeout bounds a swarm run that is not watching a directory.
const DefaultSwarmTimeout = 5 * time.Minute

// SwarmOptions holds flags for the swarm command.
type SwarmOptions struct {
	*RootOptions
	Database string
	Priority int
	Replicas int
	Timeout  time.Duration
	Watch    string

	// Getenv resolves API key variables. Defaults to os.Getenv.
	Getenv func(string) string

	// Members replaces the configured roster (for testing).
	Members []hive.Member

	// IDs overrides task ID generation (for testing).
	IDs hive.IDGenerator
}

// SwarmTask is one analysis in the swarm report.
type SwarmTask struct {
	ID     string          `json:"id"`
	Worker string          `json:"worker,omitempty"`
	Status hive.TaskStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// SwarmTimeline is the outcome for one submitted timeline.
type SwarmTimeline struct {
	File       string          `json:"file"`
	Name       string          `json:"name"`
	TimelineID string          `json:"timeline_id"`
	Tasks      []SwarmTask     `json:"tasks"`
	Consensus  *hive.Consensus `json:"consensus,omitempty"`
}

// SwarmReport is the output of the swarm command.
type SwarmReport struct {
	Status    hive.Status     `json:"status"`
	Timelines []SwarmTimeline `json:"timelines"`

	styles  *styles
	verbose bool
}

// NewSwarmCommand creates the swarm command.
func NewSwarmCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SwarmOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "swarm <timeline.json>...",
		Short: "Have the analyst swarm reach consensus on timelines",
		Long: `Submit timelines to the hive coordinator and wait for the analysts.

Each timeline is analyzed once per worker (or --replicas times). The run
ends when every timeline has reached consensus or all of its tasks have
finished. With --watch, timeline files dropped into the directory are
submitted as they appear and the run continues until interrupted or
--timeout elapses.

Workers come from --config; the default roster is three mock analysts.
With --db (or store.path in the config) all activity is persisted.

Exit codes:
  0 - Every timeline reached consensus
  1 - A timeline finished without consensus, or the run timed out
  2 - Command error (bad timeline, config or database)

Examples:
  lextri swarm timeline.json
  lextri swarm a.json b.json --db ./lextri.db --priority 8
  lextri swarm --watch ./incoming --db ./lextri.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwarm(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides store.path)")
	cmd.Flags().IntVar(&opts.Priority, "priority", hive.DefaultPriority, "task priority; higher runs first")
	cmd.Flags().IntVar(&opts.Replicas, "replicas", 0, "analyses per timeline (default one per worker)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, fmt.Sprintf("overall time limit (default %s, none with --watch)", DefaultSwarmTimeout))
	cmd.Flags().StringVar(&opts.Watch, "watch", "", "directory to watch for new timeline files")

	return cmd
}

func runSwarm(opts *SwarmOptions, paths []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	if len(paths) == 0 && opts.Watch == "" {
		return NewExitError(ExitCommandError, "at least one timeline file or --watch is required")
	}
	if opts.Replicas < 0 {
		return NewExitError(ExitCommandError, "--replicas must not be negative")
	}

	timelines := make([]*temporal.Timeline, len(paths))
	for i, path := range paths {
		tl, err := temporal.LoadFile(path)
		if err != nil {
			_ = out.Error(CodeInvalidInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load timeline", err)
		}
		timelines[i] = tl
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		_ = out.Error(CodeConfigFailure, err.Error(), nil)
		return err
	}

	members := opts.Members
	if members == nil {
		getenv := opts.Getenv
		if getenv == nil {
			getenv = os.Getenv
		}
		members, err = cfg.Members(getenv)
		if err != nil {
			_ = out.Error(CodeConfigFailure, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to build worker roster", err)
		}
	}

	tracker := newSwarmTracker()
	hopts := []hive.Option{
		hive.WithTaskHandler(tracker.taskDone),
		hive.WithConsensusHandler(tracker.reached),
	}
	if opts.IDs != nil {
		hopts = append(hopts, hive.WithIDGenerator(opts.IDs))
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	if dbPath != "" {
		slog.Info("opening database", "path", dbPath)
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
		hopts = append(hopts, hive.WithRecorder(st))
	}

	coord, err := hive.New(cfg.HiveConfig(), members, hopts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create coordinator", err)
	}

	var watcher *timelineWatcher
	if opts.Watch != "" {
		watcher, err = newTimelineWatcher(opts.Watch)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to watch directory", err)
		}
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	timeout := opts.Timeout
	if timeout == 0 && watcher == nil {
		timeout = DefaultSwarmTimeout
	}
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		defer cancelTimeout()
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	submit := func(path string, tl *temporal.Timeline) error {
		id, ids, err := coord.SubmitTimeline(runCtx, tl, hive.SubmitOptions{
			Priority: opts.Priority,
			Replicas: opts.Replicas,
		})
		if err != nil {
			return err
		}
		tracker.submitted(path, tl.DisplayName(), id, len(ids))
		out.VerboseLog("submitted %s as %s (%d tasks)", path, id, len(ids))
		return nil
	}

	var g errgroup.Group
	g.Go(func() error { return coord.Run(runCtx) })
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(runCtx, func(path string, tl *temporal.Timeline) {
				if err := submit(path, tl); err != nil {
					slog.Error("submit failed", "path", path, "error", err)
				}
			})
		})
	}

	var waitErr error
	for i, tl := range timelines {
		if waitErr = submit(paths[i], tl); waitErr != nil {
			waitErr = fmt.Errorf("%s: %w", paths[i], waitErr)
			break
		}
	}
	submitErr := waitErr
	if submitErr == nil {
		waitErr = tracker.wait(ctx, watcher == nil)
	}

	stop()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "swarm error", err)
	}
	if submitErr != nil {
		return WrapExitError(ExitCommandError, "failed to submit timeline", submitErr)
	}

	report, err := buildSwarmReport(context.WithoutCancel(ctx), coord, tracker)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build report", err)
	}
	report.styles = newStyles(cmd.OutOrStdout())
	report.verbose = opts.Verbose
	if err := out.Success(report); err != nil {
		return err
	}

	if watcher == nil && errors.Is(waitErr, context.DeadlineExceeded) {
		return NewExitError(ExitFailure, fmt.Sprintf("swarm timed out after %s", timeout))
	}
	if missing := report.withoutConsensus(); missing > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d timeline(s) finished without consensus", missing))
	}
	return nil
}

// swarmTracker follows coordinator callbacks to decide when a run is done.
// Callbacks arrive on the coordinator loop and may precede the matching
// submitted call.
type swarmTracker struct {
	mu        sync.Mutex
	order     []string
	files     map[string]string
	names     map[string]string
	expected  map[string]int
	terminal  map[string]int
	consensus map[string]bool
	changed   chan struct{}
}

func newSwarmTracker() *swarmTracker {
	return &swarmTracker{
		files:     make(map[string]string),
		names:     make(map[string]string),
		expected:  make(map[string]int),
		terminal:  make(map[string]int),
		consensus: make(map[string]bool),
		changed:   make(chan struct{}, 1),
	}
}

func (t *swarmTracker) submitted(path, name, timelineID string, tasks int) {
	t.mu.Lock()
	if _, ok := t.expected[timelineID]; !ok {
		t.order = append(t.order, timelineID)
		t.files[timelineID] = path
		t.names[timelineID] = name
	}
	t.expected[timelineID] += tasks
	t.mu.Unlock()
	t.notify()
}

func (t *swarmTracker) taskDone(task hive.Task) {
	t.mu.Lock()
	t.terminal[task.Input.TimelineID]++
	t.mu.Unlock()
	t.notify()
}

func (t *swarmTracker) reached(c hive.Consensus) {
	t.mu.Lock()
	t.consensus[c.TimelineID] = true
	t.mu.Unlock()
	t.notify()
}

func (t *swarmTracker) notify() {
	select {
	case t.changed <- struct{}{}:
	default:
	}
}

// settled reports whether every submitted timeline has consensus or no
// outstanding tasks. False until something was submitted.
func (t *swarmTracker) settled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.order) == 0 {
		return false
	}
	for _, id := range t.order {
		if !t.consensus[id] && t.terminal[id] < t.expected[id] {
			return false
		}
	}
	return true
}

// wait blocks until ctx is done or, when untilSettled, the run settles.
func (t *swarmTracker) wait(ctx context.Context, untilSettled bool) error {
	for {
		if untilSettled && t.settled() {
			return nil
		}
		select {
		case <-t.changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *swarmTracker) timelines() []SwarmTimeline {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SwarmTimeline, len(t.order))
	for i, id := range t.order {
		out[i] = SwarmTimeline{
			File:       t.files[id],
			Name:       t.names[id],
			TimelineID: id,
		}
	}
	return out
}

func buildSwarmReport(ctx context.Context, coord *hive.Coordinator, tracker *swarmTracker) (*SwarmReport, error) {
	status, err := coord.Status(ctx)
	if err != nil {
		return nil, err
	}

	report := &SwarmReport{Status: status, Timelines: tracker.timelines()}
	for i := range report.Timelines {
		tl := &report.Timelines[i]

		tasks, err := coord.TimelineTasks(ctx, tl.TimelineID)
		if err != nil {
			return nil, err
		}
		tl.Tasks = make([]SwarmTask, 0, len(tasks))
		for _, task := range tasks {
			line := SwarmTask{ID: task.ID, Worker: task.WorkerID, Status: task.Status}
			if task.Error != nil {
				line.Error = task.Error.Error()
			}
			tl.Tasks = append(tl.Tasks, line)
		}

		rec, ok, err := coord.Consensus(ctx, tl.TimelineID)
		if err != nil {
			return nil, err
		}
		if ok {
			tl.Consensus = &rec
		}
	}
	return report, nil
}

func (r *SwarmReport) withoutConsensus() int {
	n := 0
	for _, tl := range r.Timelines {
		if tl.Consensus == nil {
			n++
		}
	}
	return n
}

// WriteText renders the human-readable swarm report.
func (r *SwarmReport) WriteText(w io.Writer) error {
	st := r.styles
	if st == nil {
		st = newStyles(w)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d workers, quorum %d, threshold %.2f\n",
		st.title.Render("Swarm:"), r.Status.TotalWorkers, r.Status.Quorum, r.Status.ConsensusThreshold)

	for _, tl := range r.Timelines {
		fmt.Fprintf(&b, "\n%s %s\n", st.title.Render("Timeline:"), tl.Name)
		fmt.Fprintf(&b, "  %s\n", st.muted.Render("id "+tl.TimelineID))
		for _, task := range tl.Tasks {
			fmt.Fprintf(&b, "  %s %s %s", task.ID, task.Worker, st.Status(task.Status))
			if task.Error != "" {
				fmt.Fprintf(&b, " %s", st.muted.Render("("+task.Error+")"))
			}
			b.WriteString("\n")
		}

		if tl.Consensus == nil {
			fmt.Fprintf(&b, "  %s\n", st.fail.Render("No consensus"))
			continue
		}
		c := tl.Consensus
		fmt.Fprintf(&b, "  %s %d participants, confidence %.2f (%s)\n",
			st.ok.Render("Consensus:"), c.Participants, c.Confidence, c.Method)
		if r.verbose {
			for _, line := range strings.Split(c.Narrative, "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
