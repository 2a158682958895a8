package hive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

const (
	DefaultDispatchInterval = 5 * time.Second
	DefaultLivenessInterval = 30 * time.Second

	tracerName = "github.com/Clyde17271/LEX-TRI/internal/hive"
)

// Config holds coordinator tuning. Zero values take defaults.
type Config struct {
	// ConsensusThreshold is the fraction of the pool that must complete an
	// analysis of the same timeline before consensus. Must be in (0,1].
	ConsensusThreshold float64

	// DispatchInterval is how often pending work is re-offered to idle
	// nodes, in addition to dispatch on every submission and completion.
	DispatchInterval time.Duration

	// LivenessInterval is how often heartbeats are recorded.
	LivenessInterval time.Duration

	// TaskTimeout bounds a single worker call. Zero means no limit.
	TaskTimeout time.Duration

	// RecorderBuffer is the capacity of the persistence queue.
	RecorderBuffer int
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		ConsensusThreshold: DefaultConsensusThreshold,
		DispatchInterval:   DefaultDispatchInterval,
		LivenessInterval:   DefaultLivenessInterval,
		RecorderBuffer:     DefaultRecorderBuffer,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConsensusThreshold == 0 {
		c.ConsensusThreshold = d.ConsensusThreshold
	}
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = d.DispatchInterval
	}
	if c.LivenessInterval <= 0 {
		c.LivenessInterval = d.LivenessInterval
	}
	if c.RecorderBuffer <= 0 {
		c.RecorderBuffer = d.RecorderBuffer
	}
	return c
}

// Member is a worker joining the pool.
type Member struct {
	// ID is the node identifier. Generated when empty.
	ID           string
	Name         string
	Capabilities []string
	Worker       worker.Worker
}

// SubmitOptions tunes SubmitTimeline.
type SubmitOptions struct {
	// Priority orders dispatch; higher runs first.
	Priority int

	// Replicas is how many independent analyses to request. Zero means one
	// per worker, which lets the pool reach quorum.
	Replicas int
}

// DefaultPriority is the priority used by the CLI when none is given.
const DefaultPriority = 5

// Status is an aggregate view of the coordinator.
type Status struct {
	CoordinatorStatus  string    `json:"coordinator_status"`
	TotalWorkers       int       `json:"total_workers"`
	ActiveWorkers      int       `json:"active_workers"`
	Counts             Counts    `json:"tasks"`
	ConsensusThreshold float64   `json:"consensus_threshold"`
	Quorum             int       `json:"quorum"`
	ConsensusRecords   int       `json:"consensus_records"`
	Timestamp          time.Time `json:"timestamp"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRecorder persists activity through r.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// WithClock overrides the wall clock.
func WithClock(clk Clock) Option {
	return func(c *Coordinator) { c.clock = clk }
}

// WithIDGenerator overrides task and node ID generation.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Coordinator) { c.ids = g }
}

// WithTracerProvider sets the provider for task execution spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) { c.tracer = tp.Tracer(tracerName) }
}

// WithConsensusHandler registers fn to receive each consensus record. fn
// runs on the coordinator loop and must not call back into the
// coordinator.
func WithConsensusHandler(fn func(Consensus)) Option {
	return func(c *Coordinator) { c.onConsensus = fn }
}

// WithTaskHandler registers fn to receive each task reaching a terminal
// state. fn runs on the coordinator loop and must not call back into the
// coordinator.
func WithTaskHandler(fn func(Task)) Option {
	return func(c *Coordinator) { c.onTask = fn }
}

// WithTaskTimeout bounds each worker call.
func WithTaskTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.cfg.TaskTimeout = d }
}

// Coordinator is the single-writer hive event loop.
//
// Thread-safety model:
//   - Submit, SubmitTimeline, Cancel, SetNodeStatus and the queries: safe
//     from any goroutine
//   - Run: called from exactly one goroutine, once
//
// Queries issued before Run starts wait until it does. After Run returns
// they read the final state.
type Coordinator struct {
	cfg       Config
	sched     *Scheduler
	consensus *ConsensusBuilder
	workers   map[string]worker.Worker
	queue     *eventQueue

	recorder Recorder
	rec      *asyncRecorder
	clock    Clock
	ids      IDGenerator
	tracer   trace.Tracer

	onConsensus func(Consensus)
	onTask      func(Task)

	inflight errgroup.Group
	running  atomic.Bool
	started  atomic.Bool
	done     chan struct{}
}

// New builds a coordinator over members. Nodes join as active.
func New(cfg Config, members []Member, opts ...Option) (*Coordinator, error) {
	cfg = cfg.withDefaults()
	if cfg.ConsensusThreshold <= 0 || cfg.ConsensusThreshold > 1 {
		return nil, fmt.Errorf("consensus threshold %v outside (0,1]", cfg.ConsensusThreshold)
	}
	if len(members) == 0 {
		return nil, errors.New("hive requires at least one worker")
	}

	c := &Coordinator{
		cfg:      cfg,
		workers:  make(map[string]worker.Worker, len(members)),
		queue:    newEventQueue(),
		recorder: NopRecorder{},
		clock:    SystemClock{},
		ids:      UUIDv7Generator{},
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	now := c.clock.Now()
	nodes := make([]*Node, 0, len(members))
	for i, m := range members {
		if m.Worker == nil {
			return nil, fmt.Errorf("member %d (%s): worker is nil", i, m.Name)
		}
		id := m.ID
		if id == "" {
			id = c.ids.Generate()
		}
		if _, dup := c.workers[id]; dup {
			return nil, fmt.Errorf("member %d: duplicate node id %q", i, id)
		}
		name := m.Name
		if name == "" {
			name = id
		}
		c.workers[id] = m.Worker
		nodes = append(nodes, &Node{
			ID:            id,
			Name:          name,
			Capabilities:  m.Capabilities,
			Status:        NodeActive,
			LastHeartbeat: now,
		})
	}

	c.sched = NewScheduler(nodes)
	c.consensus = NewConsensusBuilder(len(nodes), cfg.ConsensusThreshold)
	c.rec = newAsyncRecorder(c.recorder, cfg.RecorderBuffer)
	return c, nil
}

// Quorum returns the completion count that triggers consensus.
func (c *Coordinator) Quorum() int {
	return c.consensus.Quorum()
}

// Run processes events until ctx is cancelled.
//
// On cancellation Run stops accepting submissions, lets in-flight worker
// calls finish (they observe the cancelled context), applies their
// results, flushes the recorder and returns ctx.Err(). No goroutine or
// ticker started by the coordinator outlives Run.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("coordinator already started")
	}
	c.running.Store(true)
	defer close(c.done)

	go c.rec.run(ctx)

	dispatchTicker := time.NewTicker(c.cfg.DispatchInterval)
	defer dispatchTicker.Stop()
	livenessTicker := time.NewTicker(c.cfg.LivenessInterval)
	defer livenessTicker.Stop()

	slog.Info("hive coordinator starting",
		"workers", len(c.sched.Nodes()),
		"quorum", c.consensus.Quorum(),
		"threshold", c.cfg.ConsensusThreshold,
	)

	for {
		if ev, ok := c.queue.TryDequeue(); ok {
			c.handle(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("hive coordinator stopping: context cancelled",
				"active", c.sched.ActiveCount(),
				"pending", len(c.sched.Pending()),
			)
			c.shutdown()
			return ctx.Err()

		case <-c.queue.Wait():

		case <-dispatchTicker.C:
			c.dispatch(ctx)

		case <-livenessTicker.C:
			c.liveness()
		}
	}
}

// shutdown drains in-flight results, then rejects whatever is left.
func (c *Coordinator) shutdown() {
	c.running.Store(false)

	for c.sched.ActiveCount() > 0 {
		ev, ok := c.queue.TryDequeue()
		if !ok {
			<-c.queue.Wait()
			continue
		}
		switch ev.typ {
		case eventResult, eventQuery:
			c.handle(context.Background(), ev)
		default:
			reject(ev)
		}
	}

	if err := c.inflight.Wait(); err != nil {
		slog.Error("worker goroutine failed", "error", err)
	}

	for _, ev := range c.queue.Close() {
		if ev.typ == eventQuery {
			ev.query()
			continue
		}
		reject(ev)
	}

	c.rec.close()
	slog.Info("hive coordinator stopped", "completed", c.sched.Counts().Completed)
}

func reject(ev event) {
	if ev.reply != nil {
		ev.reply <- ErrStopped
	}
}

// handle routes one event. Called only from the Run goroutine.
func (c *Coordinator) handle(ctx context.Context, ev event) {
	switch ev.typ {
	case eventSubmit:
		err := c.applySubmit(ev)
		if ev.reply != nil {
			ev.reply <- err
		}
		if err == nil && c.running.Load() {
			c.dispatch(ctx)
		}

	case eventResult:
		c.applyResult(ev)
		if c.running.Load() {
			c.dispatch(ctx)
		}

	case eventCancel:
		err := c.applyCancel(ev.taskID)
		if ev.reply != nil {
			ev.reply <- err
		}

	case eventNodeStatus:
		err := c.sched.SetNodeStatus(ev.nodeID, ev.nodeStatus)
		if ev.reply != nil {
			ev.reply <- err
		}
		if err == nil {
			slog.Info("node status changed", "node", ev.nodeID, "status", ev.nodeStatus)
		}

	case eventQuery:
		ev.query()

	default:
		slog.Error("unknown hive event", "type", int(ev.typ))
	}
}

func (c *Coordinator) applySubmit(ev event) error {
	seen := make(map[string]bool, len(ev.tasks))
	for _, t := range ev.tasks {
		if t.ID == "" {
			return &ValidationError{Field: "id", Message: "is required"}
		}
		if _, exists := c.sched.Task(t.ID); exists || seen[t.ID] {
			return &ValidationError{Field: "id", Message: fmt.Sprintf("duplicate task id %q", t.ID)}
		}
		seen[t.ID] = true
	}

	if ev.timeline != nil {
		c.rec.timeline(ev.timelineID, ev.timeline, ev.at)
	}
	for _, t := range ev.tasks {
		if err := c.sched.Submit(t); err != nil {
			return err
		}
		c.rec.task(t.Snapshot())
		slog.Debug("task submitted",
			"task_id", t.ID,
			"timeline_id", t.Input.TimelineID,
			"priority", t.Priority,
		)
	}
	return nil
}

// dispatch launches every assignment the scheduler can make now.
func (c *Coordinator) dispatch(ctx context.Context) {
	for _, a := range c.sched.Dispatch() {
		t := c.sched.Start(a.Task.ID)
		c.rec.task(t.Snapshot())
		slog.Info("task dispatched",
			"task_id", t.ID,
			"worker", a.Node.Name,
			"priority", t.Priority,
		)
		c.launch(ctx, t.Snapshot(), a.Node.ID, a.Node.Name)
	}
}

// launch runs one worker call in its own goroutine. The span ends before
// the result is posted so it is always recorded by the time the loop sees
// the completion.
func (c *Coordinator) launch(ctx context.Context, t Task, nodeID, nodeName string) {
	w := c.workers[nodeID]

	c.inflight.Go(func() error {
		analysis, err := func() (worker.Analysis, error) {
			spanCtx, span := c.tracer.Start(ctx, "hive.analyze", trace.WithAttributes(
				attribute.String("hive.task.id", t.ID),
				attribute.String("hive.timeline.id", t.Input.TimelineID),
				attribute.String("hive.worker", nodeName),
				attribute.Int("hive.task.priority", t.Priority),
			))
			defer span.End()

			runCtx := spanCtx
			if c.cfg.TaskTimeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(spanCtx, c.cfg.TaskTimeout)
				defer cancel()
			}

			analysis, err := worker.Invoke(runCtx, nodeName, w, t.Input.Timeline)
			if err != nil {
				span.RecordError(err)
				span.SetAttributes(attribute.String("hive.error.kind", string(worker.KindOf(err))))
				span.SetStatus(codes.Error, err.Error())
				return worker.Analysis{}, err
			}
			if analysis.Confidence != nil {
				span.SetAttributes(attribute.Float64("hive.confidence", *analysis.Confidence))
			}
			span.SetStatus(codes.Ok, "")
			return analysis, nil
		}()

		c.queue.Enqueue(event{
			typ:      eventResult,
			taskID:   t.ID,
			analysis: analysis,
			err:      err,
			at:       c.clock.Now(),
		})
		return nil
	})
}

func (c *Coordinator) applyResult(ev event) {
	var t *Task
	if ev.err != nil {
		node, _ := c.sched.Node(c.mustTask(ev.taskID).WorkerID)
		t = c.sched.Fail(ev.taskID, taskErrorFrom(ev.err, node.Name), ev.at)
		slog.Warn("task failed",
			"task_id", t.ID,
			"worker", t.Error.Worker,
			"kind", t.Error.Kind,
			"error", t.Error.Message,
		)
	} else {
		t = c.sched.Complete(ev.taskID, ev.analysis, ev.at)
		slog.Info("task completed",
			"task_id", t.ID,
			"worker", t.WorkerID,
			"timeline_id", t.Input.TimelineID,
		)
	}

	snap := t.Snapshot()
	c.rec.task(snap)
	if c.onTask != nil {
		c.onTask(snap)
	}

	if t.Status != TaskCompleted {
		return
	}
	cons, ok := c.consensus.Observe(t.Input.TimelineID, c.sched.History(), ev.at)
	if !ok {
		return
	}

	slog.Info("consensus reached",
		"timeline_id", cons.TimelineID,
		"participants", cons.Participants,
		"confidence", cons.Confidence,
	)
	c.rec.consensus(cons)
	c.rec.metric(Metric{
		Name:   "hive_consensus_confidence",
		Type:   "consensus",
		Value:  cons.Confidence,
		Source: "hive_coordinator",
		Tags: map[string]string{
			"timeline_id":          cons.TimelineID,
			"participating_agents": strconv.Itoa(cons.Participants),
		},
		RecordedAt: ev.at,
	})
	if c.onConsensus != nil {
		c.onConsensus(cons)
	}
}

func (c *Coordinator) mustTask(id string) *Task {
	t, ok := c.sched.Task(id)
	if !ok {
		panic(&InvariantError{Code: InvariantUnknownTask, Message: "result for unknown task", TaskID: id})
	}
	return t
}

func (c *Coordinator) applyCancel(id string) error {
	t, err := c.sched.Cancel(id, c.clock.Now())
	if err != nil {
		return err
	}
	slog.Info("task cancelled", "task_id", id)
	snap := t.Snapshot()
	c.rec.task(snap)
	if c.onTask != nil {
		c.onTask(snap)
	}
	return nil
}

// liveness stamps a heartbeat on every available node.
func (c *Coordinator) liveness() {
	now := c.clock.Now()
	for _, n := range c.sched.Nodes() {
		if n.Status != NodeActive && n.Status != NodeBusy {
			continue
		}
		n.LastHeartbeat = now
		c.rec.metric(Metric{
			Name:       "agent_heartbeat",
			Type:       "status",
			Value:      1,
			Source:     "agent_" + n.Name,
			Tags:       map[string]string{"agent_id": n.ID, "status": string(n.Status)},
			RecordedAt: now,
		})
	}
	slog.Debug("heartbeat recorded", "nodes", len(c.sched.Nodes()))
}

// send enqueues ev and waits for its reply.
func (c *Coordinator) send(ctx context.Context, ev event) error {
	ev.reply = make(chan error, 1)
	if !c.queue.Enqueue(ev) {
		return ErrStopped
	}
	select {
	case err := <-ev.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do runs fn on the loop goroutine, or directly once Run has returned.
func (c *Coordinator) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	if !c.queue.Enqueue(event{typ: eventQuery, query: wrapped}) {
		select {
		case <-c.done:
			fn()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues a raw task. An empty ID is generated; a zero CreatedAt is
// stamped.
func (c *Coordinator) Submit(ctx context.Context, t *Task) error {
	if t == nil {
		return &ValidationError{Field: "task", Message: "is nil"}
	}
	if t.ID == "" {
		t.ID = c.ids.Generate()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = c.clock.Now()
	}
	return c.send(ctx, event{typ: eventSubmit, tasks: []*Task{t}})
}

// SubmitTimeline requests analyses of tl and returns its content
// fingerprint together with the created task IDs.
func (c *Coordinator) SubmitTimeline(ctx context.Context, tl *temporal.Timeline, opts SubmitOptions) (string, []string, error) {
	if tl == nil {
		return "", nil, &ValidationError{Field: "timeline", Message: "is nil"}
	}
	if err := tl.Validate(); err != nil {
		return "", nil, fmt.Errorf("submit timeline: %w", err)
	}
	timelineID, err := temporal.Fingerprint(tl)
	if err != nil {
		return "", nil, fmt.Errorf("submit timeline: %w", err)
	}

	replicas := opts.Replicas
	if replicas <= 0 {
		replicas = len(c.workers)
	}

	now := c.clock.Now()
	tasks := make([]*Task, replicas)
	ids := make([]string, replicas)
	for i := range tasks {
		ids[i] = c.ids.Generate()
		tasks[i] = NewAnalysisTask(ids[i], timelineID, tl, opts.Priority, now)
	}

	err = c.send(ctx, event{
		typ:        eventSubmit,
		tasks:      tasks,
		timelineID: timelineID,
		timeline:   tl,
		at:         now,
	})
	if err != nil {
		return "", nil, err
	}
	slog.Info("timeline submitted",
		"timeline_id", timelineID,
		"name", tl.Name,
		"points", tl.Len(),
		"tasks", replicas,
	)
	return timelineID, ids, nil
}

// Cancel cancels a task that has not been dispatched yet.
func (c *Coordinator) Cancel(ctx context.Context, taskID string) error {
	return c.send(ctx, event{typ: eventCancel, taskID: taskID})
}

// SetNodeStatus changes a node's availability. A node returning to active
// picks up pending work on the next dispatch tick.
func (c *Coordinator) SetNodeStatus(ctx context.Context, nodeID string, status NodeStatus) error {
	return c.send(ctx, event{typ: eventNodeStatus, nodeID: nodeID, nodeStatus: status})
}

// TaskStatus returns a snapshot of the task.
func (c *Coordinator) TaskStatus(ctx context.Context, taskID string) (Task, error) {
	var (
		snap  Task
		found bool
	)
	err := c.do(ctx, func() {
		if t, ok := c.sched.Task(taskID); ok {
			snap, found = t.Snapshot(), true
		}
	})
	if err != nil {
		return Task{}, err
	}
	if !found {
		return Task{}, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	return snap, nil
}

// Status returns aggregate counts.
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, func() {
		st = Status{
			CoordinatorStatus:  "stopped",
			TotalWorkers:       len(c.sched.Nodes()),
			Counts:             c.sched.Counts(),
			ConsensusThreshold: c.cfg.ConsensusThreshold,
			Quorum:             c.consensus.Quorum(),
			ConsensusRecords:   c.consensus.Len(),
			Timestamp:          c.clock.Now(),
		}
		if c.running.Load() {
			st.CoordinatorStatus = "running"
		}
		for _, n := range c.sched.Nodes() {
			if n.Status == NodeActive || n.Status == NodeBusy {
				st.ActiveWorkers++
			}
		}
	})
	return st, err
}

// Consensus returns the record for timelineID if one was emitted.
func (c *Coordinator) Consensus(ctx context.Context, timelineID string) (Consensus, bool, error) {
	var (
		rec Consensus
		ok  bool
	)
	err := c.do(ctx, func() {
		rec, ok = c.consensus.Get(timelineID)
	})
	return rec, ok, err
}

// Nodes returns snapshots of the registered nodes in registration order.
func (c *Coordinator) Nodes(ctx context.Context) ([]Node, error) {
	var out []Node
	err := c.do(ctx, func() {
		out = make([]Node, 0, len(c.sched.Nodes()))
		for _, n := range c.sched.Nodes() {
			out = append(out, *n)
		}
	})
	return out, err
}

// TimelineTasks returns snapshots of every task for timelineID in
// submission order.
func (c *Coordinator) TimelineTasks(ctx context.Context, timelineID string) ([]Task, error) {
	var out []Task
	err := c.do(ctx, func() {
		out = c.timelineTasks(timelineID)
	})
	return out, err
}

func (c *Coordinator) timelineTasks(timelineID string) []Task {
	out := []Task{}
	for _, t := range c.sched.tasksInOrder() {
		if t.Input.TimelineID == timelineID {
			out = append(out, t.Snapshot())
		}
	}
	return out
}
