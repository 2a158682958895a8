package hive

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

// Assignment pairs a freshly dispatched task with its node.
type Assignment struct {
	Task *Task
	Node *Node
}

// Counts summarizes scheduler occupancy.
type Counts struct {
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Scheduler holds the pending queue, the active set and the terminal
// history. It is not safe for concurrent use; the Coordinator confines it
// to its loop goroutine.
//
// INVARIANTS:
//   - a node holds at most one active task
//   - len(active) <= len(nodes)
//   - history is append-only and holds only completed and failed tasks
type Scheduler struct {
	nodes     []*Node
	nodeIndex map[string]*Node

	pending   []*Task
	active    map[string]*Task
	history   []*Task
	cancelled []*Task
	tasks     map[string]*Task
	order     []*Task

	seq seqClock
}

// NewScheduler creates a scheduler over nodes. Registration order breaks
// ties between idle nodes.
func NewScheduler(nodes []*Node) *Scheduler {
	s := &Scheduler{
		nodes:     nodes,
		nodeIndex: make(map[string]*Node, len(nodes)),
		pending:   []*Task{},
		active:    make(map[string]*Task),
		history:   []*Task{},
		tasks:     make(map[string]*Task),
	}
	for _, n := range nodes {
		s.nodeIndex[n.ID] = n
	}
	return s
}

// Submit appends a pending task. Only structural checks are made.
func (s *Scheduler) Submit(t *Task) error {
	if t == nil {
		return &ValidationError{Field: "task", Message: "is nil"}
	}
	if t.ID == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if _, dup := s.tasks[t.ID]; dup {
		return &ValidationError{Field: "id", Message: fmt.Sprintf("duplicate task id %q", t.ID)}
	}
	if t.Status == "" {
		t.Status = TaskPending
	}
	if t.Status != TaskPending {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("must be pending, got %s", t.Status)}
	}
	if t.Type == "" {
		t.Type = TaskTemporalAnalysis
	}

	t.seq = s.seq.Next()
	s.pending = append(s.pending, t)
	s.tasks[t.ID] = t
	s.order = append(s.order, t)
	return nil
}

// Dispatch assigns pending tasks to idle nodes, highest priority first,
// and returns the new assignments for the caller to launch.
//
// Dispatch stops as soon as no node is idle; the task at the head of the
// queue stays pending for the next round.
func (s *Scheduler) Dispatch() []Assignment {
	if len(s.pending) == 0 {
		return nil
	}

	slices.SortStableFunc(s.pending, func(a, b *Task) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	var out []Assignment
	for len(s.pending) > 0 && len(s.active) < len(s.nodes) {
		node := s.idleNode()
		if node == nil {
			break
		}

		t := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]

		t.transition(TaskAssigned)
		t.WorkerID = node.ID
		node.CurrentTask = t.ID
		node.Status = NodeBusy
		node.Load = 1
		s.active[t.ID] = t

		out = append(out, Assignment{Task: t, Node: node})
	}

	if len(s.active) > len(s.nodes) {
		panic(&InvariantError{
			Code:    InvariantPoolOverflow,
			Message: fmt.Sprintf("%d active tasks for %d nodes", len(s.active), len(s.nodes)),
		})
	}
	return out
}

func (s *Scheduler) idleNode() *Node {
	for _, n := range s.nodes {
		if n.Idle() {
			return n
		}
	}
	return nil
}

// Start marks an assigned task as running.
func (s *Scheduler) Start(id string) *Task {
	t := s.mustActive(id)
	t.transition(TaskRunning)
	return t
}

// Complete records a successful analysis and moves the task to history.
func (s *Scheduler) Complete(id string, a worker.Analysis, at time.Time) *Task {
	t := s.mustActive(id)
	t.transition(TaskCompleted)
	t.Output = &a
	t.Progress = 100
	t.CompletedAt = &at

	node := s.release(t)
	node.TasksCompleted++
	s.history = append(s.history, t)
	return t
}

// Fail records a worker failure and moves the task to history.
func (s *Scheduler) Fail(id string, taskErr *TaskError, at time.Time) *Task {
	t := s.mustActive(id)
	t.transition(TaskFailed)
	t.Error = taskErr
	t.CompletedAt = &at

	s.release(t)
	s.history = append(s.history, t)
	return t
}

// Cancel removes a pending task from the queue.
func (s *Scheduler) Cancel(id string, at time.Time) (*Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("cancel %s: %w", id, ErrTaskNotFound)
	}
	if t.Status != TaskPending {
		return nil, fmt.Errorf("cancel %s (%s): %w", id, t.Status, ErrNotPending)
	}

	i := slices.Index(s.pending, t)
	if i < 0 {
		panic(&InvariantError{Code: InvariantUnknownTask, Message: "pending task missing from queue", TaskID: id})
	}
	s.pending = slices.Delete(s.pending, i, i+1)

	t.transition(TaskCancelled)
	t.CompletedAt = &at
	s.cancelled = append(s.cancelled, t)
	return t, nil
}

func (s *Scheduler) mustActive(id string) *Task {
	t, ok := s.active[id]
	if !ok {
		panic(&InvariantError{Code: InvariantUnknownTask, Message: "task is not active", TaskID: id})
	}
	return t
}

// release frees the task's node. A node whose status was changed while it
// was busy keeps that status.
func (s *Scheduler) release(t *Task) *Node {
	delete(s.active, t.ID)
	node, ok := s.nodeIndex[t.WorkerID]
	if !ok {
		panic(&InvariantError{Code: InvariantUnknownTask, Message: "active task on unknown node", TaskID: t.ID, NodeID: t.WorkerID})
	}
	if node.CurrentTask != t.ID {
		panic(&InvariantError{Code: InvariantNodeOccupied, Message: "node is running another task", TaskID: t.ID, NodeID: node.ID})
	}
	node.CurrentTask = ""
	node.Load = 0
	if node.Status == NodeBusy {
		node.Status = NodeActive
	}
	return node
}

// SetNodeStatus changes a node's availability. Marking a node busy by hand
// is rejected because busy is derived from CurrentTask.
func (s *Scheduler) SetNodeStatus(id string, status NodeStatus) error {
	node, ok := s.nodeIndex[id]
	if !ok {
		return fmt.Errorf("set status %s: %w", id, ErrNodeNotFound)
	}
	if _, err := ParseNodeStatus(string(status)); err != nil {
		return &ValidationError{Field: "status", Message: err.Error()}
	}
	if status == NodeBusy {
		return &ValidationError{Field: "status", Message: "busy is managed by the scheduler"}
	}
	if status == NodeActive && node.CurrentTask != "" {
		// Still running; it returns to active when the task finishes.
		node.Status = NodeBusy
		return nil
	}
	node.Status = status
	return nil
}

// Task returns the task with the given ID.
func (s *Scheduler) Task(id string) (*Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

// Node returns the node with the given ID.
func (s *Scheduler) Node(id string) (*Node, bool) {
	n, ok := s.nodeIndex[id]
	return n, ok
}

// Nodes returns the registered nodes in registration order.
func (s *Scheduler) Nodes() []*Node {
	return s.nodes
}

// History returns terminal tasks in completion order.
func (s *Scheduler) History() []*Task {
	return s.history
}

// tasksInOrder returns every task in submission order.
func (s *Scheduler) tasksInOrder() []*Task {
	return s.order
}

// Pending returns the queued tasks in their current order.
func (s *Scheduler) Pending() []*Task {
	return s.pending
}

// ActiveCount returns the number of assigned or running tasks.
func (s *Scheduler) ActiveCount() int {
	return len(s.active)
}

// Counts returns queue and history sizes.
func (s *Scheduler) Counts() Counts {
	c := Counts{
		Pending:   len(s.pending),
		Active:    len(s.active),
		Cancelled: len(s.cancelled),
	}
	for _, t := range s.history {
		switch t.Status {
		case TaskCompleted:
			c.Completed++
		case TaskFailed:
			c.Failed++
		}
	}
	return c
}
