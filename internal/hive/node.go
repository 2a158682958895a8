package hive

import (
	"fmt"
	"time"
)

// NodeStatus is a worker node's availability.
type NodeStatus string

const (
	NodeJoining NodeStatus = "joining"
	NodeActive  NodeStatus = "active"
	NodeBusy    NodeStatus = "busy"
	NodeOffline NodeStatus = "offline"
	NodeError   NodeStatus = "error"
)

// ParseNodeStatus validates an externally supplied status.
func ParseNodeStatus(s string) (NodeStatus, error) {
	switch st := NodeStatus(s); st {
	case NodeJoining, NodeActive, NodeBusy, NodeOffline, NodeError:
		return st, nil
	default:
		return "", fmt.Errorf("unknown node status %q", s)
	}
}

// Node is a registered worker slot.
type Node struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Capabilities   []string   `json:"capabilities"`
	Status         NodeStatus `json:"status"`
	Load           float64    `json:"load"`
	TasksCompleted int        `json:"tasks_completed"`
	LastHeartbeat  time.Time  `json:"last_heartbeat"`

	// CurrentTask is the ID of the node's active task, empty when idle.
	CurrentTask string `json:"current_task,omitempty"`
}

// Idle reports whether the node can take a task now.
func (n *Node) Idle() bool {
	return n.Status == NodeActive && n.CurrentTask == ""
}
