// Package hive runs timeline analyses across a pool of workers and merges
// their results into a consensus.
//
// # Architecture
//
// A Coordinator owns three pieces of state: the Scheduler (pending queue,
// active set, terminal history), the node registry, and the
// ConsensusBuilder. All three are mutated only on the goroutine running
// Coordinator.Run. Public methods enqueue events and, where a reply is
// needed, wait for the loop to answer.
//
// Worker calls run in their own goroutines and post completion events back
// onto the queue. Persistence goes through a buffered Recorder channel
// drained by a separate goroutine, so neither slow analysts nor a slow
// store can stall dispatch.
//
// # Task lifecycle
//
//	pending -> assigned -> running -> completed
//	                               \-> failed
//	pending -> cancelled
//
// Transitions are strictly forward. An illegal transition is a programming
// error and panics with *InvariantError.
//
// # Consensus
//
// Once the number of completed tasks for a timeline reaches
// Quorum(workers, threshold), exactly one Consensus record is emitted for
// that timeline. Failed tasks never count.
package hive
