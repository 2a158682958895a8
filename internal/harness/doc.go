// Package harness runs scripted swarm scenarios for lextri.
//
// A scenario feeds one timeline through a real hive coordinator whose
// workers are scripted (testutil.ScriptedWorker), persists everything to an
// in-memory store, and checks assertions against the outcome. The run is
// summarized as a Report that can be compared against a golden file.
//
// # Scenario Format
//
//	name: time_travel_consensus
//	description: "Three analysts, one times out"
//	at: "2024-01-15T10:00:00Z"
//	timeline:
//	  example: true
//	hive:
//	  consensus_threshold: 0.7
//	  task_timeout: 50ms
//	workers:
//	  - name: alpha
//	    confidence: 0.9
//	  - name: beta
//	    confidence: 0.9
//	  - name: gamma
//	    fail: timeout
//	submit:
//	  priority: 5
//	assertions:
//	  - type: anomaly_count
//	    anomaly: time_travel
//	    count: 1
//	  - type: consensus
//	    reached: true
//	    participants: 2
//	  - type: task_count
//	    status: failed
//	    count: 1
//
// The timeline is exactly one of: example (the built-in example timeline
// at the scenario's start time), file (a timeline JSON file relative to the
// scenario), or points (inline).
//
// # Assertion Types
//
//   - anomaly_count: number of detector findings, optionally of one type
//   - consensus: whether consensus was reached, and optionally its
//     participant count and confidence
//   - task_count: number of tasks that ended in a status
//   - stored_metric: number of persisted metrics with a name
//
// # Deterministic Reports
//
// Task IDs come from a sequence generator and every timestamp from a
// stepping clock, so reports never contain wall time. Worker assignment is
// deterministic while replicas do not exceed the roster. Which analyses
// form consensus depends on completion order once more workers succeed
// than the quorum needs; scenarios that snapshot a confidence should give
// the succeeding workers equal confidence, or let exactly a quorum succeed.
package harness
