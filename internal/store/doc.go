// Package store provides SQLite-backed durable storage for hive activity.
//
// The store keeps five tables:
//   - timelines: one row per submitted timeline, keyed by fingerprint
//   - events: the timeline's points, one row each
//   - tasks: the latest known state of every analysis task
//   - consensus: at most one record per timeline
//   - metrics: append-only measurements (heartbeats, consensus confidence)
//
// Every write is idempotent. Timelines, events and consensus records use
// ON CONFLICT DO NOTHING. Task rows are upserted, but a row that reached a
// terminal status is never overwritten.
//
// Timestamps are stored as fixed-width UTC text so that lexical order is
// chronological order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// *Store satisfies hive.Recorder.
package store
