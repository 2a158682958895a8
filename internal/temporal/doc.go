// Package temporal provides the tri-temporal event model and the anomaly
// detector that runs over it.
//
// Every Point carries three clocks:
//   - Valid time (VT): when the event actually happened
//   - Transaction time (TT): when the system recorded it
//   - Decision time (DT): when something acted on it (optional)
//
// Points are never validated against each other at construction time.
// Inconsistencies between the clocks are exactly what Detect reports.
//
// # Detection Rules
//
// Detect walks the points in valid-time order (stable on ties) and applies
// four independent checks per point:
//
//	time_travel          TT < VT                         critical
//	premature_decision   DT set and DT < TT              high
//	ingestion_lag        TT - VT > 60s (> 300s is high)  medium|high
//	out_of_order         VT > prev.VT and TT < prev.TT   high
//
// The rule set is deterministic. Identical input yields identical output,
// including record order.
//
// # Exchange Format
//
// Timelines serialize to the JSON exchange format consumed by the rest of
// the system (see codec.go). Round-tripping a timeline preserves point
// count, identifiers, instants, and therefore the detector output.
package temporal
