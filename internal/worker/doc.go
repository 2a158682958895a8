// Package worker defines the analyst contract used by the hive and its
// backends.
//
// A Worker receives a timeline and returns free-form analysis text with an
// optional self-reported confidence. Three backends exist:
//
//	mock       deterministic narration of the local anomaly detector
//	openai     OpenAI-compatible chat completions endpoint
//	anthropic  Anthropic messages endpoint
//
// Backends are selected by the Backend enum, never by inspecting model
// names. Every failure is reported as *Error carrying a Kind so callers can
// record it on the task without string matching.
package worker
