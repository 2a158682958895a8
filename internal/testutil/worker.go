package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

// Script describes how a ScriptedWorker answers.
type Script struct {
	// Text is the analysis narrative. Empty means a generated one.
	Text string

	// Confidence is reported as-is. Nil reports none.
	Confidence *float64

	// Fail makes every call fail with this kind. KindEmpty returns blank
	// text instead of an error; KindPanic panics.
	Fail worker.Kind

	// Delay holds each call for this long, or until ctx is done.
	Delay time.Duration
}

// ScriptedWorker is a worker.Worker with canned answers. It never touches
// the network, so scenarios that use it are deterministic.
//
// Thread-safety: safe for concurrent use.
type ScriptedWorker struct {
	name   string
	script Script
	calls  atomic.Int64
}

// NewScriptedWorker creates a worker that answers per script.
func NewScriptedWorker(name string, script Script) *ScriptedWorker {
	return &ScriptedWorker{name: name, script: script}
}

// Calls returns how many times Analyze has run.
func (w *ScriptedWorker) Calls() int64 {
	return w.calls.Load()
}

// Analyze implements worker.Worker.
func (w *ScriptedWorker) Analyze(ctx context.Context, tl *temporal.Timeline) (worker.Analysis, error) {
	w.calls.Add(1)

	if w.script.Delay > 0 {
		timer := time.NewTimer(w.script.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return worker.Analysis{}, ctx.Err()
		case <-timer.C:
		}
	}

	switch w.script.Fail {
	case "":
	case worker.KindEmpty:
		return worker.Analysis{Model: "scripted"}, nil
	case worker.KindPanic:
		panic(fmt.Sprintf("scripted panic in %s", w.name))
	default:
		return worker.Analysis{}, &worker.Error{
			Kind: w.script.Fail,
			Err:  errors.New("scripted failure"),
		}
	}

	text := w.script.Text
	if text == "" {
		text = fmt.Sprintf("%s saw %d anomalies in %d points",
			w.name, len(temporal.Detect(tl)), tl.Len())
	}
	return worker.Analysis{
		Text:       text,
		Confidence: w.script.Confidence,
		Model:      "scripted",
	}, nil
}
