package worker

import (
	"context"
	"time"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

//go:generate mockgen -source=worker.go -destination=mocks/mock_worker.go -package=mocks

// Analysis is the result of one worker run.
type Analysis struct {
	// Text is the free-form analysis narrative.
	Text string `json:"text"`

	// Confidence is the self-reported confidence in [0,1], or nil when the
	// worker did not report one.
	Confidence *float64 `json:"confidence,omitempty"`

	// Model names the model that produced the text, if any.
	Model string `json:"model,omitempty"`
}

// Worker analyzes a timeline.
//
// Implementations must honor ctx cancellation and must not retain tl after
// returning.
type Worker interface {
	Analyze(ctx context.Context, tl *temporal.Timeline) (Analysis, error)
}

// Func adapts a plain function to the Worker interface.
type Func func(ctx context.Context, tl *temporal.Timeline) (Analysis, error)

// Analyze calls f.
func (f Func) Analyze(ctx context.Context, tl *temporal.Timeline) (Analysis, error) {
	return f(ctx, tl)
}

// Spec describes how to build a worker.
type Spec struct {
	Name         string
	Backend      Backend
	Model        string
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	Capabilities []string
}

// ConfidencePtr returns a pointer to c.
func ConfidencePtr(c float64) *float64 {
	return &c
}
