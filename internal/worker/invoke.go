package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

// Invoke runs w on tl and normalizes the outcome.
//
// Every returned error is an *Error attributed to name. A panic inside w is
// recovered as KindPanic. An error raised after ctx finished is reported as
// KindTimeout or KindCanceled regardless of how the backend phrased it.
// Blank analysis text is KindEmpty. Confidence is clamped to [0,1] and
// dropped when not a number.
func Invoke(ctx context.Context, name string, w Worker, tl *temporal.Timeline) (a Analysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			a = Analysis{}
			err = newError(KindPanic, name, fmt.Errorf("%v", r))
		}
	}()

	a, err = w.Analyze(ctx, tl)
	if err != nil {
		if kind, done := contextKind(ctx); done {
			return Analysis{}, newError(kind, name, err)
		}
		var we *Error
		if errors.As(err, &we) {
			if we.Worker == "" {
				return Analysis{}, newError(we.Kind, name, we.Err)
			}
			return Analysis{}, we
		}
		return Analysis{}, newError(KindOf(err), name, err)
	}

	if strings.TrimSpace(a.Text) == "" {
		return Analysis{}, newError(KindEmpty, name, errors.New("analysis text is empty"))
	}
	if a.Confidence != nil {
		c := *a.Confidence
		switch {
		case math.IsNaN(c):
			a.Confidence = nil
		case c < 0:
			a.Confidence = ConfidencePtr(0)
		case c > 1:
			a.Confidence = ConfidencePtr(1)
		}
	}
	return a, nil
}
