package timespan

import "time"

// Window is a concrete query range
type Window struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// Resolve computes the window of the span ending at now. Unknown spans yield a degenerate window
// (Start == End, zero step).
func Resolve(span Span, now time.Time) Window {
	now = now.UTC().Truncate(time.Second)

	return Window{
		Start: now.Add(-span.Duration()),
		End:   now,
		Step:  span.Step(),
	}
}

// StepSeconds returns the sample interval in seconds
func (w Window) StepSeconds() int64 {
	return int64(w.Step / time.Second)
}

// IsDegenerate returns true if the window cannot be queried
func (w Window) IsDegenerate() bool {
	return !w.Start.Before(w.End) || w.Step <= 0
}
