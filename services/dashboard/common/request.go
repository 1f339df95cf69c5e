package common

import (
	"slices"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
)

// ChartRequest identifies what a chart instance shows
type ChartRequest struct {
	Chart   ChartKind
	Targets []Target
	Span    timespan.Span
}

// Equal returns true if both requests show the same chart for the same target set and span
func (r ChartRequest) Equal(other ChartRequest) bool {
	return r.Chart == other.Chart &&
		r.Span == other.Span &&
		slices.Equal(r.Targets, other.Targets)
}

// WithTargets returns a copy of the request for another target set
func (r ChartRequest) WithTargets(targets []Target) ChartRequest {
	r.Targets = slices.Clone(targets)
	return r
}

// WithSpan returns a copy of the request for another span
func (r ChartRequest) WithSpan(span timespan.Span) ChartRequest {
	r.Targets = slices.Clone(r.Targets)
	r.Span = span
	return r
}
