package engine

import (
	"context"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
)

// QueryCache defines the component that fetches (and de-duplicates) the queries of one metric kind
type QueryCache interface {
	// Fetch returns the results index-aligned with the queries. It never fails: failed calls are APIError results.
	Fetch(ctx context.Context, kind common.MetricKind, queries []common.MetricQuery, span timespan.Span, window timespan.Window) []common.SampleSeries
	IsInterfaceNil() bool
}

// QueryBuilder defines the component that renders the queries of a metric kind for a target set
type QueryBuilder interface {
	NewQueries(kind common.MetricKind, targets []common.Target) []common.MetricQuery
	IsInterfaceNil() bool
}
