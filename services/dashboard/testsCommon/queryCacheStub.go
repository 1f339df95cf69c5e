package testsCommon

import (
	"context"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
)

// QueryCacheStub -
type QueryCacheStub struct {
	FetchHandler func(ctx context.Context, kind common.MetricKind, queries []common.MetricQuery, span timespan.Span, window timespan.Window) []common.SampleSeries
}

// Fetch -
func (stub *QueryCacheStub) Fetch(ctx context.Context, kind common.MetricKind, queries []common.MetricQuery, span timespan.Span, window timespan.Window) []common.SampleSeries {
	if stub.FetchHandler != nil {
		return stub.FetchHandler(ctx, kind, queries, span, window)
	}

	results := make([]common.SampleSeries, 0, len(queries))
	for _, q := range queries {
		results = append(results, common.SampleSeries{Query: q, Result: common.NoData{}})
	}

	return results
}

// IsInterfaceNil -
func (stub *QueryCacheStub) IsInterfaceNil() bool {
	return stub == nil
}
