package testsCommon

import (
	"context"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
)

// FetcherStub -
type FetcherStub struct {
	FetchRangeHandler   func(ctx context.Context, expr string, window timespan.Window) common.ParseResult
	FetchInstantHandler func(ctx context.Context, expr string, at time.Time) common.ParseResult
	FetchAllHandler     func(ctx context.Context, queries []common.MetricQuery, window timespan.Window) []common.SampleSeries
}

// FetchRange -
func (stub *FetcherStub) FetchRange(ctx context.Context, expr string, window timespan.Window) common.ParseResult {
	if stub.FetchRangeHandler != nil {
		return stub.FetchRangeHandler(ctx, expr, window)
	}

	return common.NoData{}
}

// FetchInstant -
func (stub *FetcherStub) FetchInstant(ctx context.Context, expr string, at time.Time) common.ParseResult {
	if stub.FetchInstantHandler != nil {
		return stub.FetchInstantHandler(ctx, expr, at)
	}

	return common.NoData{}
}

// FetchAll -
func (stub *FetcherStub) FetchAll(ctx context.Context, queries []common.MetricQuery, window timespan.Window) []common.SampleSeries {
	if stub.FetchAllHandler != nil {
		return stub.FetchAllHandler(ctx, queries, window)
	}

	results := make([]common.SampleSeries, 0, len(queries))
	for _, q := range queries {
		results = append(results, common.SampleSeries{Query: q, Result: common.NoData{}})
	}

	return results
}

// IsInterfaceNil -
func (stub *FetcherStub) IsInterfaceNil() bool {
	return stub == nil
}
