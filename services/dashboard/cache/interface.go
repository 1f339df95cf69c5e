package cache

import (
	"context"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
)

// Fetcher defines the operations of the component that runs the range queries
type Fetcher interface {
	FetchAll(ctx context.Context, queries []common.MetricQuery, window timespan.Window) []common.SampleSeries
	IsInterfaceNil() bool
}
