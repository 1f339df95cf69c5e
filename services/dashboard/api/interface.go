package api

import (
	"context"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
)

// Storage defines the interface for querying and dropping the stored chart snapshots
type Storage interface {
	// GetLatestSnapshot returns the most recent bundle stored for the chart and span
	GetLatestSnapshot(ctx context.Context, kind common.ChartKind, span timespan.Span) (*chart.Bundle, error)

	// GetSnapshotHistory returns all retained bundles for the chart and span, oldest first
	GetSnapshotHistory(ctx context.Context, kind common.ChartKind, span timespan.Span) ([]chart.Bundle, error)

	// DeleteSnapshots removes the stored bundles of a chart. An empty span removes all spans.
	DeleteSnapshots(ctx context.Context, kind common.ChartKind, span timespan.Span) error

	IsInterfaceNil() bool
}

// ChartEngine runs one fetch-normalize cycle
type ChartEngine interface {
	Process(ctx context.Context, req common.ChartRequest) chart.Bundle
	IsInterfaceNil() bool
}

// Inventory provides the current node targets and change notifications
type Inventory interface {
	Targets() []common.Target
	Subscribe(handler func(targets []common.Target)) (string, error)
	Unsubscribe(id string)
	IsInterfaceNil() bool
}

// InstantFetcher evaluates an expression at a single point in time
type InstantFetcher interface {
	FetchInstant(ctx context.Context, expr string, at time.Time) common.ParseResult
	IsInterfaceNil() bool
}

// QueryBuilder renders the expression of a metric kind for a node address
type QueryBuilder interface {
	Build(kind common.MetricKind, address string) string
	IsInterfaceNil() bool
}
