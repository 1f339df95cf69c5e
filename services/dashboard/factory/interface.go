package factory

import (
	"context"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
)

// Server defines the operation of an entity able to serve requests
type Server interface {
	Start()
	Address() string
	Close() error
}

// Storage defines the snapshot store operations used by the service
type Storage interface {
	SaveSnapshot(ctx context.Context, bundle chart.Bundle) error
	GetLatestSnapshot(ctx context.Context, kind common.ChartKind, span timespan.Span) (*chart.Bundle, error)
	GetSnapshotHistory(ctx context.Context, kind common.ChartKind, span timespan.Span) ([]chart.Bundle, error)
	DeleteSnapshots(ctx context.Context, kind common.ChartKind, span timespan.Span) error
	Close() error
	IsInterfaceNil() bool
}

// Inventory defines the node inventory refresher
type Inventory interface {
	Start()
	Targets() []common.Target
	Subscribe(handler func(targets []common.Target)) (string, error)
	Unsubscribe(id string)
	Close() error
	IsInterfaceNil() bool
}

// Engine runs one fetch-normalize cycle
type Engine interface {
	Process(ctx context.Context, req common.ChartRequest) chart.Bundle
	IsInterfaceNil() bool
}

// Scheduler defines a chart refresh scheduler
type Scheduler interface {
	Start(req common.ChartRequest)
	UpdateTargets(targets []common.Target)
	Stop()
	Request() common.ChartRequest
	IsInterfaceNil() bool
}

// Reporter persists the bundles produced by the background schedulers
type Reporter interface {
	Report(bundle chart.Bundle)
	Close()
	IsInterfaceNil() bool
}
