package testsCommon

import (
	"context"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
)

// StoreStub -
type StoreStub struct {
	SaveSnapshotHandler       func(ctx context.Context, bundle chart.Bundle) error
	GetLatestSnapshotHandler  func(ctx context.Context, kind common.ChartKind, span timespan.Span) (*chart.Bundle, error)
	GetSnapshotHistoryHandler func(ctx context.Context, kind common.ChartKind, span timespan.Span) ([]chart.Bundle, error)
	DeleteSnapshotsHandler    func(ctx context.Context, kind common.ChartKind, span timespan.Span) error
	CloseHandler              func() error
}

// SaveSnapshot -
func (stub *StoreStub) SaveSnapshot(ctx context.Context, bundle chart.Bundle) error {
	if stub.SaveSnapshotHandler != nil {
		return stub.SaveSnapshotHandler(ctx, bundle)
	}

	return nil
}

// GetLatestSnapshot -
func (stub *StoreStub) GetLatestSnapshot(ctx context.Context, kind common.ChartKind, span timespan.Span) (*chart.Bundle, error) {
	if stub.GetLatestSnapshotHandler != nil {
		return stub.GetLatestSnapshotHandler(ctx, kind, span)
	}

	return &chart.Bundle{}, nil
}

// GetSnapshotHistory -
func (stub *StoreStub) GetSnapshotHistory(ctx context.Context, kind common.ChartKind, span timespan.Span) ([]chart.Bundle, error) {
	if stub.GetSnapshotHistoryHandler != nil {
		return stub.GetSnapshotHistoryHandler(ctx, kind, span)
	}

	return make([]chart.Bundle, 0), nil
}

// DeleteSnapshots -
func (stub *StoreStub) DeleteSnapshots(ctx context.Context, kind common.ChartKind, span timespan.Span) error {
	if stub.DeleteSnapshotsHandler != nil {
		return stub.DeleteSnapshotsHandler(ctx, kind, span)
	}

	return nil
}

// Close -
func (stub *StoreStub) Close() error {
	if stub.CloseHandler != nil {
		return stub.CloseHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *StoreStub) IsInterfaceNil() bool {
	return stub == nil
}
