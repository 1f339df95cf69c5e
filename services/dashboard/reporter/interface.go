package reporter

import (
	"context"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
)

// SnapshotSaver defines the operation used to persist a chart bundle
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, bundle chart.Bundle) error
	IsInterfaceNil() bool
}
