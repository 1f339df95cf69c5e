package scheduler

import (
	"context"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
)

// Engine defines the component that runs one fetch-normalize cycle
type Engine interface {
	Process(ctx context.Context, req common.ChartRequest) chart.Bundle
	IsInterfaceNil() bool
}
