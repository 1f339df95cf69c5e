package testsCommon

import (
	"context"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
)

// EngineStub -
type EngineStub struct {
	ProcessHandler func(ctx context.Context, req common.ChartRequest) chart.Bundle
}

// Process -
func (stub *EngineStub) Process(ctx context.Context, req common.ChartRequest) chart.Bundle {
	if stub.ProcessHandler != nil {
		return stub.ProcessHandler(ctx, req)
	}

	return chart.NewBundle(req.Chart, req.Span, nil, common.Epoch)
}

// IsInterfaceNil -
func (stub *EngineStub) IsInterfaceNil() bool {
	return stub == nil
}
