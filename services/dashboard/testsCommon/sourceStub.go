package testsCommon

import (
	"context"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
)

// SourceStub -
type SourceStub struct {
	TargetsHandler func(ctx context.Context) ([]common.Target, error)
}

// Targets -
func (stub *SourceStub) Targets(ctx context.Context) ([]common.Target, error) {
	if stub.TargetsHandler != nil {
		return stub.TargetsHandler(ctx)
	}

	return make([]common.Target, 0), nil
}

// IsInterfaceNil -
func (stub *SourceStub) IsInterfaceNil() bool {
	return stub == nil
}
