package inventory

import (
	"context"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
)

// Source defines the component that lists the nodes to chart
type Source interface {
	Targets(ctx context.Context) ([]common.Target, error)
	IsInterfaceNil() bool
}
