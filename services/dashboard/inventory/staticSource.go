package inventory

import (
	"context"
	"fmt"
	"net"
	"slices"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
)

type staticSource struct {
	targets []common.Target
}

// NewStaticSource creates a source that always returns the configured targets
func NewStaticSource(targets []common.Target) (*staticSource, error) {
	for _, target := range targets {
		if len(target.Name) == 0 || net.ParseIP(target.InternalIP) == nil {
			return nil, fmt.Errorf("%w: name %q, internal IP %q", errInvalidStaticEntry, target.Name, target.InternalIP)
		}
	}

	return &staticSource{
		targets: slices.Clone(targets),
	}, nil
}

// Targets returns the configured targets
func (ss *staticSource) Targets(_ context.Context) ([]common.Target, error) {
	return slices.Clone(ss.targets), nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (ss *staticSource) IsInterfaceNil() bool {
	return ss == nil
}
