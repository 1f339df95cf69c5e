package testsCommon

import (
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
)

// InventoryStub -
type InventoryStub struct {
	TargetsHandler     func() []common.Target
	SubscribeHandler   func(handler func(targets []common.Target)) (string, error)
	UnsubscribeHandler func(id string)
}

// Targets -
func (stub *InventoryStub) Targets() []common.Target {
	if stub.TargetsHandler != nil {
		return stub.TargetsHandler()
	}

	return make([]common.Target, 0)
}

// Subscribe -
func (stub *InventoryStub) Subscribe(handler func(targets []common.Target)) (string, error) {
	if stub.SubscribeHandler != nil {
		return stub.SubscribeHandler(handler)
	}

	return "", nil
}

// Unsubscribe -
func (stub *InventoryStub) Unsubscribe(id string) {
	if stub.UnsubscribeHandler != nil {
		stub.UnsubscribeHandler(id)
	}
}

// IsInterfaceNil -
func (stub *InventoryStub) IsInterfaceNil() bool {
	return stub == nil
}
