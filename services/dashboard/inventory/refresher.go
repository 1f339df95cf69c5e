package inventory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iulianpascalau/storage-console-metrics/commonGo"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/metrics"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("inventory")

const defaultListTimeout = 10 * time.Second

// ArgsRefresher defines the arguments needed to create an inventory refresher
type ArgsRefresher struct {
	Source   Source
	Interval time.Duration
}

type refresher struct {
	source   Source
	interval time.Duration

	mutTargets sync.RWMutex
	targets    []common.Target
	ready      bool

	mutSubscribers sync.RWMutex
	subscribers    map[string]func(targets []common.Target)

	mutCancel sync.Mutex
	cancel    func()
}

// NewRefresher creates a component that polls the source and keeps the current target set
func NewRefresher(args ArgsRefresher) (*refresher, error) {
	if check.IfNil(args.Source) {
		return nil, errNilSource
	}
	if args.Interval <= 0 {
		return nil, errInvalidInterval
	}

	return &refresher{
		source:      args.Source,
		interval:    args.Interval,
		targets:     make([]common.Target, 0),
		subscribers: make(map[string]func(targets []common.Target)),
	}, nil
}

// Start polls the source right away and then on every interval
func (r *refresher) Start() {
	r.mutCancel.Lock()
	defer r.mutCancel.Unlock()

	if r.cancel != nil {
		return
	}

	var ctx context.Context
	ctx, r.cancel = context.WithCancel(context.Background())

	commonGo.CronJobStarter(ctx, r.Refresh, r.interval)
}

// Refresh lists the source once. Subscribers are notified only if the target set changed; a failed listing
// keeps the last known set.
func (r *refresher) Refresh(ctx context.Context) {
	listCtx, cancel := context.WithTimeout(ctx, defaultListTimeout)
	defer cancel()

	targets, err := r.source.Targets(listCtx)
	if err != nil {
		log.Warn("failed to refresh the node inventory, keeping the last known one", "error", err)
		return
	}

	r.mutTargets.Lock()
	changed := !r.ready || !slices.Equal(r.targets, targets)
	r.targets = targets
	r.ready = true
	r.mutTargets.Unlock()

	metrics.InventoryTargets.Set(float64(len(targets)))
	if !changed {
		return
	}

	log.Info("node inventory changed", "num targets", len(targets))
	r.notify(targets)
}

// Targets returns a copy of the current target set
func (r *refresher) Targets() []common.Target {
	r.mutTargets.RLock()
	defer r.mutTargets.RUnlock()

	return slices.Clone(r.targets)
}

// Subscribe registers a handler called with every new target set. It returns the id used to unsubscribe.
func (r *refresher) Subscribe(handler func(targets []common.Target)) (string, error) {
	if handler == nil {
		return "", errNilSubscriber
	}

	id := uuid.NewString()

	r.mutSubscribers.Lock()
	r.subscribers[id] = handler
	r.mutSubscribers.Unlock()

	return id, nil
}

// Unsubscribe removes a handler
func (r *refresher) Unsubscribe(id string) {
	r.mutSubscribers.Lock()
	delete(r.subscribers, id)
	r.mutSubscribers.Unlock()
}

func (r *refresher) notify(targets []common.Target) {
	r.mutSubscribers.RLock()
	handlers := make([]func(targets []common.Target), 0, len(r.subscribers))
	for _, handler := range r.subscribers {
		handlers = append(handlers, handler)
	}
	r.mutSubscribers.RUnlock()

	for _, handler := range handlers {
		handler(slices.Clone(targets))
	}
}

// Close stops the polling
func (r *refresher) Close() error {
	r.mutCancel.Lock()
	defer r.mutCancel.Unlock()

	if r.cancel == nil {
		return nil
	}

	r.cancel()
	r.cancel = nil

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (r *refresher) IsInterfaceNil() bool {
	return r == nil
}
