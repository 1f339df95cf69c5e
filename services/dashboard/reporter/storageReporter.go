package reporter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	defaultSaveTimeout = 5 * time.Second
	defaultQueueSize   = 64
)

var log = logger.GetOrCreate("reporter")

var errNilSnapshotSaver = errors.New("nil snapshot saver")

type storageReporter struct {
	saver   SnapshotSaver
	timeout time.Duration
	queue   chan chart.Bundle

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewStorageReporter creates a new reporter that persists every bundle produced by a refresh scheduler.
// Bundles are saved by a background worker until Close is called.
func NewStorageReporter(saver SnapshotSaver, timeout time.Duration) (*storageReporter, error) {
	if check.IfNil(saver) {
		return nil, errNilSnapshotSaver
	}
	if timeout <= 0 {
		timeout = defaultSaveTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &storageReporter{
		saver:   saver,
		timeout: timeout,
		queue:   make(chan chart.Bundle, defaultQueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	r.wg.Add(1)
	go r.processLoop()

	return r, nil
}

// Report queues the bundle for saving and returns right away. It has the signature of a scheduler sink,
// which runs under the scheduler lock, so a full queue drops the bundle instead of blocking.
func (r *storageReporter) Report(bundle chart.Bundle) {
	if r.ctx.Err() != nil {
		log.Debug("reporter closed, chart snapshot not saved", "chart", bundle.Chart, "span", bundle.Span)
		return
	}

	select {
	case r.queue <- bundle:
	default:
		log.Warn("snapshot queue full, chart snapshot not saved", "chart", bundle.Chart, "span", bundle.Span)
	}
}

func (r *storageReporter) processLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case bundle := <-r.queue:
			r.save(bundle)
		}
	}
}

func (r *storageReporter) save(bundle chart.Bundle) {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	err := r.saver.SaveSnapshot(ctx, bundle)
	if err != nil {
		log.Warn("failed to save chart snapshot", "chart", bundle.Chart, "span", bundle.Span, "error", err)
		return
	}

	log.Debug("successfully saved chart snapshot", "chart", bundle.Chart, "span", bundle.Span,
		"points", len(bundle.Data), "empty", bundle.Empty)
}

// Close stops the worker and waits for the save in progress. Bundles still queued are dropped.
func (r *storageReporter) Close() {
	r.closeOnce.Do(func() {
		r.cancel()
		r.wg.Wait()
	})
}

// IsInterfaceNil returns true if the value under the interface is nil
func (r *storageReporter) IsInterfaceNil() bool {
	return r == nil
}
