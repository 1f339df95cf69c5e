package reporter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/testsCommon"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadBundle(y float64) chart.Bundle {
	return chart.NewBundle(common.ChartLoad, timespan.LastOneHour, []common.ChartPoint{
		{Date: time.Unix(1700000000, 0).UTC(), SeriesLabel: "node-1", Y: y},
	}, time.Now())
}

func TestNewStorageReporter(t *testing.T) {
	t.Parallel()

	t.Run("nil saver should error", func(t *testing.T) {
		t.Parallel()

		r, err := NewStorageReporter(nil, time.Second)
		assert.Nil(t, r)
		assert.Equal(t, errNilSnapshotSaver, err)
	})
	t.Run("invalid timeout should use the default", func(t *testing.T) {
		t.Parallel()

		r, err := NewStorageReporter(&testsCommon.StoreStub{}, 0)
		require.NoError(t, err)
		defer r.Close()

		assert.False(t, r.IsInterfaceNil())
		assert.Equal(t, defaultSaveTimeout, r.timeout)
	})
}

func TestStorageReporter_Report(t *testing.T) {
	t.Parallel()

	t.Run("should save the bundles in order with a deadline", func(t *testing.T) {
		t.Parallel()

		mut := sync.Mutex{}
		var saved []chart.Bundle
		store := &testsCommon.StoreStub{
			SaveSnapshotHandler: func(ctx context.Context, b chart.Bundle) error {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)

				mut.Lock()
				saved = append(saved, b)
				mut.Unlock()
				return nil
			},
		}

		r, _ := NewStorageReporter(store, time.Second)
		defer r.Close()

		r.Report(loadBundle(0.75))
		r.Report(loadBundle(1.5))

		require.Eventually(t, func() bool {
			mut.Lock()
			defer mut.Unlock()

			return len(saved) == 2
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, 0.75, saved[0].Data[0].Y)
		assert.Equal(t, 1.5, saved[1].Data[0].Y)
	})
	t.Run("store errors should not stop the worker", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		store := &testsCommon.StoreStub{
			SaveSnapshotHandler: func(ctx context.Context, b chart.Bundle) error {
				atomic.AddUint32(&numCalls, 1)
				return errors.New("disk full")
			},
		}

		r, _ := NewStorageReporter(store, time.Second)
		defer r.Close()

		r.Report(loadBundle(1))
		r.Report(loadBundle(2))
		assert.Eventually(t, func() bool {
			return atomic.LoadUint32(&numCalls) == 2
		}, time.Second, 5*time.Millisecond)
	})
	t.Run("a blocked store should not block the caller", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		numCalls := uint32(0)
		store := &testsCommon.StoreStub{
			SaveSnapshotHandler: func(ctx context.Context, b chart.Bundle) error {
				atomic.AddUint32(&numCalls, 1)
				select {
				case <-release:
				case <-ctx.Done():
				}
				return nil
			},
		}

		r, _ := NewStorageReporter(store, time.Minute)
		defer r.Close()

		done := make(chan struct{})
		go func() {
			// the worker holds one bundle, the rest fill the queue and then get dropped
			for i := 0; i < defaultQueueSize*2; i++ {
				r.Report(loadBundle(float64(i)))
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			require.Fail(t, "Report blocked on a slow store")
		}

		close(release)
		assert.Eventually(t, func() bool {
			return atomic.LoadUint32(&numCalls) >= 2
		}, time.Second, 5*time.Millisecond)
		assert.LessOrEqual(t, atomic.LoadUint32(&numCalls), uint32(defaultQueueSize+1))
	})
}

func TestStorageReporter_Close(t *testing.T) {
	t.Parallel()

	t.Run("should cancel the save in progress and drop later bundles", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{}, 1)
		numCalls := uint32(0)
		store := &testsCommon.StoreStub{
			SaveSnapshotHandler: func(ctx context.Context, b chart.Bundle) error {
				atomic.AddUint32(&numCalls, 1)
				started <- struct{}{}
				<-ctx.Done()
				return ctx.Err()
			},
		}

		r, _ := NewStorageReporter(store, time.Minute)
		r.Report(loadBundle(1))
		<-started

		r.Close()
		r.Close() // second call should be a no-op

		r.Report(loadBundle(2))
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, uint32(1), atomic.LoadUint32(&numCalls))
	})
}
