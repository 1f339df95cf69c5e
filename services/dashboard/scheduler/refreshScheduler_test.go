package scheduler

import (
	"context"
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

var (
	node1 = common.Target{Name: "node-1", InternalIP: "10.0.0.1"}
	node2 = common.Target{Name: "node-2", InternalIP: "10.0.0.2"}
)

type bundleRecorder struct {
	mut     sync.Mutex
	bundles []chart.Bundle
}

func (br *bundleRecorder) sink(bundle chart.Bundle) {
	br.mut.Lock()
	defer br.mut.Unlock()

	br.bundles = append(br.bundles, bundle)
}

func (br *bundleRecorder) all() []chart.Bundle {
	br.mut.Lock()
	defer br.mut.Unlock()

	return append(make([]chart.Bundle, 0, len(br.bundles)), br.bundles...)
}

func (br *bundleRecorder) len() int {
	return len(br.all())
}

// echoEngine returns a bundle whose title carries the first target name of the request
func echoEngine() *testsCommon.EngineStub {
	return &testsCommon.EngineStub{
		ProcessHandler: func(ctx context.Context, req common.ChartRequest) chart.Bundle {
			bundle := chart.NewBundle(req.Chart, req.Span, nil, time.Now())
			if len(req.Targets) > 0 {
				bundle.Title = req.Targets[0].Name
			}

			return bundle
		},
	}
}

func createMockArgs(recorder *bundleRecorder) ArgsRefreshScheduler {
	return ArgsRefreshScheduler{
		Name:     "test",
		Engine:   echoEngine(),
		Interval: time.Hour,
		Sink:     recorder.sink,
	}
}

func cpuRequest(targets ...common.Target) common.ChartRequest {
	return common.ChartRequest{Chart: common.ChartCPU, Targets: targets, Span: timespan.LastOneHour}
}

func TestNewRefreshScheduler(t *testing.T) {
	t.Parallel()

	t.Run("nil engine should error", func(t *testing.T) {
		args := createMockArgs(&bundleRecorder{})
		args.Engine = nil
		rs, err := NewRefreshScheduler(args)

		assert.Nil(t, rs)
		assert.True(t, rs.IsInterfaceNil())
		assert.Equal(t, errNilEngine, err)
	})
	t.Run("nil sink should error", func(t *testing.T) {
		args := createMockArgs(&bundleRecorder{})
		args.Sink = nil
		rs, err := NewRefreshScheduler(args)

		assert.Nil(t, rs)
		assert.Equal(t, errNilSink, err)
	})
	t.Run("invalid interval should error", func(t *testing.T) {
		args := createMockArgs(&bundleRecorder{})
		args.Interval = 0
		rs, err := NewRefreshScheduler(args)

		assert.Nil(t, rs)
		assert.Equal(t, errInvalidInterval, err)
	})
	t.Run("should work", func(t *testing.T) {
		rs, err := NewRefreshScheduler(createMockArgs(&bundleRecorder{}))

		assert.NoError(t, err)
		assert.False(t, rs.IsInterfaceNil())
		assert.Equal(t, Idle, rs.State())
		assert.Equal(t, "Idle", rs.State().String())
	})
}

func TestRefreshScheduler_Start(t *testing.T) {
	t.Parallel()

	t.Run("should run a cycle right away and then periodically", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		args := createMockArgs(recorder)
		args.Interval = 20 * time.Millisecond
		rs, _ := NewRefreshScheduler(args)

		rs.Start(cpuRequest(node1))
		defer rs.Stop()

		assert.Equal(t, Polling, rs.State())
		require.Eventually(t, func() bool {
			return recorder.len() >= 3
		}, 2*time.Second, 5*time.Millisecond)
		for _, bundle := range recorder.all() {
			assert.Equal(t, "node-1", bundle.Title)
		}
	})
	t.Run("starting twice with the same request is a no-op", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.Start(cpuRequest(node1))
		defer rs.Stop()
		generation := rs.Generation()
		rs.Start(cpuRequest(node1))

		assert.Equal(t, generation, rs.Generation())
	})
}

func TestRefreshScheduler_Update(t *testing.T) {
	t.Parallel()

	t.Run("target change mid-interval should trigger a new cycle right away", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.Start(cpuRequest(node1))
		defer rs.Stop()
		require.Eventually(t, func() bool {
			return recorder.len() == 1
		}, time.Second, 5*time.Millisecond)

		generation := rs.Generation()
		rs.Update(cpuRequest(node2, node1))

		assert.Equal(t, generation+1, rs.Generation())
		require.Eventually(t, func() bool {
			return recorder.len() == 2
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, "node-2", recorder.all()[1].Title)
		assert.Equal(t, cpuRequest(node2, node1), rs.Request())
	})
	t.Run("span change should trigger a new cycle right away", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.Start(cpuRequest(node1))
		defer rs.Stop()
		require.Eventually(t, func() bool {
			return recorder.len() == 1
		}, time.Second, 5*time.Millisecond)

		rs.Update(cpuRequest(node1).WithSpan(timespan.LastSevenDays))
		require.Eventually(t, func() bool {
			return recorder.len() == 2
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, timespan.LastSevenDays, recorder.all()[1].Span)
	})
	t.Run("same request is a no-op", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.Start(cpuRequest(node1))
		defer rs.Stop()
		generation := rs.Generation()

		rs.Update(cpuRequest(node1))
		assert.Equal(t, generation, rs.Generation())
	})
	t.Run("update while idle does nothing", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.Update(cpuRequest(node1))
		time.Sleep(50 * time.Millisecond)

		assert.Equal(t, Idle, rs.State())
		assert.Equal(t, uint64(0), rs.Generation())
		assert.Equal(t, 0, recorder.len())
	})
	t.Run("results of a superseded generation are dropped", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		numOldDone := uint32(0)
		recorder := &bundleRecorder{}
		args := createMockArgs(recorder)
		args.Engine = &testsCommon.EngineStub{
			ProcessHandler: func(ctx context.Context, req common.ChartRequest) chart.Bundle {
				bundle := chart.NewBundle(req.Chart, req.Span, nil, time.Now())
				bundle.Title = req.Targets[0].Name
				if req.Targets[0] == node1 {
					<-release
					atomic.AddUint32(&numOldDone, 1)
				}

				return bundle
			},
		}
		rs, _ := NewRefreshScheduler(args)

		rs.Start(cpuRequest(node1))
		defer rs.Stop()
		time.Sleep(20 * time.Millisecond)
		rs.Update(cpuRequest(node2))

		require.Eventually(t, func() bool {
			return recorder.len() == 1
		}, time.Second, 5*time.Millisecond)

		close(release)
		require.Eventually(t, func() bool {
			return atomic.LoadUint32(&numOldDone) == 1
		}, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		bundles := recorder.all()
		require.Len(t, bundles, 1)
		assert.Equal(t, "node-2", bundles[0].Title)
	})
}

func TestRefreshScheduler_UpdateTargetsAndSpan(t *testing.T) {
	t.Parallel()

	t.Run("targets update should keep a span changed after the request was read", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.Start(cpuRequest(node1))
		defer rs.Stop()

		// an inventory refresh reads the request while a client switches the span
		stale := rs.Request()
		rs.UpdateSpan(timespan.LastSevenDays)
		rs.UpdateTargets(append(stale.Targets, node2))

		current := rs.Request()
		assert.Equal(t, timespan.LastSevenDays, current.Span)
		assert.Equal(t, []common.Target{node1, node2}, current.Targets)
		require.Eventually(t, func() bool {
			bundles := recorder.all()
			return len(bundles) > 0 && bundles[len(bundles)-1].Span == timespan.LastSevenDays
		}, time.Second, 5*time.Millisecond)
	})
	t.Run("span update should keep targets changed after the request was read", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.Start(cpuRequest(node1))
		defer rs.Stop()

		stale := rs.Request()
		rs.UpdateTargets([]common.Target{node2})
		rs.UpdateSpan(timespan.LastSevenDays)
		assert.Equal(t, []common.Target{node1}, stale.Targets)

		assert.Equal(t, cpuRequest(node2).WithSpan(timespan.LastSevenDays), rs.Request())
	})
	t.Run("unchanged values are no-ops", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.Start(cpuRequest(node1))
		defer rs.Stop()
		generation := rs.Generation()

		rs.UpdateTargets([]common.Target{node1})
		rs.UpdateSpan(timespan.LastOneHour)
		assert.Equal(t, generation, rs.Generation())
	})
	t.Run("updates while idle do nothing", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.UpdateTargets([]common.Target{node1})
		rs.UpdateSpan(timespan.LastSevenDays)

		assert.Equal(t, Idle, rs.State())
		assert.Equal(t, uint64(0), rs.Generation())
	})
	t.Run("concurrent span and target updates should both be kept", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.Start(cpuRequest(node1))
		defer rs.Stop()

		wg := sync.WaitGroup{}
		wg.Add(2)
		go func() {
			defer wg.Done()
			rs.UpdateSpan(timespan.LastSevenDays)
		}()
		go func() {
			defer wg.Done()
			rs.UpdateTargets([]common.Target{node2})
		}()
		wg.Wait()

		assert.Equal(t, cpuRequest(node2).WithSpan(timespan.LastSevenDays), rs.Request())
	})
}

func TestRefreshScheduler_Stop(t *testing.T) {
	t.Parallel()

	t.Run("in-flight results are dropped after stop", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		finished := make(chan struct{})
		recorder := &bundleRecorder{}
		args := createMockArgs(recorder)
		args.Engine = &testsCommon.EngineStub{
			ProcessHandler: func(ctx context.Context, req common.ChartRequest) chart.Bundle {
				<-release
				defer close(finished)

				return chart.NewBundle(req.Chart, req.Span, nil, time.Now())
			},
		}
		rs, _ := NewRefreshScheduler(args)

		rs.Start(cpuRequest(node1))
		time.Sleep(20 * time.Millisecond)
		rs.Stop()
		assert.Equal(t, Idle, rs.State())

		close(release)
		<-finished
		time.Sleep(20 * time.Millisecond)

		assert.Equal(t, 0, recorder.len())
	})
	t.Run("no cycles after stop", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		args := createMockArgs(recorder)
		args.Interval = 10 * time.Millisecond
		rs, _ := NewRefreshScheduler(args)

		rs.Start(cpuRequest(node1))
		require.Eventually(t, func() bool {
			return recorder.len() >= 2
		}, time.Second, 5*time.Millisecond)
		rs.Stop()
		rs.Stop()

		numAfterStop := recorder.len()
		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, numAfterStop, recorder.len())
	})
	t.Run("can be started again after stop", func(t *testing.T) {
		t.Parallel()

		recorder := &bundleRecorder{}
		rs, _ := NewRefreshScheduler(createMockArgs(recorder))

		rs.Start(cpuRequest(node1))
		rs.Stop()
		rs.Start(cpuRequest(node2))
		defer rs.Stop()

		require.Eventually(t, func() bool {
			bundles := recorder.all()
			return len(bundles) > 0 && bundles[len(bundles)-1].Title == "node-2"
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, Polling, rs.State())
	})
}

func TestRefreshScheduler_OlderTickOfTheSameGenerationIsApplied(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	numCalls := uint32(0)
	recorder := &bundleRecorder{}
	args := createMockArgs(recorder)
	args.Interval = 30 * time.Millisecond
	args.Engine = &testsCommon.EngineStub{
		ProcessHandler: func(ctx context.Context, req common.ChartRequest) chart.Bundle {
			call := atomic.AddUint32(&numCalls, 1)
			bundle := chart.NewBundle(req.Chart, req.Span, nil, time.Now())
			if call == 1 {
				bundle.Title = "first"
				<-release
			}

			return bundle
		},
	}
	rs, _ := NewRefreshScheduler(args)

	rs.Start(cpuRequest(node1))
	defer rs.Stop()

	require.Eventually(t, func() bool {
		return recorder.len() >= 1
	}, time.Second, 5*time.Millisecond)
	close(release)

	require.Eventually(t, func() bool {
		for _, bundle := range recorder.all() {
			if bundle.Title == "first" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}
