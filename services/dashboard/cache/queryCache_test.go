package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/testsCommon"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTargets = []common.Target{
	{Name: "node-1", InternalIP: "10.0.0.1"},
	{Name: "node-2", InternalIP: "10.0.0.2"},
}

func testQueries(kind common.MetricKind) []common.MetricQuery {
	queries := make([]common.MetricQuery, 0, len(testTargets))
	for _, target := range testTargets {
		queries = append(queries, common.MetricQuery{Kind: kind, Target: target, Expr: string(kind) + target.InternalIP})
	}

	return queries
}

func successFetcher(numCalls *uint32) *testsCommon.FetcherStub {
	return &testsCommon.FetcherStub{
		FetchAllHandler: func(ctx context.Context, queries []common.MetricQuery, window timespan.Window) []common.SampleSeries {
			atomic.AddUint32(numCalls, 1)

			results := make([]common.SampleSeries, 0, len(queries))
			for _, q := range queries {
				results = append(results, common.SampleSeries{Query: q, Result: common.Success{Series: []common.Series{{}}}})
			}

			return results
		},
	}
}

func TestNewQueryCache(t *testing.T) {
	t.Parallel()

	t.Run("nil fetcher should error", func(t *testing.T) {
		qc, err := NewQueryCache(ArgsQueryCache{})

		assert.Nil(t, qc)
		assert.True(t, qc.IsInterfaceNil())
		assert.Equal(t, errNilFetcher, err)
	})
	t.Run("should work", func(t *testing.T) {
		qc, err := NewQueryCache(ArgsQueryCache{Fetcher: &testsCommon.FetcherStub{}, TTL: time.Second})

		assert.NoError(t, err)
		assert.False(t, qc.IsInterfaceNil())
	})
}

func TestQueryCache_Fetch(t *testing.T) {
	t.Parallel()

	window := timespan.Resolve(timespan.LastOneHour, time.Now())

	t.Run("completed fetches are served from cache within the TTL", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		qc, _ := NewQueryCache(ArgsQueryCache{Fetcher: successFetcher(&numCalls), TTL: time.Minute})

		first := qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)
		second := qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)

		assert.Equal(t, uint32(1), atomic.LoadUint32(&numCalls))
		assert.Equal(t, first, second)
		stats := qc.Stats()
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, 1, stats.Size)
	})
	t.Run("expired entries are fetched again", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		qc, _ := NewQueryCache(ArgsQueryCache{Fetcher: successFetcher(&numCalls), TTL: time.Minute})
		now := time.Now()
		qc.timeNow = func() time.Time { return now }

		_ = qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)
		now = now.Add(2 * time.Minute)
		_ = qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)

		assert.Equal(t, uint32(2), atomic.LoadUint32(&numCalls))
	})
	t.Run("different kinds, spans or target sets do not share entries", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		qc, _ := NewQueryCache(ArgsQueryCache{Fetcher: successFetcher(&numCalls), TTL: time.Minute})

		_ = qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)
		_ = qc.Fetch(context.Background(), common.KindMemory, testQueries(common.KindMemory), timespan.LastOneHour, window)
		_ = qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastSevenDays, window)
		_ = qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU)[:1], timespan.LastOneHour, window)

		assert.Equal(t, uint32(4), atomic.LoadUint32(&numCalls))
	})
	t.Run("results with api errors are not cached", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		fetcher := &testsCommon.FetcherStub{
			FetchAllHandler: func(ctx context.Context, queries []common.MetricQuery, window timespan.Window) []common.SampleSeries {
				atomic.AddUint32(&numCalls, 1)
				return []common.SampleSeries{
					{Query: queries[0], Result: common.NoData{}},
					{Query: queries[1], Result: common.APIError{Reason: "timeout"}},
				}
			},
		}
		qc, _ := NewQueryCache(ArgsQueryCache{Fetcher: fetcher, TTL: time.Minute})

		_ = qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)
		_ = qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)

		assert.Equal(t, uint32(2), atomic.LoadUint32(&numCalls))
		assert.Equal(t, 0, qc.Stats().Size)
	})
	t.Run("zero TTL only de-duplicates in-flight fetches", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		qc, _ := NewQueryCache(ArgsQueryCache{Fetcher: successFetcher(&numCalls), TTL: 0})

		_ = qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)
		_ = qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)

		assert.Equal(t, uint32(2), atomic.LoadUint32(&numCalls))
	})
	t.Run("concurrent fetches of the same key share one call", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		release := make(chan struct{})
		fetcher := &testsCommon.FetcherStub{
			FetchAllHandler: func(ctx context.Context, queries []common.MetricQuery, window timespan.Window) []common.SampleSeries {
				atomic.AddUint32(&numCalls, 1)
				<-release

				results := make([]common.SampleSeries, 0, len(queries))
				for _, q := range queries {
					results = append(results, common.SampleSeries{Query: q, Result: common.NoData{}})
				}

				return results
			},
		}
		qc, _ := NewQueryCache(ArgsQueryCache{Fetcher: fetcher, TTL: 0})

		numCallers := 5
		wg := sync.WaitGroup{}
		wg.Add(numCallers)
		for i := 0; i < numCallers; i++ {
			go func() {
				defer wg.Done()
				results := qc.Fetch(context.Background(), common.KindLoad, testQueries(common.KindLoad), timespan.LastOneHour, window)
				assert.Len(t, results, 2)
			}()
		}

		time.Sleep(100 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, uint32(1), atomic.LoadUint32(&numCalls))
		stats := qc.Stats()
		assert.Equal(t, int64(numCallers), stats.Misses+stats.Shared)
	})
	t.Run("returned slices are not shared with the cache", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		qc, _ := NewQueryCache(ArgsQueryCache{Fetcher: successFetcher(&numCalls), TTL: time.Minute})

		first := qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)
		first[0].Result = common.APIError{Reason: "mutated"}
		second := qc.Fetch(context.Background(), common.KindCPU, testQueries(common.KindCPU), timespan.LastOneHour, window)

		require.Len(t, second, 2)
		assert.IsType(t, common.Success{}, second[0].Result)
	})
}

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cpu|now-1h|node-1@10.0.0.1|node-2@10.0.0.2", Key(common.KindCPU, testTargets, timespan.LastOneHour))
	assert.Equal(t, "cpu|now-1h", Key(common.KindCPU, nil, timespan.LastOneHour))
}
