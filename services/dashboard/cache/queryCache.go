package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/metrics"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"golang.org/x/sync/singleflight"
)

var log = logger.GetOrCreate("cache")

var errNilFetcher = errors.New("nil fetcher")

const (
	lookupHit    = "hit"
	lookupMiss   = "miss"
	lookupShared = "shared"
)

// ArgsQueryCache defines the arguments needed to create a query cache
type ArgsQueryCache struct {
	Fetcher Fetcher
	TTL     time.Duration
}

type cacheEntry struct {
	results []common.SampleSeries
	expires time.Time
}

// Stats holds the cache counters
type Stats struct {
	Hits   int64
	Misses int64
	Shared int64
	Size   int
}

type queryCache struct {
	fetcher Fetcher
	ttl     time.Duration
	group   singleflight.Group
	timeNow func() time.Time

	mut     sync.Mutex
	entries map[string]cacheEntry
	hits    int64
	misses  int64
	shared  int64
}

// NewQueryCache creates a cache keyed by (metric kind, target set, time span). Concurrent fetches of the same
// key share one set of calls, completed fetches are kept for the TTL.
func NewQueryCache(args ArgsQueryCache) (*queryCache, error) {
	if check.IfNil(args.Fetcher) {
		return nil, errNilFetcher
	}

	return &queryCache{
		fetcher: args.Fetcher,
		ttl:     args.TTL,
		timeNow: time.Now,
		entries: make(map[string]cacheEntry),
	}, nil
}

// Fetch returns the results of the queries of one metric kind, index-aligned with the queries
func (qc *queryCache) Fetch(
	ctx context.Context,
	kind common.MetricKind,
	queries []common.MetricQuery,
	span timespan.Span,
	window timespan.Window,
) []common.SampleSeries {
	key := Key(kind, targetsOf(queries), span)

	results, found := qc.get(key)
	if found {
		metrics.RecordCacheLookup(lookupHit)
		return results
	}

	value, _, shared := qc.group.Do(key, func() (interface{}, error) {
		fetched := qc.fetcher.FetchAll(context.WithoutCancel(ctx), queries, window)
		qc.set(key, fetched)

		return fetched, nil
	})

	qc.recordMiss(shared)
	fetched := value.([]common.SampleSeries)

	return copyResults(fetched)
}

// Key returns the cache key of a metric kind for a target set and time span
func Key(kind common.MetricKind, targets []common.Target, span timespan.Span) string {
	builder := strings.Builder{}
	builder.WriteString(string(kind))
	builder.WriteString("|")
	builder.WriteString(string(span))
	for _, t := range targets {
		builder.WriteString("|")
		builder.WriteString(t.Name)
		builder.WriteString("@")
		builder.WriteString(t.InternalIP)
	}

	return builder.String()
}

func (qc *queryCache) get(key string) ([]common.SampleSeries, bool) {
	qc.mut.Lock()
	defer qc.mut.Unlock()

	entry, found := qc.entries[key]
	if !found {
		return nil, false
	}
	if !qc.timeNow().Before(entry.expires) {
		delete(qc.entries, key)
		return nil, false
	}

	qc.hits++

	return copyResults(entry.results), true
}

func (qc *queryCache) set(key string, results []common.SampleSeries) {
	if qc.ttl <= 0 || anyAPIError(results) {
		return
	}

	qc.mut.Lock()
	defer qc.mut.Unlock()

	qc.evictExpired()
	qc.entries[key] = cacheEntry{
		results: results,
		expires: qc.timeNow().Add(qc.ttl),
	}
	log.Trace("cached query results", "key", key, "num results", len(results))
}

func (qc *queryCache) evictExpired() {
	now := qc.timeNow()
	for key, entry := range qc.entries {
		if !now.Before(entry.expires) {
			delete(qc.entries, key)
		}
	}
}

func (qc *queryCache) recordMiss(shared bool) {
	qc.mut.Lock()
	defer qc.mut.Unlock()

	if shared {
		qc.shared++
		metrics.RecordCacheLookup(lookupShared)
		return
	}

	qc.misses++
	metrics.RecordCacheLookup(lookupMiss)
}

// Stats returns the cache counters
func (qc *queryCache) Stats() Stats {
	qc.mut.Lock()
	defer qc.mut.Unlock()

	return Stats{
		Hits:   qc.hits,
		Misses: qc.misses,
		Shared: qc.shared,
		Size:   len(qc.entries),
	}
}

// Clear removes all entries
func (qc *queryCache) Clear() {
	qc.mut.Lock()
	defer qc.mut.Unlock()

	qc.entries = make(map[string]cacheEntry)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (qc *queryCache) IsInterfaceNil() bool {
	return qc == nil
}

func targetsOf(queries []common.MetricQuery) []common.Target {
	targets := make([]common.Target, 0, len(queries))
	for _, q := range queries {
		targets = append(targets, q.Target)
	}

	return targets
}

func anyAPIError(results []common.SampleSeries) bool {
	for _, r := range results {
		if common.IsAPIError(r.Result) {
			return true
		}
	}

	return false
}

func copyResults(results []common.SampleSeries) []common.SampleSeries {
	out := make([]common.SampleSeries, len(results))
	copy(out, results)

	return out
}
