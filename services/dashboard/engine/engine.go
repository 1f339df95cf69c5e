package engine

import (
	"context"
	"errors"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/metrics"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/normalizer"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"golang.org/x/sync/errgroup"
)

var log = logger.GetOrCreate("engine")

const defaultQueryTimeout = 30 * time.Second

// ArgsChartEngine defines the arguments needed to create a chart engine
type ArgsChartEngine struct {
	Cache        QueryCache
	Builder      QueryBuilder
	QueryTimeout time.Duration
}

// chartEngine runs one fetch-normalize cycle for a chart
type chartEngine struct {
	cache        QueryCache
	builder      QueryBuilder
	queryTimeout time.Duration
	timeNow      func() time.Time
}

// NewChartEngine creates a new engine instance
func NewChartEngine(args ArgsChartEngine) (*chartEngine, error) {
	if check.IfNil(args.Cache) {
		return nil, errors.New("nil query cache")
	}
	if check.IfNil(args.Builder) {
		return nil, errors.New("nil query builder")
	}

	queryTimeout := args.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}

	return &chartEngine{
		cache:        args.Cache,
		builder:      args.Builder,
		queryTimeout: queryTimeout,
		timeNow:      time.Now,
	}, nil
}

// Process fetches the chart's metrics for the requested targets and span and returns the chart bundle.
// It never fails: a total failure yields the sentinel bundle.
func (e *chartEngine) Process(ctx context.Context, req common.ChartRequest) chart.Bundle {
	start := time.Now()
	now := e.timeNow()

	defer func() {
		metrics.RecordCycle(string(req.Chart), time.Since(start))
	}()

	if !req.Chart.IsValid() || !req.Span.IsValid() {
		log.Warn("invalid chart request, returning an empty chart", "chart", req.Chart, "span", req.Span)
		return chart.NewBundle(req.Chart, req.Span, nil, now)
	}
	if len(req.Targets) == 0 {
		return chart.NewBundle(req.Chart, req.Span, nil, now)
	}

	log.Debug("processing chart", "chart", req.Chart, "span", req.Span, "num targets", len(req.Targets))

	window := timespan.Resolve(req.Span, now)
	fetchCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	kinds := req.Chart.MetricKinds()
	resultsPerKind := make([][]common.ParseResult, len(kinds))

	var group errgroup.Group
	for i, kind := range kinds {
		group.Go(func() error {
			queries := e.builder.NewQueries(kind, req.Targets)
			series := e.cache.Fetch(fetchCtx, kind, queries, req.Span, window)
			resultsPerKind[i] = parseResults(series)

			return nil
		})
	}
	_ = group.Wait()

	var points []common.ChartPoint
	if req.Chart == common.ChartThroughput {
		points = normalizer.NormalizeThroughput(resultsPerKind[0], resultsPerKind[1], req.Targets)
	} else {
		points = normalizer.Normalize(resultsPerKind[0], req.Targets)
	}

	bundle := chart.NewBundle(req.Chart, req.Span, points, now)
	log.Debug("finished processing chart", "chart", req.Chart, "span", req.Span,
		"num points", len(bundle.Data), "empty", bundle.Empty, "duration", time.Since(start))

	return bundle
}

func parseResults(series []common.SampleSeries) []common.ParseResult {
	results := make([]common.ParseResult, 0, len(series))
	for _, s := range series {
		results = append(results, s.Result)
	}

	return results
}

// IsInterfaceNil returns true if the value under the interface is nil
func (e *chartEngine) IsInterfaceNil() bool {
	return e == nil
}
