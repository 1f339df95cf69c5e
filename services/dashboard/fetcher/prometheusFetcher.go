package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/metrics"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"golang.org/x/sync/errgroup"
)

var log = logger.GetOrCreate("fetcher")

const (
	defaultMaxConcurrent   = 10
	defaultTimeout         = 30 * time.Second
	maxResponseSizeInBytes = 32 * 1024 * 1024
	adHocKind              = "adhoc"
)

// ArgsPrometheusFetcher defines the arguments needed to create a Prometheus fetcher
type ArgsPrometheusFetcher struct {
	URL                  string
	BearerToken          string
	Timeout              time.Duration
	MaxConcurrentQueries int
}

type prometheusFetcher struct {
	address              string
	api                  v1.API
	timeout              time.Duration
	maxConcurrentQueries int
}

// NewPrometheusFetcher creates a fetcher that queries the Prometheus HTTP API
func NewPrometheusFetcher(args ArgsPrometheusFetcher) (*prometheusFetcher, error) {
	if len(args.URL) == 0 {
		return nil, errEmptyPrometheusURL
	}
	parsed, err := url.Parse(args.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Prometheus URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid Prometheus URL scheme %q", parsed.Scheme)
	}

	address := strings.TrimRight(args.URL, "/")
	client, err := api.NewClient(api.Config{
		Address: address,
		RoundTripper: &prometheusTransport{
			bearerToken:            args.BearerToken,
			maxResponseSizeInBytes: maxResponseSizeInBytes,
			next:                   api.DefaultRoundTripper,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create the Prometheus client: %w", err)
	}

	maxConcurrent := args.MaxConcurrentQueries
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	timeout := args.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &prometheusFetcher{
		address:              address,
		api:                  v1.NewAPI(client),
		timeout:              timeout,
		maxConcurrentQueries: maxConcurrent,
	}, nil
}

// FetchRange issues a range query over the window
func (f *prometheusFetcher) FetchRange(ctx context.Context, expr string, window timespan.Window) common.ParseResult {
	return f.fetchRange(ctx, adHocKind, expr, window)
}

// FetchInstant issues an instant query evaluated at the provided time
func (f *prometheusFetcher) FetchInstant(ctx context.Context, expr string, at time.Time) common.ParseResult {
	return f.doQuery(ctx, adHocKind, expr, func(ctx context.Context) (model.Value, v1.Warnings, error) {
		return f.api.Query(ctx, expr, at)
	})
}

// FetchAll issues one range query per provided query, concurrently, and waits for all of them.
// The returned slice is index-aligned with the queries.
func (f *prometheusFetcher) FetchAll(ctx context.Context, queries []common.MetricQuery, window timespan.Window) []common.SampleSeries {
	results := make([]common.SampleSeries, len(queries))

	var group errgroup.Group
	group.SetLimit(f.maxConcurrentQueries)
	for i, q := range queries {
		group.Go(func() error {
			results[i] = common.SampleSeries{
				Query:  q,
				Result: f.fetchRange(ctx, string(q.Kind), q.Expr, window),
			}

			return nil
		})
	}
	_ = group.Wait()

	return results
}

func (f *prometheusFetcher) fetchRange(ctx context.Context, kind string, expr string, window timespan.Window) common.ParseResult {
	if window.IsDegenerate() {
		metrics.RecordFetch(kind, metrics.OutcomeError, 0)
		return common.APIError{Reason: "degenerate time window"}
	}

	queryRange := v1.Range{
		Start: window.Start,
		End:   window.End,
		Step:  window.Step,
	}

	return f.doQuery(ctx, kind, expr, func(ctx context.Context) (model.Value, v1.Warnings, error) {
		return f.api.QueryRange(ctx, expr, queryRange)
	})
}

func (f *prometheusFetcher) doQuery(
	ctx context.Context,
	kind string,
	expr string,
	query func(ctx context.Context) (model.Value, v1.Warnings, error),
) common.ParseResult {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	value, warnings, err := query(ctx)
	duration := time.Since(start)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = errQueryTimedOut
	}

	for _, warning := range warnings {
		log.Debug("Prometheus query warning", "kind", kind, "query", expr, "warning", warning)
	}

	result := toParseResult(value, err)
	switch r := result.(type) {
	case common.APIError:
		log.Warn("Prometheus query failed", "kind", kind, "query", expr, "reason", r.Reason)
		metrics.RecordFetch(kind, metrics.OutcomeError, duration)
	case common.NoData:
		log.Trace("Prometheus query returned no data", "kind", kind, "query", expr)
		metrics.RecordFetch(kind, metrics.OutcomeNoData, duration)
	default:
		metrics.RecordFetch(kind, metrics.OutcomeSuccess, duration)
	}

	return result
}

// IsInterfaceNil returns true if the value under the interface is nil
func (f *prometheusFetcher) IsInterfaceNil() bool {
	return f == nil
}
