package common

import (
	"time"

	"github.com/prometheus/common/model"
)

// Target is a node that exposes node-exporter metrics
type Target struct {
	Name       string `json:"name" toml:"Name"`
	InternalIP string `json:"internalIP" toml:"InternalIP"`
}

// MetricKind identifies one query template
type MetricKind string

const (
	// KindCPU is the CPU utilization in percents
	KindCPU MetricKind = "cpu"
	// KindMemory is the memory utilization in percents
	KindMemory MetricKind = "memory"
	// KindLoad is the 1 minute load normalized by the number of cores, in percents
	KindLoad MetricKind = "load"
	// KindThroughputRead is the disk read throughput in MB/s
	KindThroughputRead MetricKind = "throughput-read"
	// KindThroughputWrite is the disk write throughput in MB/s
	KindThroughputWrite MetricKind = "throughput-write"
	// KindFilesystemUsage is the used space per mountpoint in percents
	KindFilesystemUsage MetricKind = "filesystem-usage"
	// KindFilesystemSize is the size in bytes of each mountpoint
	KindFilesystemSize MetricKind = "filesystem-size"
)

// ChartKind identifies one dashboard chart
type ChartKind string

const (
	// ChartCPU -
	ChartCPU ChartKind = "cpu"
	// ChartMemory -
	ChartMemory ChartKind = "memory"
	// ChartLoad -
	ChartLoad ChartKind = "load"
	// ChartThroughput is the only dual-series chart (read & write)
	ChartThroughput ChartKind = "throughput"
)

// AllCharts returns the dashboard charts in display order
func AllCharts() []ChartKind {
	return []ChartKind{ChartCPU, ChartMemory, ChartLoad, ChartThroughput}
}

// IsValid returns true if the chart is a known one
func (c ChartKind) IsValid() bool {
	switch c {
	case ChartCPU, ChartMemory, ChartLoad, ChartThroughput:
		return true
	default:
		return false
	}
}

// MetricKinds returns the metric kinds that feed the chart
func (c ChartKind) MetricKinds() []MetricKind {
	switch c {
	case ChartCPU:
		return []MetricKind{KindCPU}
	case ChartMemory:
		return []MetricKind{KindMemory}
	case ChartLoad:
		return []MetricKind{KindLoad}
	case ChartThroughput:
		return []MetricKind{KindThroughputRead, KindThroughputWrite}
	default:
		return nil
	}
}

// MetricQuery is a rendered query expression for a target
type MetricQuery struct {
	Kind   MetricKind
	Target Target
	Expr   string
}

// Series is one labeled sequence of samples, in chronological order
type Series struct {
	Labels  model.Metric
	Samples []model.SamplePair
}

// ParseResult is the outcome of a single query: Success, NoData or APIError
type ParseResult interface {
	isParseResult()
}

// Success holds at least one series
type Success struct {
	Series []Series
}

// NoData is returned when the query succeeded but matched no series
type NoData struct{}

// APIError is returned on transport failures, non-2xx statuses, error envelopes and malformed responses
type APIError struct {
	Reason string
}

func (Success) isParseResult()  {}
func (NoData) isParseResult()   {}
func (APIError) isParseResult() {}

// IsAPIError returns true if the result is an APIError
func IsAPIError(result ParseResult) bool {
	_, ok := result.(APIError)
	return ok
}

// SampleSeries pairs a query with its parsed result
type SampleSeries struct {
	Query  MetricQuery
	Result ParseResult
}

// ChartPoint is the normalized unit handed to the charting component
type ChartPoint struct {
	Date        time.Time `json:"date"`
	SeriesLabel string    `json:"seriesLabel"`
	Y           float64   `json:"y"`
}

// Epoch is the date used by the sentinel point
var Epoch = time.Unix(0, 0).UTC()

// SentinelPoint returns the placeholder point used instead of an empty sequence
func SentinelPoint() ChartPoint {
	return ChartPoint{
		Date:        Epoch,
		SeriesLabel: "",
		Y:           0,
	}
}

// IsSentinel returns true if the points only contain the placeholder point
func IsSentinel(points []ChartPoint) bool {
	if len(points) != 1 {
		return false
	}

	return points[0].Date.Equal(Epoch) && points[0].SeriesLabel == "" && points[0].Y == 0
}
