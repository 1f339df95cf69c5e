package normalizer

import (
	"math"
	"net"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/prometheus/common/model"
)

const (
	readSuffix  = "-read"
	writeSuffix = "-write"
)

// Normalize flattens single-series results into chart points. results[i] belongs to targets[i]; a target
// contributes the samples of its first series when its result is a Success. Failed targets are skipped.
// The output is never empty: the sentinel point replaces an empty sequence.
func Normalize(results []common.ParseResult, targets []common.Target) []common.ChartPoint {
	points := make([]common.ChartPoint, 0)
	for i, target := range targets {
		if i >= len(results) {
			break
		}

		success, ok := results[i].(common.Success)
		if !ok || len(success.Series) == 0 {
			continue
		}

		points = appendSeries(points, success.Series[0], target.Name, 1)
	}

	return withSentinel(points)
}

// NormalizeThroughput flattens the read & write results of the throughput chart. Each target is matched
// to its series by the host part of the instance label. Read values are negated so they render below zero.
// If any read or write query failed, the whole tick is unavailable and the sentinel is returned.
func NormalizeThroughput(read []common.ParseResult, write []common.ParseResult, targets []common.Target) []common.ChartPoint {
	if anyAPIError(read) || anyAPIError(write) {
		return withSentinel(nil)
	}

	readSeries := collectSeries(read)
	writeSeries := collectSeries(write)

	points := make([]common.ChartPoint, 0)
	for _, target := range targets {
		series, found := findByHost(readSeries, target.InternalIP)
		if found {
			points = appendSeries(points, series, target.Name+readSuffix, -1)
		}

		series, found = findByHost(writeSeries, target.InternalIP)
		if found {
			points = appendSeries(points, series, target.Name+writeSuffix, 1)
		}
	}

	return withSentinel(points)
}

// InstanceHost returns the address part of the instance label, without the port
func InstanceHost(labels model.Metric) string {
	instance := string(labels[model.InstanceLabel])
	host, _, err := net.SplitHostPort(instance)
	if err != nil {
		return instance
	}

	return host
}

func appendSeries(points []common.ChartPoint, series common.Series, label string, sign float64) []common.ChartPoint {
	for _, sample := range series.Samples {
		value := float64(sample.Value)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}

		points = append(points, common.ChartPoint{
			Date:        sample.Timestamp.Time().UTC(),
			SeriesLabel: label,
			Y:           sign * value,
		})
	}

	return points
}

func anyAPIError(results []common.ParseResult) bool {
	for _, result := range results {
		if common.IsAPIError(result) {
			return true
		}
	}

	return false
}

func collectSeries(results []common.ParseResult) []common.Series {
	all := make([]common.Series, 0, len(results))
	for _, result := range results {
		success, ok := result.(common.Success)
		if !ok {
			continue
		}

		all = append(all, success.Series...)
	}

	return all
}

func findByHost(series []common.Series, host string) (common.Series, bool) {
	for _, s := range series {
		if InstanceHost(s.Labels) == host {
			return s, true
		}
	}

	return common.Series{}, false
}

func withSentinel(points []common.ChartPoint) []common.ChartPoint {
	if len(points) == 0 {
		return []common.ChartPoint{common.SentinelPoint()}
	}

	return points
}
