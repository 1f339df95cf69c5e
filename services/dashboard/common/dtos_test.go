package common

import (
	"testing"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	"github.com/stretchr/testify/assert"
)

func TestChartKind_MetricKinds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []MetricKind{KindCPU}, ChartCPU.MetricKinds())
	assert.Equal(t, []MetricKind{KindMemory}, ChartMemory.MetricKinds())
	assert.Equal(t, []MetricKind{KindLoad}, ChartLoad.MetricKinds())
	assert.Equal(t, []MetricKind{KindThroughputRead, KindThroughputWrite}, ChartThroughput.MetricKinds())
	assert.Nil(t, ChartKind("disk").MetricKinds())
	assert.False(t, ChartKind("disk").IsValid())
	for _, chart := range AllCharts() {
		assert.True(t, chart.IsValid())
	}
}

func TestIsSentinel(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSentinel([]ChartPoint{SentinelPoint()}))
	assert.True(t, IsSentinel([]ChartPoint{{Date: time.Unix(0, 0), SeriesLabel: "", Y: 0}}))
	assert.False(t, IsSentinel(nil))
	assert.False(t, IsSentinel([]ChartPoint{{Date: time.Unix(1700000000, 0), SeriesLabel: "node-1", Y: 12.5}}))
	assert.False(t, IsSentinel([]ChartPoint{SentinelPoint(), SentinelPoint()}))
}

func TestIsAPIError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAPIError(APIError{Reason: "timeout"}))
	assert.False(t, IsAPIError(NoData{}))
	assert.False(t, IsAPIError(Success{}))
	assert.False(t, IsAPIError(nil))
}

func TestChartRequest_Equal(t *testing.T) {
	t.Parallel()

	node1 := Target{Name: "node-1", InternalIP: "10.0.0.1"}
	node2 := Target{Name: "node-2", InternalIP: "10.0.0.2"}
	req := ChartRequest{Chart: ChartCPU, Targets: []Target{node1, node2}, Span: timespan.LastOneHour}

	assert.True(t, req.Equal(req.WithTargets([]Target{node1, node2})))
	assert.False(t, req.Equal(req.WithTargets([]Target{node1})))
	assert.False(t, req.Equal(req.WithTargets([]Target{node2, node1})))
	assert.False(t, req.Equal(req.WithSpan(timespan.LastSevenDays)))
	assert.True(t, req.Equal(req.WithSpan(timespan.LastOneHour)))

	copied := req.WithSpan(timespan.LastOneHour)
	copied.Targets[0].Name = "renamed"
	assert.Equal(t, "node-1", req.Targets[0].Name)
}
