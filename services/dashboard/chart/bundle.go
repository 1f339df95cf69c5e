package chart

import (
	"math"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
)

const (
	fieldDate        = "date"
	fieldY           = "y"
	fieldSeriesLabel = "seriesLabel"
	typeTemporal     = "temporal"
	typeQuantitative = "quantitative"
	typeNominal      = "nominal"
	xAxisTickCount   = 4
	unitPercent      = "%"
	unitMBPerSecond  = "MB/s"
)

var titles = map[common.ChartKind]string{
	common.ChartCPU:        "CPU Usage (%)",
	common.ChartMemory:     "Memory",
	common.ChartLoad:       "System Load",
	common.ChartThroughput: "Disk Throughput (MB/s)",
}

// AxisSpec describes one chart axis
type AxisSpec struct {
	Field     string    `json:"field"`
	Type      string    `json:"type"`
	Format    string    `json:"format,omitempty"`
	TickCount int       `json:"tickCount,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Domain    []float64 `json:"domain,omitempty"`
}

// ColorSpec maps every series label to exactly one color
type ColorSpec struct {
	Field  string   `json:"field"`
	Type   string   `json:"type"`
	Domain []string `json:"domain"`
	Range  []string `json:"range"`
}

// Bundle is everything the charting component needs to render one chart
type Bundle struct {
	Chart       common.ChartKind    `json:"chart"`
	Title       string              `json:"title"`
	Span        timespan.Span       `json:"span"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Empty       bool                `json:"empty"`
	XAxis       AxisSpec            `json:"xAxisSpec"`
	YAxis       AxisSpec            `json:"yAxisSpec"`
	Color       ColorSpec           `json:"colorSpec"`
	Data        []common.ChartPoint `json:"data"`
}

// Title returns the display title of the chart
func Title(kind common.ChartKind) string {
	return titles[kind]
}

// NewBundle decorates the normalized points with the presentation specs. Empty points are replaced
// with the sentinel.
func NewBundle(kind common.ChartKind, span timespan.Span, points []common.ChartPoint, generatedAt time.Time) Bundle {
	if len(points) == 0 {
		points = []common.ChartPoint{common.SentinelPoint()}
	}
	empty := common.IsSentinel(points)

	return Bundle{
		Chart:       kind,
		Title:       Title(kind),
		Span:        span,
		GeneratedAt: generatedAt.UTC(),
		Empty:       empty,
		XAxis: AxisSpec{
			Field:     fieldDate,
			Type:      typeTemporal,
			Format:    timespan.TickFormat(span),
			TickCount: xAxisTickCount,
		},
		YAxis: yAxis(kind, points, empty),
		Color: colorSpec(points, empty),
		Data:  points,
	}
}

func yAxis(kind common.ChartKind, points []common.ChartPoint, empty bool) AxisSpec {
	axis := AxisSpec{
		Field: fieldY,
		Type:  typeQuantitative,
	}

	switch kind {
	case common.ChartCPU, common.ChartMemory:
		axis.Unit = unitPercent
		axis.Domain = []float64{0, 100}
	case common.ChartThroughput:
		axis.Unit = unitMBPerSecond
		if !empty {
			bound := maxAbs(points)
			if bound > 0 {
				axis.Domain = []float64{-bound, bound}
			}
		}
	}

	return axis
}

func colorSpec(points []common.ChartPoint, empty bool) ColorSpec {
	domain := make([]string, 0)
	if !empty {
		domain = seriesLabels(points)
	}

	return ColorSpec{
		Field:  fieldSeriesLabel,
		Type:   typeNominal,
		Domain: domain,
		Range:  Palette(len(domain)),
	}
}

// seriesLabels returns the distinct labels in emission order
func seriesLabels(points []common.ChartPoint) []string {
	seen := make(map[string]struct{})
	labels := make([]string, 0)
	for _, p := range points {
		if _, found := seen[p.SeriesLabel]; found {
			continue
		}

		seen[p.SeriesLabel] = struct{}{}
		labels = append(labels, p.SeriesLabel)
	}

	return labels
}

func maxAbs(points []common.ChartPoint) float64 {
	bound := 0.0
	for _, p := range points {
		bound = math.Max(bound, math.Abs(p.Y))
	}

	return bound
}
