package timespan

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownSpan signals a label outside the fixed span enumeration
var ErrUnknownSpan = errors.New("unknown time span")

// Span is the label of a relative time window ending now
type Span string

const (
	// LastOneHour is the last hour, sampled every minute
	LastOneHour Span = "now-1h"
	// LastTwentyFourHours is the last day, sampled every 6 minutes
	LastTwentyFourHours Span = "now-24h"
	// LastSevenDays is the last week, sampled every hour
	LastSevenDays Span = "now-7d"
)

const (
	intraDayTickFormat = "%H:%M"
	multiDayTickFormat = "%m/%d"
)

type definition struct {
	label      string
	duration   time.Duration
	step       time.Duration
	tickFormat string
}

var definitions = map[Span]definition{
	LastOneHour: {
		label:      "Last 1 hour",
		duration:   3600 * time.Second,
		step:       60 * time.Second,
		tickFormat: intraDayTickFormat,
	},
	LastTwentyFourHours: {
		label:      "Last 24 hours",
		duration:   86400 * time.Second,
		step:       360 * time.Second,
		tickFormat: intraDayTickFormat,
	},
	LastSevenDays: {
		label:      "Last 7 days",
		duration:   604800 * time.Second,
		step:       3600 * time.Second,
		tickFormat: multiDayTickFormat,
	},
}

// All returns the known spans in display order
func All() []Span {
	return []Span{LastOneHour, LastTwentyFourHours, LastSevenDays}
}

// Parse validates the label against the span enumeration
func Parse(label string) (Span, error) {
	span := Span(label)
	if !span.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSpan, label)
	}

	return span, nil
}

// IsValid returns true if the span is part of the enumeration
func (s Span) IsValid() bool {
	_, found := definitions[s]
	return found
}

// Label returns the human readable name of the span
func (s Span) Label() string {
	return definitions[s].label
}

// Duration returns the length of the window, 0 for unknown spans
func (s Span) Duration() time.Duration {
	return definitions[s].duration
}

// Step returns the sample interval, 0 for unknown spans
func (s Span) Step() time.Duration {
	return definitions[s].step
}

// String returns the span label
func (s Span) String() string {
	return string(s)
}

// TickFormat returns the x axis tick format: hours and minutes for intra-day spans, month and day otherwise
func TickFormat(span Span) string {
	def, found := definitions[span]
	if !found {
		return intraDayTickFormat
	}

	return def.tickFormat
}
