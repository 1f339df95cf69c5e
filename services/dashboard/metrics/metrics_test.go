package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordFetch(t *testing.T) {
	before := testutil.ToFloat64(FetchesTotal.WithLabelValues("test-kind", OutcomeError))
	RecordFetch("test-kind", OutcomeError, 10*time.Millisecond)
	after := testutil.ToFloat64(FetchesTotal.WithLabelValues("test-kind", OutcomeError))

	assert.Equal(t, before+1, after)
}

func TestRecordStaleResult(t *testing.T) {
	before := testutil.ToFloat64(StaleResultsTotal.WithLabelValues("test-chart"))
	RecordStaleResult("test-chart")
	RecordStaleResult("test-chart")
	after := testutil.ToFloat64(StaleResultsTotal.WithLabelValues("test-chart"))

	assert.Equal(t, before+2, after)
}

func TestRecordCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("test-hit"))
	RecordCacheLookup("test-hit")
	after := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("test-hit"))

	assert.Equal(t, before+1, after)
}
