package fetcher

import (
	"errors"
)

var errEmptyPrometheusURL = errors.New("empty Prometheus URL")

var errQueryTimedOut = errors.New("query timed out")

type errUnsupportedResultType string

func (e errUnsupportedResultType) Error() string {
	return "unsupported Prometheus result type: " + string(e)
}
