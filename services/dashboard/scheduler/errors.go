package scheduler

import "errors"

var (
	errNilEngine       = errors.New("nil engine")
	errNilSink         = errors.New("nil bundle sink")
	errInvalidInterval = errors.New("invalid refresh interval")
)
