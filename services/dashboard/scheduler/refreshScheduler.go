package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/commonGo"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/metrics"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("scheduler")

// State of a refresh scheduler
type State int

const (
	// Idle means no timer is armed and results are dropped
	Idle State = iota
	// Polling means cycles are triggered on every interval
	Polling
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Polling:
		return "Polling"
	default:
		return "Idle"
	}
}

// ArgsRefreshScheduler defines the arguments needed to create a refresh scheduler
type ArgsRefreshScheduler struct {
	Name     string
	Context  context.Context
	Engine   Engine
	Interval time.Duration
	// Sink receives every applied bundle. It is called with the scheduler lock held, so it must not call
	// the scheduler back.
	Sink func(bundle chart.Bundle)
}

type refreshScheduler struct {
	name     string
	baseCtx  context.Context
	engine   Engine
	interval time.Duration
	sink     func(bundle chart.Bundle)

	mut         sync.Mutex
	state       State
	generation  uint64
	request     common.ChartRequest
	cancelTimer context.CancelFunc
}

// NewRefreshScheduler creates an idle scheduler for one chart instance
func NewRefreshScheduler(args ArgsRefreshScheduler) (*refreshScheduler, error) {
	if check.IfNil(args.Engine) {
		return nil, errNilEngine
	}
	if args.Sink == nil {
		return nil, errNilSink
	}
	if args.Interval <= 0 {
		return nil, errInvalidInterval
	}

	baseCtx := args.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	return &refreshScheduler{
		name:     args.Name,
		baseCtx:  baseCtx,
		engine:   args.Engine,
		interval: args.Interval,
		sink:     args.Sink,
		state:    Idle,
	}, nil
}

// Start enters Polling for the request: one cycle right away, then one every interval.
// Calling Start while polling behaves like Update.
func (rs *refreshScheduler) Start(req common.ChartRequest) {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	if rs.state == Polling && rs.request.Equal(req) {
		return
	}

	rs.restart(req)
}

// Update re-enters Polling with an immediate cycle if the target set or span changed. It does nothing while
// Idle or if the request is unchanged.
func (rs *refreshScheduler) Update(req common.ChartRequest) {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	rs.update(req)
}

// UpdateTargets replaces only the target set of the polled request, keeping the current span
func (rs *refreshScheduler) UpdateTargets(targets []common.Target) {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	rs.update(rs.request.WithTargets(targets))
}

// UpdateSpan replaces only the span of the polled request, keeping the current target set
func (rs *refreshScheduler) UpdateSpan(span timespan.Span) {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	rs.update(rs.request.WithSpan(span))
}

// update must be called with the mutex held
func (rs *refreshScheduler) update(req common.ChartRequest) {
	if rs.state != Polling || rs.request.Equal(req) {
		return
	}

	log.Debug("chart request changed, restarting polling", "name", rs.name,
		"chart", req.Chart, "span", req.Span, "num targets", len(req.Targets))
	rs.restart(req)
}

// Stop clears the timer and goes Idle. Cycles still in flight complete but their results are dropped.
func (rs *refreshScheduler) Stop() {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	if rs.state != Polling {
		return
	}

	rs.cancelTimer()
	rs.cancelTimer = nil
	rs.generation++
	rs.state = Idle
	metrics.ActiveSchedulers.Dec()

	log.Debug("scheduler stopped", "name", rs.name, "generation", rs.generation)
}

// State returns the current state
func (rs *refreshScheduler) State() State {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	return rs.state
}

// Generation returns the current generation
func (rs *refreshScheduler) Generation() uint64 {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	return rs.generation
}

// Request returns the request currently polled
func (rs *refreshScheduler) Request() common.ChartRequest {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	return rs.request.WithTargets(rs.request.Targets)
}

// restart must be called with the mutex held
func (rs *refreshScheduler) restart(req common.ChartRequest) {
	if rs.cancelTimer != nil {
		rs.cancelTimer()
	}
	if rs.state == Idle {
		metrics.ActiveSchedulers.Inc()
	}

	rs.generation++
	rs.request = req.WithTargets(req.Targets)
	rs.state = Polling

	var timerCtx context.Context
	timerCtx, rs.cancelTimer = context.WithCancel(rs.baseCtx)

	generation := rs.generation
	request := rs.request
	commonGo.CronJobStarter(timerCtx, func(_ context.Context) {
		rs.trigger(generation, request)
	}, rs.interval)
}

func (rs *refreshScheduler) trigger(generation uint64, req common.ChartRequest) {
	if !rs.isCurrent(generation) {
		return
	}

	go func() {
		bundle := rs.engine.Process(rs.baseCtx, req)
		rs.apply(generation, bundle)
	}()
}

func (rs *refreshScheduler) isCurrent(generation uint64) bool {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	return rs.state == Polling && rs.generation == generation
}

func (rs *refreshScheduler) apply(generation uint64, bundle chart.Bundle) {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	if rs.state != Polling || rs.generation != generation {
		log.Debug("dropping stale chart result", "name", rs.name, "chart", bundle.Chart,
			"result generation", generation, "current generation", rs.generation, "state", rs.state)
		metrics.RecordStaleResult(string(bundle.Chart))
		return
	}

	rs.sink(bundle)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (rs *refreshScheduler) IsInterfaceNil() bool {
	return rs == nil
}
