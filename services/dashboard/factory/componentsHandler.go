package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/api"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/cache"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/config"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/engine"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/fetcher"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/inventory"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/query"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/reporter"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/scheduler"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/storage"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("factory")

type componentsHandler struct {
	store           Storage
	inventory       Inventory
	engine          Engine
	server          Server
	reporter        Reporter
	defaultSpan     timespan.Span
	refreshInterval time.Duration

	mutCancel      sync.Mutex
	cancel         func()
	closed         bool
	schedulers     []Scheduler
	subscriptionID string
}

// NewComponentsHandler creates a new components handler
func NewComponentsHandler(
	sqlitePath string,
	prometheusBearerToken string,
	cfg config.Config,
) (*componentsHandler, error) {
	defaultSpan, err := timespan.Parse(cfg.DefaultTimeSpan)
	if err != nil {
		return nil, err
	}

	queryTimeout := time.Duration(cfg.QueryTimeoutInSeconds) * time.Second
	refreshInterval := time.Duration(cfg.RefreshIntervalInSeconds) * time.Second

	promFetcher, err := fetcher.NewPrometheusFetcher(fetcher.ArgsPrometheusFetcher{
		URL:                  cfg.PrometheusURL,
		BearerToken:          prometheusBearerToken,
		Timeout:              queryTimeout,
		MaxConcurrentQueries: cfg.MaxConcurrentQueries,
	})
	if err != nil {
		return nil, err
	}

	queryCache, err := cache.NewQueryCache(cache.ArgsQueryCache{
		Fetcher: promFetcher,
		TTL:     time.Duration(cfg.CacheTTLInSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	builder := query.NewBuilder(cfg.NodeExporterPort)
	eng, err := engine.NewChartEngine(engine.ArgsChartEngine{
		Cache:        queryCache,
		Builder:      builder,
		QueryTimeout: queryTimeout,
	})
	if err != nil {
		return nil, err
	}

	source, err := createInventorySource(cfg.Inventory)
	if err != nil {
		return nil, err
	}

	refresher, err := inventory.NewRefresher(inventory.ArgsRefresher{
		Source:   source,
		Interval: time.Duration(cfg.Inventory.RefreshIntervalInSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(sqlitePath, cfg.SnapshotRetentionSeconds, cfg.SnapshotHistoryDepth)
	if err != nil {
		return nil, err
	}

	rep, err := reporter.NewStorageReporter(store, queryTimeout)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	serverArgs := api.ArgsWebServer{
		ListenAddress:   cfg.ListenAddress,
		Storage:         store,
		Engine:          eng,
		Inventory:       refresher,
		Fetcher:         promFetcher,
		Builder:         builder,
		DefaultSpan:     defaultSpan,
		RefreshInterval: refreshInterval,
		QueryTimeout:    queryTimeout,
		AllowedOrigins:  cfg.AllowedOrigins,
		GeneralHandler:  api.CORSMiddleware,
	}

	server, err := api.NewServer(serverArgs)
	if err != nil {
		rep.Close()
		_ = store.Close()
		return nil, err
	}

	return &componentsHandler{
		store:           store,
		inventory:       refresher,
		engine:          eng,
		server:          server,
		reporter:        rep,
		defaultSpan:     defaultSpan,
		refreshInterval: refreshInterval,
	}, nil
}

func createInventorySource(cfg config.InventoryConfig) (inventory.Source, error) {
	switch cfg.Source {
	case config.InventorySourceStatic:
		return inventory.NewStaticSource(cfg.Targets)
	case config.InventorySourceKubernetes:
		client, err := inventory.NewKubernetesClient(cfg.KubeconfigPath, cfg.KubeContext)
		if err != nil {
			return nil, err
		}

		return inventory.NewKubernetesSource(client)
	default:
		return nil, fmt.Errorf("unknown inventory source %q", cfg.Source)
	}
}

// GetStore returns the storage component
func (ch *componentsHandler) GetStore() Storage {
	return ch.store
}

// GetServer returns the server component
func (ch *componentsHandler) GetServer() Server {
	return ch.server
}

// GetEngine returns the chart engine
func (ch *componentsHandler) GetEngine() Engine {
	return ch.engine
}

// GetInventory returns the inventory refresher
func (ch *componentsHandler) GetInventory() Inventory {
	return ch.inventory
}

// GetSchedulers returns the background schedulers, one per chart. They exist only after Start.
func (ch *componentsHandler) GetSchedulers() []Scheduler {
	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	return append(make([]Scheduler, 0, len(ch.schedulers)), ch.schedulers...)
}

// Start starts the inner components: the background schedulers refresh every chart for the default span
// and store the bundles
func (ch *componentsHandler) Start() error {
	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	if ch.cancel != nil || ch.closed {
		return nil
	}

	var ctx context.Context
	ctx, ch.cancel = context.WithCancel(context.Background())

	ch.schedulers = make([]Scheduler, 0, len(common.AllCharts()))
	for _, kind := range common.AllCharts() {
		sched, err := scheduler.NewRefreshScheduler(scheduler.ArgsRefreshScheduler{
			Name:     "background-" + string(kind),
			Context:  ctx,
			Engine:   ch.engine,
			Interval: ch.refreshInterval,
			Sink:     ch.reporter.Report,
		})
		if err != nil {
			ch.cancel()
			ch.cancel = nil
			return err
		}

		ch.schedulers = append(ch.schedulers, sched)
	}

	schedulers := ch.schedulers
	subscriptionID, err := ch.inventory.Subscribe(func(targets []common.Target) {
		for _, sched := range schedulers {
			sched.UpdateTargets(targets)
		}
	})
	if err != nil {
		ch.cancel()
		ch.cancel = nil
		return err
	}
	ch.subscriptionID = subscriptionID

	targets := ch.inventory.Targets()
	for i, kind := range common.AllCharts() {
		ch.schedulers[i].Start(common.ChartRequest{
			Chart:   kind,
			Targets: targets,
			Span:    ch.defaultSpan,
		})
	}

	ch.inventory.Start()
	ch.server.Start()

	log.Info("dashboard components started", "address", ch.server.Address(), "default span", ch.defaultSpan,
		"refresh interval", ch.refreshInterval)

	return nil
}

// Close closes the inner components
func (ch *componentsHandler) Close() {
	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	if ch.closed {
		return
	}
	ch.closed = true

	if ch.cancel != nil {
		ch.inventory.Unsubscribe(ch.subscriptionID)
		for _, sched := range ch.schedulers {
			sched.Stop()
		}
		ch.cancel()
		ch.cancel = nil
	}

	_ = ch.inventory.Close()
	err := ch.server.Close()
	if err != nil {
		log.Warn("error closing the server", "error", err)
	}
	ch.reporter.Close()
	err = ch.store.Close()
	if err != nil {
		log.Warn("error closing the storage", "error", err)
	}
}
