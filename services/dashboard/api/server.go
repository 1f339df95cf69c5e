package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/storage"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultRefreshInterval = 30 * time.Second
	defaultQueryTimeout    = 30 * time.Second
	shutdownTimeout        = 5 * time.Second
)

var log = logger.GetOrCreate("api")

type server struct {
	router          *gin.Engine
	httpServer      *http.Server
	storage         Storage
	engine          ChartEngine
	inventory       Inventory
	fetcher         InstantFetcher
	builder         QueryBuilder
	listenAddr      string
	defaultSpan     timespan.Span
	refreshInterval time.Duration
	queryTimeout    time.Duration
	generalHandler  func(http.Handler) http.Handler
	liveUpgrader    *websocket.Upgrader
	wg              sync.WaitGroup

	ctx         context.Context
	cancel      context.CancelFunc
	mutSessions sync.Mutex
	sessions    map[string]*liveSession
	sessionsWG  sync.WaitGroup
}

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ListenAddress   string
	Storage         Storage
	Engine          ChartEngine
	Inventory       Inventory
	Fetcher         InstantFetcher
	Builder         QueryBuilder
	DefaultSpan     timespan.Span
	RefreshInterval time.Duration
	QueryTimeout    time.Duration
	// AllowedOrigins lists the hosts, besides the server's own, that may open live chart connections
	AllowedOrigins []string
	GeneralHandler func(http.Handler) http.Handler
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Storage) {
		return nil, errors.New("storage is required")
	}
	if check.IfNil(args.Engine) {
		return nil, errors.New("chart engine is required")
	}
	if check.IfNil(args.Inventory) {
		return nil, errors.New("inventory is required")
	}
	if check.IfNil(args.Fetcher) {
		return nil, errors.New("instant fetcher is required")
	}
	if check.IfNil(args.Builder) {
		return nil, errors.New("query builder is required")
	}
	if args.GeneralHandler == nil {
		return nil, errors.New("nil http handler")
	}
	if !args.DefaultSpan.IsValid() {
		return nil, timespan.ErrUnknownSpan
	}

	refreshInterval := args.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	queryTimeout := args.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())

	ctx, cancel := context.WithCancel(context.Background())
	s := &server{
		router:          router,
		storage:         args.Storage,
		engine:          args.Engine,
		inventory:       args.Inventory,
		fetcher:         args.Fetcher,
		builder:         args.Builder,
		listenAddr:      args.ListenAddress,
		defaultSpan:     args.DefaultSpan,
		refreshInterval: refreshInterval,
		queryTimeout:    queryTimeout,
		generalHandler:  args.GeneralHandler,
		liveUpgrader:    newLiveUpgrader(args.AllowedOrigins),
		ctx:             ctx,
		cancel:          cancel,
		sessions:        make(map[string]*liveSession),
	}

	s.setupRoutes()
	return s, nil
}

func (s *server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/spans", s.handleGetSpans)
		api.GET("/targets", s.handleGetTargets)
		api.GET("/charts/:chart", s.handleGetChart)
		api.GET("/charts/:chart/history", s.handleGetChartHistory)
		api.GET("/charts/:chart/live", s.handleLiveChart)
		api.DELETE("/charts/:chart", s.handleDeleteChart)
		api.GET("/nodes/:name/filesystems", s.handleGetFilesystems)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
}

// Start listens and serves connections
func (s *server) Start() {
	handler := s.generalHandler(s.router)

	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: handler,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// NumLiveSessions returns the number of connected live chart views
func (s *server) NumLiveSessions() int {
	s.mutSessions.Lock()
	defer s.mutSessions.Unlock()

	return len(s.sessions)
}

// Close stops the live sessions and gracefully stops the server
func (s *server) Close() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.sessionsWG.Wait()
	s.wg.Wait()

	return err
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *server) IsInterfaceNil() bool {
	return s == nil
}

// --- Handlers ---

type spanResponse struct {
	Span            timespan.Span `json:"span"`
	Label           string        `json:"label"`
	DurationSeconds int64         `json:"durationSeconds"`
	StepSeconds     int64         `json:"stepSeconds"`
	TickFormat      string        `json:"tickFormat"`
}

func (s *server) handleGetSpans(c *gin.Context) {
	spans := timespan.All()
	out := make([]spanResponse, 0, len(spans))
	for _, span := range spans {
		out = append(out, spanResponse{
			Span:            span,
			Label:           span.Label(),
			DurationSeconds: int64(span.Duration().Seconds()),
			StepSeconds:     int64(span.Step().Seconds()),
			TickFormat:      timespan.TickFormat(span),
		})
	}

	c.JSON(http.StatusOK, gin.H{"spans": out, "default": s.defaultSpan})
}

func (s *server) handleGetTargets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"targets": s.inventory.Targets()})
}

func (s *server) handleGetChart(c *gin.Context) {
	kind, span, ok := s.parseChartParams(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	bundle, err := s.storage.GetLatestSnapshot(ctx, kind, span)
	if err == nil {
		c.Header("X-Chart-Source", "snapshot")
		c.JSON(http.StatusOK, bundle)
		return
	}
	if !errors.Is(err, storage.ErrSnapshotNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Debug("no stored snapshot, running an on-demand cycle", "chart", kind, "span", span)

	req := common.ChartRequest{
		Chart:   kind,
		Targets: s.inventory.Targets(),
		Span:    span,
	}
	cycleCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	c.Header("X-Chart-Source", "cycle")
	c.JSON(http.StatusOK, s.engine.Process(cycleCtx, req))
}

func (s *server) handleGetChartHistory(c *gin.Context) {
	kind, span, ok := s.parseChartParams(c)
	if !ok {
		return
	}

	snapshots, err := s.storage.GetSnapshotHistory(c.Request.Context(), kind, span)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chart":     kind,
		"span":      span,
		"snapshots": snapshots,
	})
}

func (s *server) handleDeleteChart(c *gin.Context) {
	kind := common.ChartKind(c.Param("chart"))
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown chart"})
		return
	}

	var span timespan.Span
	label := c.Query("span")
	if label != "" {
		var err error
		span, err = timespan.Parse(label)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	err := s.storage.DeleteSnapshots(c.Request.Context(), kind, span)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// parseChartParams reads the chart path parameter and the span query parameter, answering 400 on unknown values
func (s *server) parseChartParams(c *gin.Context) (common.ChartKind, timespan.Span, bool) {
	kind := common.ChartKind(c.Param("chart"))
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown chart"})
		return "", "", false
	}

	span, err := timespan.Parse(c.DefaultQuery("span", string(s.defaultSpan)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", "", false
	}

	return kind, span, true
}
