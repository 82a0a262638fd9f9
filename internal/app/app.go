package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"trafficmonitor/internal/config"
	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/metrics"
	"trafficmonitor/internal/repository/sqlite"
	"trafficmonitor/internal/route"
	"trafficmonitor/internal/service"
	"trafficmonitor/internal/service/capture"
	"trafficmonitor/internal/service/detection"
	"trafficmonitor/internal/service/preview"
	"trafficmonitor/internal/service/vision"
	"trafficmonitor/internal/service/websocket"
	"trafficmonitor/internal/sink"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	metrics    *metrics.Metrics
	db         *sqlite.DB
	repo       *sqlite.CountRepository
	hubService *websocket.HubService
	preview    *preview.Cache
	detector   detection.Detector
	manager    *service.Manager
	forwarders []*sink.Forwarder
	handler    http.Handler

	open     capture.OpenFunc
	closers  []func() error
	addr     chan net.Addr
	pipeline chan error
}

// Option overrides a collaborator, mainly for tests and tools.
type Option func(*App)

// WithDetector replaces the OpenCV detector.
func WithDetector(d detection.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithOpener replaces the video opener.
func WithOpener(open capture.OpenFunc) Option {
	return func(a *App) { a.open = open }
}

// WithLogger replaces the file-backed logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.logger = l }
}

func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		config:   cfg,
		addr:     make(chan net.Addr, 1),
		pipeline: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		l, err := logger.NewLogger(cfg)
		if err != nil {
			return nil, err
		}
		a.logger = l
		a.closers = append(a.closers, l.Close)
	}

	db, err := sqlite.New(cfg.DatabasePath, a.logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.db = db
	a.repo = sqlite.NewCountRepository(db)
	// Closed before the logger.
	a.closers = append([]func() error{db.Close}, a.closers...)

	a.metrics = metrics.New()
	a.hubService = websocket.NewHubService(cfg.BroadcastBuffer, a.logger, a.metrics)
	a.preview = preview.NewCache()

	if a.detector == nil {
		d := vision.NewDetector(cfg, a.logger)
		a.detector = d
		a.closers = append([]func() error{d.Close}, a.closers...)
	}
	if a.open == nil {
		a.open = capture.Opener(vision.OpenVideo)
	}

	a.manager = service.NewManager(cfg, service.Dependencies{
		Open:     a.open,
		Detector: detection.NewAdapter(a.detector, a.logger, a.metrics),
		Store:    a.repo,
		Hub:      a.hubService,
		Preview:  a.preview,
		Logger:   a.logger,
		Metrics:  a.metrics,
	})

	for _, s := range a.buildSinks() {
		a.forwarders = append(a.forwarders, sink.NewForwarder(a.hubService, s, a.logger, a.metrics))
	}

	a.handler = route.SetupRoutes(cfg, a.logger, route.Services{
		Records:  a.repo,
		Pipeline: a.manager,
		Hub:      a.hubService,
		Preview:  a.preview,
		Metrics:  a.metrics,
	})

	return a, nil
}

// buildSinks connects the configured brokers. A broker that cannot be
// reached is logged and skipped.
func (a *App) buildSinks() []sink.Sink {
	var sinks []sink.Sink
	if a.config.MQTTBroker != "" {
		s, err := sink.NewMQTTSink(a.config.MQTTBroker, a.config.MQTTTopic, "trafficmonitor-"+a.config.Junction, a.logger)
		if err != nil {
			a.logger.Warning("MQTT sink disabled: %v", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if len(a.config.KafkaBrokers) > 0 {
		sinks = append(sinks, sink.NewKafkaSink(a.config.KafkaBrokers, a.config.KafkaTopic))
	}
	return sinks
}

// Run serves HTTP and runs the sampling loop until ctx is cancelled. The
// server keeps answering queries after the video ends or fails to open.
func (a *App) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", a.config.Port, err)
	}
	a.addr <- listener.Addr()

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.hubService.Run(ctx)
	}()

	for _, f := range a.forwarders {
		wg.Add(1)
		go func(f *sink.Forwarder) {
			defer wg.Done()
			f.Run(ctx)
		}(f)
	}

	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	a.logger.Info("🚀 Traffic monitor listening on %s", listener.Addr())
	a.logger.Info("📹 Video: %s (stride %d, %dx%d)", a.config.VideoPath, a.config.SampleStride, a.config.FrameWidth, a.config.FrameHeight)
	a.logger.Info("🗄️  Database: %s", a.config.DatabasePath)

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := a.manager.Run(ctx)
		if err != nil {
			a.logger.Error("Sampling loop stopped: %v", err)
		}
		a.pipeline <- err
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		a.logger.Error("HTTP server failed: %v", runErr)
	}

	stop()
	a.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	a.logger.Info("Graceful shutdown complete")
	return runErr
}

// Addr blocks until Run is listening and returns the bound address.
func (a *App) Addr() net.Addr {
	addr := <-a.addr
	a.addr <- addr
	return addr
}

// PipelineDone delivers the sampling loop result once it finishes.
func (a *App) PipelineDone() <-chan error {
	return a.pipeline
}

// Manager exposes the sampling loop for status checks.
func (a *App) Manager() *service.Manager {
	return a.manager
}

// Close releases the store, the detector and the log files.
func (a *App) Close() error {
	var errs []error
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
