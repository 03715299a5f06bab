package app

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fieldrelay/internal/config"
	"fieldrelay/internal/dispatch"
	"fieldrelay/internal/drone"
	"fieldrelay/internal/handlers"
	"fieldrelay/internal/hub"
	"fieldrelay/internal/ingest"
	"fieldrelay/internal/logger"
	"fieldrelay/internal/metrics"
	"fieldrelay/internal/repository/sqlite"
	"fieldrelay/internal/routes"
	"fieldrelay/internal/store"
	"fieldrelay/internal/vision"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	db         *sqlite.DB
	store      *store.Store
	hub        *hub.Hub
	dispatcher *dispatch.Dispatcher
	ingestor   *ingest.Ingestor
	gateway    *drone.Gateway
}

// NewApp wires the relay together from configuration.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogDirectory)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	journal, err := store.OpenJournal(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	st := store.New(sqlite.NewResultRepository(db), journal)

	broadcastHub := hub.New(log, m)

	provider := vision.NewOpenAIProvider(cfg.ProviderURL, cfg.ProviderKey, cfg.ProviderModel, cfg.ProviderPrompt, log)
	dispatcher := dispatch.New(provider, st, broadcastHub, log, m, dispatch.Options{
		Timeout: cfg.ProviderTimeout,
		Retries: cfg.RetryBudget,
		Backoff: cfg.RetryBackoff,
	})
	ingestor := ingest.New(dispatcher, log, m)

	gateway := drone.NewGateway(drone.Limits{
		AltitudeCeiling: cfg.AltitudeCeiling,
		Geofence:        cfg.Geofence,
	}, cfg.ActuatorTimeout, log, m)

	return &App{
		config:     cfg,
		logger:     log,
		registry:   registry,
		metrics:    m,
		db:         db,
		store:      st,
		hub:        broadcastHub,
		dispatcher: dispatcher,
		ingestor:   ingestor,
		gateway:    gateway,
	}, nil
}

// Run starts the relay and blocks until a shutdown signal arrives, then
// winds the pipeline down in order: stop new captures, drain the
// dispatcher with the grace period, close the command gateway, stop the
// HTTP server and close the subscriber channels.
func (a *App) Run() error {
	go a.hub.Run()

	// Bench sink keeps the command surface usable with no vehicle
	// attached; a real deployment points ACTUATOR_ADDR at the link.
	session, err := a.gateway.Register(handlers.DefaultDroneID, drone.LoopbackSink{})
	if err != nil {
		return fmt.Errorf("register drone session: %w", err)
	}
	if err := session.Connect(context.Background()); err != nil {
		a.logger.Warning("Drone session not connected at startup: %v", err)
	}

	router := routes.SetupRoutes(routes.Deps{
		Config:   a.config,
		Logger:   a.logger,
		Registry: a.registry,
		Ingestor: a.ingestor,
		Store:    a.store,
		Hub:      a.hub,
		Gateway:  a.gateway,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	a.logger.Info("Field relay listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Results database: %s, journal: %s", a.config.DatabasePath, a.config.JournalPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutdown signal received")
	a.shutdown(server)
	return nil
}

func (a *App) shutdown(server *http.Server) {
	a.ingestor.Close()
	a.dispatcher.Shutdown(a.config.ShutdownGrace)
	a.gateway.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.logger.Warning("HTTP server shutdown: %v", err)
	}

	a.hub.Close()

	if err := a.store.Close(); err != nil {
		a.logger.Warning("Journal close: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warning("Database close: %v", err)
	}
	a.logger.Info("Field relay stopped")
}
