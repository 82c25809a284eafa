package dsbplan

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/schooldashboard/dsbplan/aggregator"
	"github.com/schooldashboard/dsbplan/config"
	"github.com/schooldashboard/dsbplan/dsb"
	"github.com/schooldashboard/dsbplan/parser"
	"github.com/schooldashboard/dsbplan/store"
	"github.com/schooldashboard/dsbplan/utils"
)

// Version is reported by the health endpoint.
var Version = "dev"

// App holds the wired components of a running service.
type App struct {
	Config     config.AppConfig
	DB         *gorm.DB
	Client     *dsb.Client
	Parser     *parser.Parser
	Documents  *store.DocumentStore
	Cache      *store.ResponseCache
	Timetables *aggregator.TimetableService
	Aggregator *aggregator.Aggregator
	Logger     *zap.Logger
}

// NewApp opens the database and builds every component from cfg.
func NewApp(cfg config.AppConfig, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := store.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	client := dsb.NewClientFromConfig(cfg.DSB, logger)
	pageParser := parser.NewFromConfig(cfg.Parser, logger)
	documents := store.NewDocumentStore(db, logger)
	cache := store.NewResponseCache(db, cfg.Cache.MemorySize, logger)
	timetables := aggregator.NewTimetableService(client, cache, logger)
	agg := aggregator.New(aggregator.Options{
		Source:          timetables,
		Parser:          pageParser,
		Documents:       documents,
		Cache:           cache,
		PageConcurrency: cfg.Aggregator.PageConcurrency,
		Logger:          logger,
	})

	return &App{
		Config:     cfg,
		DB:         db,
		Client:     client,
		Parser:     pageParser,
		Documents:  documents,
		Cache:      cache,
		Timetables: timetables,
		Aggregator: agg,
		Logger:     logger,
	}, nil
}

// Handlers returns the REST handlers backed by the app.
func (a *App) Handlers() *Handlers {
	return &Handlers{
		Plans:      a.Aggregator,
		Timetables: a.Timetables,
		Cache:      a.Cache,
		Ping:       func(ctx context.Context) error { return store.Ping(ctx, a.DB) },
		Version:    Version,
		Logger:     a.Logger,
	}
}

// Scheduler returns a scheduler driving the aggregator with the configured timing.
func (a *App) Scheduler() *aggregator.Scheduler {
	return aggregator.NewScheduler(a.Aggregator,
		utils.Millis(a.Config.Scheduler.IntervalMS, 5*time.Minute),
		utils.Millis(a.Config.Scheduler.InitialDelayMS, 10*time.Second),
		a.Logger)
}

// Serve starts the scheduler and the HTTP server and blocks until shutdown.
func (a *App) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		a.Scheduler().Run(ctx)
		close(done)
	}()

	server := StartServer(a.Config.Server.Port, NewRouter(a.Handlers()), a.Logger)
	HandleGracefulShutdown(ctx, server, func() {
		cancel()
		<-done
	}, a.Logger)
}

// Close releases the database.
func (a *App) Close() error {
	return store.Close(a.DB)
}
