// Package server assembles the gophauth application: storage, caches,
// notifiers, services and the HTTP API, and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	closers     []io.Closer
	httpServer  *httpapi.HTTPServer
	maintenance *services.MaintenanceService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []services.Option{services.WithMetrics(services.NewMetrics(reg))}

	if c.RedisAddr != "" {
		client, err := cache.Connect(ctx, c.RedisAddr)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.closers = append(app.closers, client)
		opts = append(opts, services.WithRevocationCache(cache.NewRevocationCache(client)))
	}

	var notifier notify.Notifier
	if len(c.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(notify.NewKafkaWriter(c.KafkaBrokers), c.NotificationTopic, logger)
		app.closers = append(app.closers, kn)
		notifier = kn
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	sessions := services.NewSessionService(db, rm, c, logger, opts...)
	authn := services.NewAuthenticator(db, rm, c, logger, opts...)
	recovery := services.NewRecoveryService(db, rm, notifier, c, logger, opts...)
	registration := services.NewRegistrationService(db, rm, recovery, c, logger)
	app.maintenance = services.NewMaintenanceService(db, rm, logger, opts...)

	app.httpServer = httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, sessions, recovery, registration, authn, app.maintenance, reg)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runPurgeWorker purges expired ledger rows every interval until ctx is done.
func runPurgeWorker(ctx context.Context, interval time.Duration, p httpapi.Purger, logger logging.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Purge(ctx); err != nil {
				logger.Error(ctx, "purge failed", "error", err)
			}
		}
	}
}

func (app *App) close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(ctx, "close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close error", "error", err)
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		runPurgeWorker(ctx, app.config.PurgeInterval, app.maintenance, app.logger.With("module", "purge_worker"))
	}()

	wg.Wait()

	app.close(context.Background())
	app.logger.Info(context.Background(), "App stopped")
}
