package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/lumenlater/lumen-later/api"
	"github.com/lumenlater/lumen-later/application"
	"github.com/lumenlater/lumen-later/config"
	"github.com/lumenlater/lumen-later/database"
	"github.com/lumenlater/lumen-later/domain/interfaces"
	"github.com/lumenlater/lumen-later/infrastructure"
	"github.com/lumenlater/lumen-later/repository"
)

// Run initializes and starts the service: database, event bus, HTTP API, and
// the bill sweep scheduler. It blocks until the context is cancelled.
func Run(ctx context.Context) error {
	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Event bus: NATS when configured, otherwise events are dropped.
	var realPublisher interfaces.EventPublisher = infrastructure.NoopPublisher{}
	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()

		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
		if err := natsPublisher.EnsureLedgerEventStream(); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		realPublisher = natsPublisher
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, func() interfaces.TransactionalEventPublisher {
		return infrastructure.NewTransactionalPublisher(realPublisher)
	})
	app := application.NewApp(uowFactory)

	scheduler := application.NewScheduler(app)
	if err := scheduler.Start(cfg.ExpireSweepSchedule, cfg.OverdueSweepSchedule); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer scheduler.Stop()

	server := api.NewServer(cfg.HTTPAddr, app, cfg.JWTSecret)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.WithField("environment", cfg.Environment).Info("Service is running")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	return nil
}
