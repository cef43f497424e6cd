package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/audit"
	"github.com/example/room-scheduler/internal/config"
	httptransport "github.com/example/room-scheduler/internal/http"
	"github.com/example/room-scheduler/internal/persistence/sqlite"
	"github.com/example/room-scheduler/internal/recurrence"
	"github.com/example/room-scheduler/internal/scheduler"
)

func newServeCommand(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), state.cfg, state.logger)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		return err
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		logger.Error("failed to create audit publisher", "error", err)
		return err
	}
	if closer, ok := publisher.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil {
				logger.Error("failed to close audit publisher", "error", cerr)
			}
		}()
	}

	handler := newHandler(cfg, logger, storage, publisher, uuid.NewString, time.Now)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("scheduler API listening", "addr", server.Addr, "timezone", cfg.Timezone)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server encountered error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to shutdown server", "error", err)
		return err
	}
	logger.Info("scheduler API stopped")
	return nil
}

// newHandler wires the services over storage and returns the routed API.
func newHandler(cfg config.Config, logger *slog.Logger, storage *sqlite.Storage, publisher audit.Publisher, idGenerator func() string, now func() time.Time) http.Handler {
	engine := scheduler.NewEngine(recurrence.NewExpander(cfg.Location, cfg.MaxOccurrences))

	roomService := application.NewRoomServiceWithLogger(newRoomRepositoryAdapter(storage), publisher, idGenerator, now, logger)
	reservationService := application.NewReservationServiceWithLogger(
		newRoomRepositoryAdapter(storage),
		newBookingRepositoryAdapter(storage),
		newReservationRepositoryAdapter(storage),
		engine,
		publisher,
		idGenerator,
		now,
		logger,
	)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:        httptransport.NewRoomHandler(roomService, reservationService, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, cfg.Location, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recovery(logger),
			httptransport.RequesterIdentity(),
		},
		Logger: logger,
	})
}

// newPublisher returns a Kafka publisher when brokers are configured and a
// log publisher otherwise.
func newPublisher(cfg config.Config, logger *slog.Logger) (audit.Publisher, error) {
	if !cfg.AuditToKafka() {
		return audit.NewLogPublisher(logger), nil
	}
	publisher, err := audit.NewKafkaPublisher(audit.DefaultKafkaConfig(cfg.KafkaBrokers, cfg.AuditTopic), logger)
	if err != nil {
		return nil, err
	}
	logger.Info("audit events published to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.AuditTopic)
	return publisher, nil
}
