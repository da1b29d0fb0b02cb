package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"dinepos/m/internal/api"
	"dinepos/m/internal/config"
	"dinepos/m/internal/database"
	"dinepos/m/internal/delivery"
	"dinepos/m/internal/logging"
	"dinepos/m/internal/metrics"
	"dinepos/m/internal/migrations"
	"dinepos/m/internal/notify"
	"dinepos/m/internal/order"
	"dinepos/m/internal/seed"
	"dinepos/m/internal/shift"
	"dinepos/m/internal/tracking"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger.Info().Stringer("config", cfg).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, logger)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

// run owns every resource it opens, so deferred cleanup runs on all paths.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("database connect: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := seed.EnsureAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if n, err := seed.LoadMenuFile(ctx, db, cfg.MenuCSV); err != nil {
		log.Error().Err(err).Str("path", cfg.MenuCSV).Msg("menu import failed")
	} else if n > 0 {
		log.Info().Int("products", n).Msg("menu imported")
	}

	rules, err := delivery.LoadRules(cfg.DeliveryRules)
	if err != nil {
		return fmt.Errorf("delivery rules %s: %w", cfg.DeliveryRules, err)
	}
	engine := delivery.NewEngine(rules)

	var pub notify.Publisher = notify.Nop{}
	if cfg.AMQPURL != "" {
		amqpPub, err := notify.DialAMQP(cfg.AMQPURL, logger)
		if err != nil {
			log.Error().Err(err).Msg("amqp unavailable, status events disabled")
		} else {
			pub = amqpPub
		}
	}
	defer pub.Close()

	m := metrics.New()
	handler := api.New(api.Deps{
		DB:            db,
		Secret:        cfg.Secret,
		Orders:        order.NewService(db, engine, pub, m, logger),
		Shifts:        shift.NewService(db, m, logger),
		Delivery:      delivery.NewService(db, engine, m, logger),
		Tracking:      tracking.NewService(db, cfg.TrackingBaseURL, m),
		Metrics:       m,
		Logger:        logger,
		CORSOrigins:   cfg.CORSOrigins,
		UrgentAfter:   cfg.KDSUrgentAfter,
		ReceiptHeader: "DinePOS",
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("DinePOS server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
