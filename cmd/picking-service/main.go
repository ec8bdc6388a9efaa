package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medflow/picking-service/internal/picking/consumers"
	"github.com/medflow/picking-service/internal/picking/events"
	"github.com/medflow/picking-service/internal/picking/handler"
	"github.com/medflow/picking-service/internal/picking/repository"
	"github.com/medflow/picking-service/internal/picking/service"
	"github.com/medflow/picking-service/pkg/config"
	"github.com/medflow/picking-service/pkg/database"
	"github.com/medflow/picking-service/pkg/httputil"
	"github.com/medflow/picking-service/pkg/logger"
	"github.com/medflow/picking-service/pkg/messaging"
	"github.com/medflow/picking-service/pkg/metrics"
	"github.com/medflow/picking-service/pkg/resilience"
	"github.com/sony/gobreaker"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(events.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(events.ServiceName, cfg.Server.Environment)
	log.Info().Str("store", cfg.Picking.Store).Msg("starting Picking Service")

	m := metrics.New(events.ServiceName)

	// Stock store
	var (
		db    *database.DB
		store service.LotFinder
	)
	switch cfg.Picking.Store {
	case config.StoreMemory:
		repo, err := repository.LoadSeedFile(cfg.Picking.SeedFile)
		if err != nil {
			log.Fatal().Err(err).Str("seed_file", cfg.Picking.SeedFile).Msg("failed to load stock seed file")
		}
		log.Info().Int("lots", repo.Len()).Msg("serving stock from seed file")
		store = repo
	default:
		db, err = database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		store = repository.NewStockLotRepository(db)
	}

	finder := repository.NewBreakerLotFinder(store, resilience.Config{
		Name:             repository.BreakerName,
		MaxRequests:      cfg.Picking.Breaker.MaxRequests,
		Interval:         cfg.Picking.Breaker.Interval,
		Timeout:          cfg.Picking.Breaker.Timeout,
		FailureThreshold: cfg.Picking.Breaker.FailureThreshold,
		OnStateChange: func(name string, state gobreaker.State) {
			m.SetCircuitBreakerState(name, resilience.StateValue(state))
		},
	}, log)
	m.SetCircuitBreakerState(repository.BreakerName, resilience.StateValue(finder.Breaker().State()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Messaging is optional; without it plans are served over HTTP only
	var (
		rmq       *messaging.RabbitMQ
		publisher *events.PickingEventPublisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		if err := rmq.DeclareDeadLetterQueue(events.ServiceName); err != nil {
			log.Fatal().Err(err).Msg("failed to declare dead letter queue")
		}

		publisher, err = events.NewPickingEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	}

	planner := service.NewPlanService(finder, service.Config{
		PerPickSeconds:    cfg.Picking.PerPickSeconds,
		LookupConcurrency: cfg.Picking.LookupConcurrency,
	}, publisher, m, log)

	if rmq != nil {
		planConsumer, err := consumers.NewPlanRequestConsumer(rmq, planner, publisher, cfg.Picking.RequestTimeout, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create plan request consumer")
		}
		if err := planConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start plan request consumer")
		}
		go rmq.Watch(ctx, planConsumer.Start)
	}

	// Initialize handlers
	pickingHandler := handler.NewPickingHandler(planner, log)
	healthHandler := handler.NewHealthHandler(events.ServiceName, db, rmq, finder.Breaker())

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Tenant-ID", "X-Tenant-Slug"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware(m))

	// Health check and metrics
	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", m.Handler())

	// API routes
	r.Route("/api/v1/wms", func(r chi.Router) {
		r.Use(httputil.TenantMiddleware) // Extract tenant context from headers
		r.Use(httputil.Timeout(cfg.Picking.RequestTimeout))

		r.Post("/optimize-route", pickingHandler.OptimizeRoute)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
