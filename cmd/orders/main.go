package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Sashankstar/Food-order-tracking/internal/config"
	"github.com/Sashankstar/Food-order-tracking/internal/docstore"
	"github.com/Sashankstar/Food-order-tracking/internal/domain"
	"github.com/Sashankstar/Food-order-tracking/internal/lifecycle"
	"github.com/Sashankstar/Food-order-tracking/internal/menu"
	"github.com/Sashankstar/Food-order-tracking/internal/messaging"
	"github.com/Sashankstar/Food-order-tracking/internal/orders"
	"github.com/Sashankstar/Food-order-tracking/internal/telemetry"
)

type orderStore interface {
	orders.Store
	lifecycle.StatusStore
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("8081")
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireStore(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "orders", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("orders", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	store, catalog, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer closeStore()

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		catalog = menu.NewCachedCatalog(catalog, rdb, cfg.MenuCacheTTL, logger)
	}

	var createdPublisher orders.Publisher
	var statusPublisher lifecycle.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		created := messaging.NewProducer(cfg.KafkaBrokers, domain.TopicOrderCreated)
		defer func() { _ = created.Close() }()
		createdPublisher = created

		status := messaging.NewProducer(cfg.KafkaBrokers, domain.TopicOrderStatusChanged)
		defer func() { _ = status.Close() }()
		statusPublisher = status
	}

	simOpts := []lifecycle.Option{lifecycle.WithTimeUnit(cfg.LifecycleTimeUnit)}
	if statusPublisher != nil {
		simOpts = append(simOpts, lifecycle.WithPublisher(statusPublisher))
	}

	scheduler := lifecycle.NewScheduler()
	simulator, err := lifecycle.NewSimulator(store, scheduler, logger, simOpts...)
	if err != nil {
		logger.Error("failed to create lifecycle simulator", "error", err)
		os.Exit(1)
	}

	resumeCtx, cancelResume := context.WithTimeout(ctx, 30*time.Second)
	if _, err := simulator.Resume(resumeCtx); err != nil {
		logger.Error("failed to resume order lifecycle", "error", err)
	}
	cancelResume()

	service, err := orders.NewService(store, simulator, createdPublisher, logger)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}

	ordersHandler := orders.NewHandler(service, logger)
	menuHandler := menu.NewHandler(catalog, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api", telemetry.WithHTTPRoute(handleIndex))
	mux.HandleFunc("GET /api/menu", telemetry.WithHTTPRoute(menuHandler.HandleList))
	mux.HandleFunc("GET /api/orders", telemetry.WithHTTPRoute(ordersHandler.HandleList))
	mux.HandleFunc("POST /api/orders", telemetry.WithHTTPRoute(ordersHandler.HandleCreate))
	mux.HandleFunc("GET /api/orders/{id}", telemetry.WithHTTPRoute(ordersHandler.HandleGet))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.NewHandler(mux, "orders"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.Info("starting orders service", "port", cfg.Port, "driver", cfg.StoreDriver, "time_unit", simulator.TimeUnit())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if serr := scheduler.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("pending transitions did not finish", "error", serr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStores(ctx context.Context, cfg *config.Config) (orderStore, menu.Catalog, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := docstore.Connect(ctx, cfg.MongoURL)
		if err != nil {
			return nil, nil, nil, err
		}
		db := client.Database(cfg.MongoDatabase)

		store := docstore.NewOrderStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, nil, err
		}

		return store, docstore.NewMenuStore(db), func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		db, err := telemetry.OpenPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return orders.NewOrderRepository(db), menu.NewMenuRepository(db), func() { _ = db.Close() }, nil
	}
}

func handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "API"})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
