package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"

	_ "github.com/tair/clinic-dispensary/docs"
	"github.com/tair/clinic-dispensary/internal/config"
	"github.com/tair/clinic-dispensary/internal/dispensary"
	"github.com/tair/clinic-dispensary/internal/dispensary/catalog"
	grpcDelivery "github.com/tair/clinic-dispensary/internal/dispensary/delivery/grpc"
	httpDelivery "github.com/tair/clinic-dispensary/internal/dispensary/delivery/http"
	"github.com/tair/clinic-dispensary/internal/dispensary/repository"
	"github.com/tair/clinic-dispensary/internal/dispensary/usecase/command"
	"github.com/tair/clinic-dispensary/kafka"
	"github.com/tair/clinic-dispensary/pkg/auth"
	"github.com/tair/clinic-dispensary/pkg/database"
	"github.com/tair/clinic-dispensary/pkg/lock"
	"github.com/tair/clinic-dispensary/pkg/logger"
	"github.com/tair/clinic-dispensary/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msg("Starting dispensary service")

	// Initialize tracer
	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.ServiceName,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Logger.Error().Err(err).Msg("Dispensary service stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
	}
	logger.Logger.Info().Msg("Dispensary service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Logger.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connected")
	}

	var cache catalog.Cache = catalog.NewMapCache()
	if redisClient != nil {
		cache = catalog.NewRedisCache(redisClient, cfg.Redis.CacheTTL)
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Lock.Backend == "redis" {
		locker = lock.NewRedisLocker(redisClient, "dispensary:lock:", cfg.Lock.TTL)
	}

	var events command.EventPublisher
	if cfg.Kafka.Enabled {
		publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		events = publisher
	}

	svc, err := dispensary.InitializeService(db, locker, cache, events, dispensary.AllocationSettings{
		SkipExpired: cfg.Allocation.SkipExpired,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	tokens := auth.NewManager(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer)
	httpServer := newHTTPServer(cfg, svc, tokens, redisClient, sqlDB.PingContext)
	grpcServer := grpcDelivery.NewServer(svc.GRPC, tokens)
	reflection.Register(grpcServer)

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer, err = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{cfg.Kafka.QuarantineTopic})
		if err != nil {
			return err
		}
		consumer.HandleQuarantineRequested(svc.Quarantine.HandleRequest)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Logger.Info().
			Str("port", cfg.Server.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			return fmt.Errorf("failed to listen on grpc port: %w", err)
		}
		logger.Logger.Info().Str("port", cfg.Server.GRPCPort).Msg("gRPC server started")
		return grpcServer.Serve(lis)
	})

	if consumer != nil {
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Logger.Info().Msg("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewGormConnection(database.Config{
		Driver:     cfg.Database.Driver,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		DBName:     cfg.Database.Name,
		SSLMode:    cfg.Database.SSLMode,
		SQLitePath: cfg.Database.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := repository.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Logger.Info().Str("driver", cfg.Database.Driver).Msg("Database initialized successfully")
	return db, nil
}

func newHTTPServer(cfg *config.Config, svc *dispensary.Service, tokens *auth.Manager, redisClient redis.UniversalClient, ping func(context.Context) error) *http.Server {
	router := mux.NewRouter()

	middlewareConfig := httpDelivery.DefaultMiddlewareConfig()
	middlewareConfig.TimeoutDuration = cfg.Server.RequestTimeout
	httpDelivery.RegisterMiddlewares(router, middlewareConfig)

	var apiMiddlewares []mux.MiddlewareFunc
	if cfg.RateLimit.Enabled && redisClient != nil {
		limiter := httpDelivery.NewRateLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		apiMiddlewares = append(apiMiddlewares, limiter.Middleware)
	}

	svc.HTTP.RegisterRoutes(router, httpDelivery.AuthMiddleware(tokens), apiMiddlewares...)
	httpDelivery.RegisterHealthCheck(router, ping)
	httpDelivery.RegisterSwaggerDocs(router, httpSwagger.WrapHandler)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      httpDelivery.SetupCORS(middlewareConfig)(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
