// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/denemeapp/kpss-backend/internal/admin"
	"github.com/denemeapp/kpss-backend/internal/auth"
	"github.com/denemeapp/kpss-backend/internal/catalog"
	"github.com/denemeapp/kpss-backend/internal/checkout"
	"github.com/denemeapp/kpss-backend/internal/claims"
	"github.com/denemeapp/kpss-backend/internal/config"
	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/docstore"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
	"github.com/denemeapp/kpss-backend/internal/exam"
	"github.com/denemeapp/kpss-backend/internal/health"
	"github.com/denemeapp/kpss-backend/internal/library"
	"github.com/denemeapp/kpss-backend/internal/middleware"
	"github.com/denemeapp/kpss-backend/internal/notification"
	"github.com/denemeapp/kpss-backend/internal/order"
	"github.com/denemeapp/kpss-backend/internal/payment"
	"github.com/denemeapp/kpss-backend/internal/server"
	"github.com/denemeapp/kpss-backend/internal/tokencache"
	"github.com/denemeapp/kpss-backend/internal/user"
	"github.com/denemeapp/kpss-backend/internal/webhook"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	generateKeys := flag.Bool("generate-keys", false, "write a new ES256 key pair to the configured JWT paths and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	if *generateKeys {
		if err := writeKeyPair(*configPath); err != nil {
			slog.Error("key generation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := core.Migrate(ctx, db.DB, logger); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	mongo, err := core.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	logger.Info("mongo connected",
		"database", cfg.Mongo.Database,
		"max_pool_size", cfg.Mongo.MaxPoolSize,
	)
	tx := docstore.NewMongoTransactor(mongo.Client)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	sessionStore := auth.NewSessionStore(db.DB)
	authSvc := auth.NewService(sessionStore, jwtManager, userSvc, redis.Client)
	authHandler := auth.NewHandler(authSvc)

	entitlementStore := entitlement.NewMongoStore(mongo.Collection(docstore.CollectionUsers))
	claimsSync := claims.NewSynchronizer(entitlementStore, authSvc, logger)
	entitlementSvc := entitlement.NewService(
		entitlementStore,
		tx,
		claimsSync,
		entitlement.DefaultRevokePolicy(cfg.Entitlements.RevokeOnExtend),
		logger,
	)
	entitlementHandler := entitlement.NewHandler(entitlementSvc)

	planRepo := catalog.NewMongoRepository(mongo.Collection(docstore.CollectionPlans))
	catalogHandler := catalog.NewHandler(catalog.NewService(planRepo, logger))

	orderRepo := order.NewMongoRepository(mongo.Collection(docstore.CollectionOrders))
	orderHandler := order.NewHandler(orderRepo)

	provider, signatureHeader, err := newPaymentProvider(cfg, logger)
	if err != nil {
		return err
	}

	checkoutSvc := checkout.NewService(
		planRepo,
		orderRepo,
		provider,
		cfg.Checkout.CallbackURL,
		logger,
	)
	checkoutHandler := checkout.NewHandler(checkoutSvc, userSvc)

	reconciler := webhook.NewReconciler(orderRepo, entitlementStore, tx, claimsSync, logger)
	webhookHandler := webhook.NewHandler(reconciler, provider, signatureHeader)

	examRepo := exam.NewMongoRepository(mongo.Collection(docstore.CollectionExams))
	examHandler := exam.NewHandler(exam.NewService(examRepo, entitlementSvc, logger))

	objectStore, err := library.NewS3Store(ctx, cfg.S3)
	if err != nil {
		return err
	}
	libraryRepo := library.NewMongoRepository(mongo.Collection(docstore.CollectionLibrary))
	libraryHandler := library.NewHandler(library.NewService(
		libraryRepo,
		objectStore,
		entitlementSvc,
		cfg.S3.PresignExpiry,
		logger,
	))

	sender, err := newPushSender(ctx, cfg.Push, logger)
	if err != nil {
		return err
	}
	deviceRepo := notification.NewMongoRepository(mongo.Collection(docstore.CollectionDevices))
	notificationHandler := notification.NewHandler(
		notification.NewService(deviceRepo, sender, logger),
	)

	healthHandler := health.NewHandler(db, redis, mongo)

	adminHandler := admin.NewHandler(
		admin.Postgres(db.Ping, db.Stats),
		admin.Redis(redis.Ping, redis.PoolStats),
		admin.Mongo(mongo.Ping, mongo.DB),
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.Every(
				cfg.RateLimit.Window,
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen:   true,
			BypassFunc: func(r *http.Request) bool {
				return strings.HasPrefix(r.URL.Path, "/v1/webhooks/")
			},
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		webhookHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(authSvc))
			r.Use(middleware.TieredRateLimiter(redis.Client, middleware.DefaultTiers))

			authHandler.RegisterRoutes(r, authenticator)

			r.Post("/users", authHandler.Register)

			userHandler.RegisterRoutes(r, authenticator)
			userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

			entitlementHandler.RegisterRoutes(r, authenticator)
			entitlementHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

			catalogHandler.RegisterRoutes(r)
			catalogHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

			checkoutHandler.RegisterRoutes(r, authenticator)
			orderHandler.RegisterRoutes(r, authenticator)

			examHandler.RegisterRoutes(r, authenticator)
			examHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

			libraryHandler.RegisterRoutes(r, authenticator)
			libraryHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

			notificationHandler.RegisterRoutes(r, authenticator)
			notificationHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

			adminHandler.RegisterRoutes(r, authenticator, adminOnly)
		})
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := mongo.Close(shutdownCtx); err != nil {
		logger.Error("mongo close error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// newPaymentProvider returns Paddle when an API key is configured. Outside
// production a missing key falls back to the fake provider so checkout can
// be driven locally with signed test webhooks.
func newPaymentProvider(
	cfg *config.Config,
	logger *slog.Logger,
) (payment.Provider, string, error) {
	if cfg.Paddle.APIKey != "" {
		p, err := payment.NewPaddle(cfg.Paddle)
		if err != nil {
			return nil, "", err
		}
		logger.Info("payment provider initialized",
			"provider", p.Name(),
			"environment", cfg.Paddle.Environment,
		)
		return p, payment.PaddleSignatureHeader, nil
	}

	secret := cfg.Paddle.WebhookSecret
	if secret == "" {
		secret = "local-webhook-secret"
	}
	logger.Warn("PADDLE_API_KEY not set, using fake payment provider",
		"webhook_header", payment.FakeSignatureHeader,
	)
	return payment.NewFake(secret), payment.FakeSignatureHeader, nil
}

func newPushSender(
	ctx context.Context,
	cfg config.PushConfig,
	logger *slog.Logger,
) (notification.Sender, error) {
	if !cfg.Enabled {
		logger.Info("push delivery disabled, notifications are logged only")
		return notification.LogSender{Logger: logger}, nil
	}

	fetcher, err := notification.NewGoogleFetcher(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	tokens := tokencache.New(fetcher, cfg.TokenTTL, cfg.RefreshMargin, logger)
	logger.Info("push delivery enabled",
		"project_id", cfg.ProjectID,
		"token_ttl", cfg.TokenTTL,
	)
	sender, err := notification.NewFCMSender(ctx, cfg.ProjectID, tokens, logger)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

func writeKeyPair(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
		return err
	}

	slog.Info("JWT key pair written",
		"private_key", cfg.JWT.PrivateKeyPath,
		"public_key", cfg.JWT.PublicKeyPath,
	)
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
