package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	_ "github.com/redmonkez12/book-catalog-api/docs" // Swagger docs
	"github.com/redmonkez12/book-catalog-api/internal/api"
	"github.com/redmonkez12/book-catalog-api/internal/auth"
	"github.com/redmonkez12/book-catalog-api/internal/catalog"
	"github.com/redmonkez12/book-catalog-api/internal/config"
	"github.com/redmonkez12/book-catalog-api/internal/database"
	"github.com/redmonkez12/book-catalog-api/internal/email"
	"github.com/redmonkez12/book-catalog-api/internal/graph"
	httpServer "github.com/redmonkez12/book-catalog-api/internal/http"
	"github.com/redmonkez12/book-catalog-api/internal/logging"
	"github.com/redmonkez12/book-catalog-api/internal/metrics"
	"github.com/redmonkez12/book-catalog-api/internal/ratelimit"
	"github.com/redmonkez12/book-catalog-api/internal/user"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), autoMigrate)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "create missing tables before serving")

	return cmd
}

func runServe(ctx context.Context, autoMigrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_format", cfg.Auth.TokenFormat,
		"password_hasher", cfg.Auth.PasswordHasher,
	)

	db, err := database.OpenPostgres(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if autoMigrate {
		if err := database.CreateSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		logger.Info("database schema ready")
	}

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	m := metrics.New()

	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FrontendURL,
		logger,
	)

	userStore, err := user.NewStore(user.NewRepository(db), newPasswordHasher(cfg.Auth), emailService, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize user store: %w", err)
	}

	tokenService, err := auth.NewTokenService(cfg.Auth.TokenFormat, cfg.Auth.SessionKey, cfg.Auth.SessionDuration)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	authHandler := auth.NewHandler(
		auth.NewService(userStore, tokenService),
		ratelimit.NewLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window),
		m,
		auth.CookieConfig{Domain: cfg.Auth.CookieDomain, Secure: cfg.Auth.CookieSecure},
	)

	authors := catalog.NewAuthorRepository(db)
	books := catalog.NewBookRepository(db)
	catalogHandler := api.NewCatalogHandler(
		catalog.NewService(authors, books),
		graph.NewResolver(authors, books, userStore, m),
	)

	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:           authHandler,
		Catalog:        catalogHandler,
		AuthMiddleware: auth.NewMiddleware(tokenService),
		Metrics:        m,
	}, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func newPasswordHasher(cfg config.AuthConfig) user.PasswordHasher {
	if cfg.PasswordHasher == config.HasherArgon2id {
		return user.NewArgon2Hasher()
	}
	return user.NewBcryptHasher(cfg.BcryptCost)
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
