package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/authd/internal/db"
	"github.com/nkiryanov/authd/internal/handlers"
	"github.com/nkiryanov/authd/internal/handlers/middleware"
	"github.com/nkiryanov/authd/internal/logger"
	"github.com/nkiryanov/authd/internal/repository/postgres"
	"github.com/nkiryanov/authd/internal/repository/redisstore"
	"github.com/nkiryanov/authd/internal/service/auth"
	"github.com/nkiryanov/authd/internal/service/user"
	"github.com/nkiryanov/authd/internal/token"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Pruner     *token.Pruner
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories. Users always live in postgres; the refresh
	// registry and blacklist move to redis when a redis address is configured
	storage := postgres.NewStorage(pool)

	var registry token.RefreshRegistry = storage.Registry()
	var blacklist interface {
		token.Blacklist
		token.BlacklistWriter
		token.PrunableBlacklist
	} = storage.Blacklist()

	if c.RedisAddr != "" {
		tokenStore := redisstore.NewTokenStore(redis.NewClient(&redis.Options{Addr: c.RedisAddr}), "")
		registry = tokenStore
		blacklist = tokenStore
	}

	// Initialize token machinery
	codec, err := token.NewCodec(token.CodecConfig{
		SignKey: c.SignKey,
		Leeway:  time.Duration(c.LeewaySeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}

	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessTTL:  time.Duration(c.AccessSeconds) * time.Second,
		RefreshTTL: time.Duration(c.RefreshSeconds) * time.Second,
	}, codec, registry)
	if err != nil {
		return nil, fmt.Errorf("error while creating token issuer. Err: %w", err)
	}

	validator, err := token.NewValidator(codec, storage.User(), blacklist)
	if err != nil {
		return nil, fmt.Errorf("error while creating token validator. Err: %w", err)
	}

	rotator, err := token.NewRotator(codec, validator, issuer, storage.User(), blacklist)
	if err != nil {
		return nil, fmt.Errorf("error while creating token rotator. Err: %w", err)
	}

	// Initialize services
	userService := user.NewService(auth.DefaultHasher, storage.User())
	authService, err := auth.NewService(auth.Config{}, storage.User(), issuer, validator, rotator)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	// Initialize handlers
	authHandler := handlers.NewAuth(authService)
	userHandler := handlers.NewUsers(userService)

	mux := handlers.NewRouter(
		authHandler,
		userHandler,
		middleware.AuthMiddleware(authService),
		middleware.AdminMiddleware(),
		middleware.LoggerMiddleware(logger),
	)

	pruner := token.NewPruner(blacklist, time.Duration(c.PruneSeconds)*time.Second, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Pruner:     pruner,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go s.Pruner.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			// Consider to user logger dependency
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		// Consider to user logger dependency
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server")
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
