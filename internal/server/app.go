// Package server wires the feed backend together: database and migrations,
// the account service, storage clients and the HTTP API, plus graceful
// shutdown on OS signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkravets/kitafeed/internal/logging"
	"github.com/dkravets/kitafeed/internal/server/config"
	"github.com/dkravets/kitafeed/internal/server/httpapi"
	"github.com/dkravets/kitafeed/internal/server/repositories/repomanager"
	"github.com/dkravets/kitafeed/internal/server/storage"
	"github.com/dkravets/kitafeed/internal/server/users"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	router http.Handler
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	rm, err := repomanager.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	usersService := users.NewService(rm.Users(), rm.RefreshTokens(), c)
	presigner := storage.NewPresigner(c)
	objects := storage.NewObjectClient(c)

	api := httpapi.NewServer(logger, usersService,
		rm.Children(), rm.Posts(), rm.Comments(), rm.Media(), rm.Tickets(),
		presigner, objects)

	limiter := httpapi.NewIPRateLimiter(c.RateLimit, c.RateLimitWindow)
	router := httpapi.NewRouter(api, limiter)

	return &App{config: c, logger: logger, router: router}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "server error", "error", err)
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}
}
