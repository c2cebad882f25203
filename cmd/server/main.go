package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flexprice/staffdesk/internal/api"
	v1 "github.com/flexprice/staffdesk/internal/api/v1"
	"github.com/flexprice/staffdesk/internal/backend"
	"github.com/flexprice/staffdesk/internal/cache"
	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/sentry"
	"github.com/flexprice/staffdesk/internal/service"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/flexprice/staffdesk/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

const shutdownTimeout = 10 * time.Second

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			provideCache,

			// Backends
			backend.NewFactory,
			provideBackends,

			// Services
			service.NewSessionManager,
			service.NewExportService,

			// API
			provideHandlers,
			api.NewRouter,
		),
		sentry.Module(),
		fx.Invoke(warmDefaultBackend, startAPIServer),
	)
	app.Run()
}

func provideCache(cfg *config.Configuration, log *logger.Logger) cache.Cache {
	return cache.Initialize(cfg, log)
}

func provideBackends(f *backend.Factory) service.Backends {
	return f
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	sessions *service.SessionManager,
	export *service.ExportService,
) api.Handlers {
	return api.Handlers{
		Health:   v1.NewHealthHandler(logger),
		Backend:  v1.NewBackendHandler(sessions, logger),
		Employee: v1.NewEmployeeHandler(sessions, logger),
		Export:   v1.NewExportHandler(sessions, export, logger),
		Image:    v1.NewImageHandler(cfg, sessions, logger),
	}
}

// warmDefaultBackend builds the default adapter at startup so a bad
// configuration fails the boot instead of the first request
func warmDefaultBackend(lc fx.Lifecycle, cfg *config.Configuration, f *backend.Factory, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			repo, err := f.Get(ctx, cfg.Backend.Default)
			if err != nil {
				return err
			}
			log.Infow("default backend ready",
				"backend", cfg.Backend.Default,
				"available", f.Available(),
				"mock", repo.Capabilities().Mock)
			return nil
		},
	})
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address, "mode", cfg.Deployment.Mode)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})

	if cfg.Deployment.Mode == types.ModeLocal {
		log.Infow("local mode: sheet backend runs in memory unless sheet.url is set", "sheet_mock", cfg.Sheet.IsMock())
	}
}
