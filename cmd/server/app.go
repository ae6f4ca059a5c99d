package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Simplici0/printdesk/internal/auth"
	"github.com/Simplici0/printdesk/internal/config"
	"github.com/Simplici0/printdesk/internal/db"
	"github.com/Simplici0/printdesk/internal/metrics"
	"github.com/Simplici0/printdesk/internal/migrations"
	"github.com/Simplici0/printdesk/internal/repository"
	"github.com/Simplici0/printdesk/internal/store"
)

// appModule provides every component of the server. The HTTP listener is
// started by the invoke in newApp.
var appModule = fx.Module("printdesk",
	fx.Provide(
		openDatabase,
		newMetrics,
		newStore,
		newRepository,
		newSessions,
		newServer,
	),
	fx.Invoke(bootstrap),
)

func newApp(cfg config.Config, logger *zap.Logger) *fx.App {
	return fx.New(
		fx.Supply(cfg, logger),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		appModule,
		fx.Invoke(registerHTTP),
	)
}

func openDatabase(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*sql.DB, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrations.Up(context.Background(), database); err != nil {
		database.Close()
		return nil, fmt.Errorf("run database migrations: %w", err)
	}
	logger.Info("database ready", zap.String("path", cfg.DBPath))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return database.Close()
		},
	})
	return database, nil
}

func newMetrics(cfg config.Config) *metrics.Metrics {
	return metrics.New(metrics.Config{ServiceName: "printdesk", Environment: cfg.AppEnv})
}

func newStore(database *sql.DB, cfg config.Config, m *metrics.Metrics, logger *zap.Logger) *store.Store {
	logger = logger.Named("store")
	return store.New(
		statePersistence(database, cfg),
		store.WithLogger(logger),
		store.WithObserver(m),
		store.WithThemeApplier(themeApplier(m, logger)),
	)
}

// themeApplier publishes the applied theme. The server renders no markup,
// so the gauge is where the theme shows up.
func themeApplier(m *metrics.Metrics, logger *zap.Logger) func(dark bool) {
	return func(dark bool) {
		m.ThemeApplied(dark)
		logger.Debug("theme applied", zap.Bool("dark", dark))
	}
}

// statePersistence keeps the state snapshot in the database unless
// STATE_PATH points at a file.
func statePersistence(database *sql.DB, cfg config.Config) store.Persistence {
	if cfg.StatePath != "" {
		return store.FilePersistence{Path: cfg.StatePath}
	}
	return store.NewKVPersistence(database, cfg.StateKey)
}

func newRepository(database *sql.DB, logger *zap.Logger) *repository.Repository {
	return repository.New(database, repository.ContextOwner, logger.Named("repository"))
}

func newSessions(cfg config.Config) *auth.Sessions {
	sessions := auth.NewSessions(cfg.SessionSecret)
	sessions.Secure = cfg.IsProduction()
	return sessions
}

// bootstrap applies the configured locale and registers the admin account.
func bootstrap(st *store.Store, cfg config.Config, logger *zap.Logger) error {
	if cfg.DefaultLocale != "" {
		st.ApplyDetectedLocale(cfg.DefaultLocale)
	}
	return ensureAdminUser(st, cfg, logger)
}

func registerHTTP(lc fx.Lifecycle, cfg config.Config, srv *server, logger *zap.Logger) {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", httpServer.Addr, err)
			}
			logger.Info("listening", zap.String("addr", httpServer.Addr))
			go func() {
				if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}
