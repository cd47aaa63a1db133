package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/ideaforge-backend/internal/db"
	"github.com/yungbote/ideaforge-backend/internal/observability"
	"github.com/yungbote/ideaforge-backend/internal/platform/envutil"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	theDB, err := openDatabase(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	clientset, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, clientset, reposet)
	handlerset := wireHandlers(log, serviceset)
	mw := wireMiddleware(log, serviceset)
	router := wireRouter(handlerset, mw)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Clients:  clientset,
		Repos:    reposet,
		Services: serviceset,
	}, nil
}

// openDatabase prefers Postgres; without POSTGRES_HOST it falls back to the
// single-instance sqlite store.
func openDatabase(log *logger.Logger) (*gorm.DB, error) {
	if envutil.String("POSTGRES_HOST", "") != "" {
		pg, err := db.NewPostgresService(log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err := pg.AutoMigrateAll(); err != nil {
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
		return pg.DB(), nil
	}

	log.Warn("POSTGRES_HOST not set, falling back to sqlite (single instance only)")
	lite, err := db.NewSqliteService(log)
	if err != nil {
		return nil, fmt.Errorf("init sqlite: %w", err)
	}
	if err := lite.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("sqlite automigrate: %w", err)
	}
	return lite.DB(), nil
}

// Start launches the background worker and tracing; idempotent.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: "ideaforge",
		Environment: a.Cfg.Environment,
		Version:     a.Cfg.Version,
	})

	a.Services.Generation.StartWorker(ctx)
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), envutil.Duration("SHUTDOWN_TIMEOUT", 5*time.Second))
		defer cancel()
		_ = a.otelShutdown(shutdownCtx)
		a.otelShutdown = nil
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
