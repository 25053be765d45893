package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenpulse/internal/bot"
	"tokenpulse/internal/cache"
	"tokenpulse/internal/chart"
	"tokenpulse/internal/config"
	"tokenpulse/internal/db"
	"tokenpulse/internal/handler"
	"tokenpulse/internal/job"
	"tokenpulse/internal/provider"
	"tokenpulse/internal/repository"
	"tokenpulse/internal/service"
	"tokenpulse/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "tokenpulse/docs"
)

var (
	loadEnvFunc              = godotenv.Load
	loadConfigFunc           = config.Load
	connectPostgresFunc      = db.Connect
	newRedisFunc             = cache.NewClient
	initTracerFunc           = tracing.InitTracer
	newSnapshotRepoFunc      = repository.NewSnapshotRepository
	newCoinGeckoProviderFunc = func(url, apiKey string, tracer trace.Tracer) service.MarketProvider {
		return provider.NewCoinGeckoProvider(url, apiKey, tracer)
	}
	newChartBuilderFunc     = chart.NewBuilder
	newPipelineServiceFunc  = service.NewPipelineService
	newRunStatusCacheFunc   = cache.NewRunStatusCache
	newTelegramNotifierFunc = bot.NewTelegramNotifier
	newRunControllerFunc    = job.NewRunController
	startControllerFunc     = func(c *job.RunController, ctx context.Context) { go c.Start(ctx) }
	newHandlerFunc          = handler.New
	newRouterFunc           = gin.Default
	setupSignalNotify       = signal.Notify
	waitForSignalFunc       = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc     = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc  = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           TokenPulse API
// @version         1.0
// @description     A market data ETL service with OpenTelemetry tracing.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Init Postgres
	var pool repository.PgxPool
	if cfg.DatabaseURL != "" {
		p, err := connectPostgresFunc(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to Postgres: %v", err)
		}
		defer p.Close()
		pool = p
	} else {
		log.Println("Postgres disabled, snapshots will not be persisted")
	}

	// Init Redis
	var statusClient cache.RedisClient
	if rc, err := newRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Printf("Redis unavailable, run status will not survive restarts: %v", err)
	} else {
		statusClient = rc
	}

	// Create repository and run migrations
	snapshotRepo := newSnapshotRepoFunc(pool, tracer)
	if pool != nil {
		if err := snapshotRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	// Create provider, chart builder and pipeline service
	cgProvider := newCoinGeckoProviderFunc(cfg.CoinGeckoAPIURL, cfg.CoinGeckoAPIKey, tracer)
	chartBuilder := newChartBuilderFunc(snapshotRepo, cfg.ChartPath, tracer)
	window := time.Duration(cfg.ChartWindowHours) * time.Hour
	pipeline := newPipelineServiceFunc(tracer, cgProvider, snapshotRepo, chartBuilder, cfg.TopN, window, cfg.PublicDir)

	// Telegram notifications are optional
	var notifier job.Notifier
	if tn, err := newTelegramNotifierFunc(cfg.TelegramBotToken, cfg.TelegramChatID); err != nil {
		log.Printf("Telegram notifier disabled: %v", err)
	} else if tn != nil {
		notifier = tn
	}

	// Start run controller (background goroutine, stopped by ctx cancel)
	statusCache := newRunStatusCacheFunc(statusClient, tracer)
	controller := newRunControllerFunc(tracer, pipeline, statusCache, notifier, cfg.RunIntervalSecs)
	startControllerFunc(controller, ctx)

	// Create handlers and routes
	h := newHandlerFunc(tracer, controller, pipeline.PublishedPath(), cfg.TriggerAPIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("tokenpulse"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
