package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"tokenpulse/internal/bot"
	"tokenpulse/internal/config"
	"tokenpulse/internal/domain"
	"tokenpulse/internal/job"
	"tokenpulse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origNewRedis := newRedisFunc
	origInitTracer := initTracerFunc
	origNewProvider := newCoinGeckoProviderFunc
	origNewNotifier := newTelegramNotifierFunc
	origStartController := startControllerFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			TopN:             10,
			ChartWindowHours: 24,
			ChartPath:        "chart.html",
			PublicDir:        "public",
			Port:             8080,
		}
	}
	newRedisFunc = func(context.Context, string) (*redis.Client, error) {
		return nil, errors.New("redis disabled in test")
	}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newCoinGeckoProviderFunc = func(string, string, trace.Tracer) service.MarketProvider {
		return stubMarketProvider{}
	}
	newTelegramNotifierFunc = func(string, int64) (*bot.TelegramNotifier, error) { return nil, nil }
	startControllerFunc = func(*job.RunController, context.Context) {}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		newRedisFunc = origNewRedis
		initTracerFunc = origInitTracer
		newCoinGeckoProviderFunc = origNewProvider
		newTelegramNotifierFunc = origNewNotifier
		startControllerFunc = origStartController
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}

type stubMarketProvider struct{}

func (stubMarketProvider) FetchTopMarkets(ctx context.Context, limit int) ([]domain.CoinSnapshot, error) {
	return []domain.CoinSnapshot{}, nil
}
