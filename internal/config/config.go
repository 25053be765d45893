package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	CoinGeckoAPIURL string
	CoinGeckoAPIKey string
	DatabaseURL     string
	RedisURL        string

	TopN             int
	ChartWindowHours int
	ChartPath        string
	PublicDir        string

	Port            int
	RunIntervalSecs int
	TriggerAPIKey   string

	TelegramBotToken string
	TelegramChatID   int64
}

func Load() *Config {
	cfg := &Config{
		CoinGeckoAPIURL:  strings.TrimSpace(os.Getenv("COINGECKO_API_URL")),
		CoinGeckoAPIKey:  strings.TrimSpace(os.Getenv("COINGECKO_API_KEY")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TriggerAPIKey:    strings.TrimSpace(os.Getenv("TRIGGER_API_KEY")),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.CoinGeckoAPIKey == "" {
		log.Println("Warning: COINGECKO_API_KEY not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.TopN = 100
	if v := os.Getenv("TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TopN = n
		} else {
			log.Printf("Warning: invalid TOP_N=%q, defaulting to 100", v)
		}
	}

	cfg.ChartWindowHours = 24
	if v := os.Getenv("CHART_WINDOW_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChartWindowHours = n
		}
	}

	cfg.ChartPath = strings.TrimSpace(os.Getenv("CHART_PATH"))
	if cfg.ChartPath == "" {
		cfg.ChartPath = "token_price_chart.html"
	}

	cfg.PublicDir = strings.TrimSpace(os.Getenv("PUBLIC_DIR"))
	if cfg.PublicDir == "" {
		cfg.PublicDir = "public"
	}

	cfg.Port = 8080
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Port = n
		}
	}

	cfg.RunIntervalSecs = 0
	if v := strings.TrimSpace(os.Getenv("RUN_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RunIntervalSecs = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		} else {
			log.Printf("Warning: invalid TELEGRAM_CHAT_ID=%q, notifications disabled", v)
		}
	}

	return cfg
}
