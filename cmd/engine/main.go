package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/Indu2002-se/AuctionWeb/internal/clock"
	"github.com/Indu2002-se/AuctionWeb/internal/config"
	"github.com/Indu2002-se/AuctionWeb/internal/httpapi"
	"github.com/Indu2002-se/AuctionWeb/internal/notify"
	"github.com/Indu2002-se/AuctionWeb/internal/service"
	"github.com/Indu2002-se/AuctionWeb/internal/store"
	"github.com/Indu2002-se/AuctionWeb/internal/store/memory"
	"github.com/Indu2002-se/AuctionWeb/internal/store/redisstore"
	"github.com/Indu2002-se/AuctionWeb/internal/sweeper"
)

// Config holds the engine configuration.
type Config struct {
	ServerAddr    string
	StoreBackend  string // "redis" or "memory"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NatsURL       string
	SweepInterval time.Duration
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:    config.GetEnv("SERVER_ADDR", ":8080"),
		StoreBackend:  config.GetEnv("STORE_BACKEND", "redis"),
		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
		NatsURL:       config.GetEnv("NATS_URL", "nats://localhost:4222"),
		SweepInterval: config.GetEnvDuration("SWEEP_INTERVAL_SECONDS", 60*time.Second),
	}
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := loadConfig()
	clk := clock.NewSystem()

	log.Info("starting auction engine", "addr", cfg.ServerAddr, "store", cfg.StoreBackend)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		log.Error("failed to connect to Redis", "addr", cfg.RedisAddr, "err", err)
		os.Exit(1)
	}
	cancelPing()

	natsConn, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		log.Error("failed to connect to NATS", "url", cfg.NatsURL, "err", err)
		os.Exit(1)
	}
	defer natsConn.Close()

	var auctionStore store.AuctionStore
	switch cfg.StoreBackend {
	case "memory":
		auctionStore = memory.New(clk)
	default:
		auctionStore = redisstore.NewFromClient(redisClient)
	}

	notifier, err := notify.NewPublisher(redisClient, natsConn, clk, log)
	if err != nil {
		log.Error("failed to create publisher", "err", err)
		os.Exit(1)
	}

	ledger := service.NewBidLedger(auctionStore, notifier, clk, log)

	swp := sweeper.New(auctionStore, notifier, clk, log, sweeper.WithInterval(cfg.SweepInterval))
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go swp.Run(sweepCtx)

	handler := httpapi.NewHandler(ledger, log)
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler.SetupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("engine listening", "addr", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "err", err)
	}
	log.Info("stopped")
}
