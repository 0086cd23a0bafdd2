package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chess-arena/arena-server/internal/arena"
	"github.com/chess-arena/arena-server/internal/broadcast"
	appcfg "github.com/chess-arena/arena-server/internal/config"
	"github.com/chess-arena/arena-server/internal/lobby"
	"github.com/chess-arena/arena-server/internal/matchmaking"
	"github.com/chess-arena/arena-server/internal/movepick"
	"github.com/chess-arena/arena-server/internal/obslog"
	"github.com/chess-arena/arena-server/internal/rules"
	"github.com/chess-arena/arena-server/internal/store"
	"github.com/chess-arena/arena-server/internal/transport"
)

func main() {
	_ = godotenv.Load()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	obslog.InitFromEnv()
	defer obslog.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := &arena.Deps{Rules: rules.NewEngine()}

	provision := store.ProvisionDefaults{
		Rating:     cfg.DefaultRating,
		Deviation:  cfg.DefaultDeviation,
		Volatility: cfg.DefaultVolatility,
	}

	// Account store and archive: postgres when configured, in-memory otherwise.
	var players store.PlayerStore
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL, provision)
		if err != nil {
			log.Fatalf("postgres init error: %v", err)
		}
		defer pg.Close()
		players = pg
		deps.Archive = pg
	} else {
		players = store.NewMemStore(provision)
		obslog.L().Warn("no_database_configured")
	}
	deps.Players = players

	var cache *store.RedisCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url error: %v", err)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
		defer rdb.Close()
		cache = store.NewRedisCache(rdb, time.Duration(cfg.SnapshotTTLHours)*time.Hour)
		deps.Cache = cache
	} else {
		obslog.L().Warn("no_redis_configured")
	}

	if strings.TrimSpace(cfg.StockfishPath) != "" {
		engine, err := movepick.NewEngine(ctx, cfg.StockfishPath, cfg.BotThinkMillis)
		if err != nil {
			obslog.L().Warn("engine_unavailable", zap.Error(err))
		} else {
			defer engine.Close()
			deps.Selector = engine
		}
	}

	hub := broadcast.NewHub()
	deps.Hub = hub

	registry := arena.NewRegistry(deps)
	queue := matchmaking.NewQueue(registry, players, cfg.BotName)
	lobbyChat := lobby.NewChat(0)
	server := transport.NewServer(registry, queue, hub, cache, lobbyChat)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("server_listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Error("server_failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obslog.L().Error("shutdown_error", zap.Error(err))
		os.Exit(1)
	}
	obslog.L().Info("server_stopped")
}
