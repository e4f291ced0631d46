package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/weiawesome/wes-io-chat/pkg/jwt"
	pkglog "github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/config"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/handler"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/service"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "presence-service",
		InstanceID:  cfg.Server.InstanceID,
	})
	logger := pkglog.L()

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Dur("ttl", cfg.Presence.TTL).
		Dur("heartbeat_interval", cfg.Presence.HeartbeatInterval).
		Msg("starting presence-service")

	if cfg.Presence.HeartbeatInterval >= cfg.Presence.TTL {
		logger.Warn().Msg("heartbeat interval is not shorter than presence ttl, users will flap offline")
	}

	redisStore, err := store.NewRedisStore(store.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create redis store")
	}
	defer redisStore.Close()

	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, 0, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid auth configuration")
	}
	auth := middleware.NewAuthMiddleware(tokens)

	svc := service.NewPresenceService(redisStore, service.Config{
		TTL:          cfg.Presence.TTL,
		MaxBatchSize: cfg.Presence.MaxBatchSize,
	})

	wsHandler := handler.NewWSHandler(svc, auth, handler.WSConfig{
		TTL:            cfg.Presence.TTL,
		PingInterval:   cfg.Presence.PingInterval,
		PongWait:       cfg.Presence.PongWait,
		WriteWait:      cfg.Presence.WriteWait,
		MaxMessageSize: cfg.Presence.MaxMessageSize,
	})
	router := handler.NewRouter(handler.NewHTTPHandler(svc), wsHandler, auth)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     pkglog.HTTPMiddleware(logger)(router),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("presence-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down presence-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	logger.Info().Msg("presence-service stopped")
}
