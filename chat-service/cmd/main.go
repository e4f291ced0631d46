package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/access"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/broadcast"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/config"
	chatgrpc "github.com/weiawesome/wes-io-chat/chat-service/internal/grpc"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/handler"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/history"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/hub"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/membership"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/metrics"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/ratelimit"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/registry"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/database"
	"github.com/weiawesome/wes-io-chat/pkg/jwt"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "chat-service",
		InstanceID:  cfg.InstanceID,
	})
	l := log.L()
	l.Info().Str("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).Msg("starting chat service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The gateway only verifies tokens, so the issuing lifetime is unused.
	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, 0, cfg.Auth.Issuer)
	if err != nil {
		l.Fatal().Err(err).Msg("invalid auth configuration")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		l.Fatal().Err(err).Str("address", cfg.Redis.Address).Msg("failed to connect to redis")
	}

	store, closeStore, err := newHistoryStore(cfg.History)
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.History.Driver).Msg("failed to open history store")
	}
	defer closeStore()

	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open membership database")
	}
	members := membership.NewGormStore(db)
	if err := members.Migrate(); err != nil {
		l.Fatal().Err(err).Msg("failed to migrate membership schema")
	}

	validator := access.NewValidator(membership.NewCache(rdb, members, cfg.Membership.CacheTTL))
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisWindowStore(rdb), ratelimit.Config{
		Window:    cfg.RateLimit.Window,
		MaxEvents: cfg.RateLimit.MaxEvents,
	})

	reg := registry.NewRedisRegistry(rdb, cfg.Redis)
	if err := reg.StartHeartbeat(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to start registry heartbeat")
	}
	defer reg.StopHeartbeat()

	wsHub := hub.NewHub()

	var publisher service.Publisher
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to connect broadcast bus")
	}
	if bus != nil {
		defer bus.Close()
		relay := broadcast.NewRelay(bus, wsHub, cfg.InstanceID)
		publisher = relay
		go func() {
			if err := relay.Run(ctx); err != nil {
				l.Error().Err(err).Msg("broadcast relay stopped")
			}
		}()
	}

	chatSvc := service.NewChatService(wsHub, validator, limiter, store, reg, publisher, service.Options{
		MaxPageSize:      cfg.History.MaxPageSize,
		DefaultPageSize:  cfg.History.DefaultPageSize,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
	})

	grpcServer := chatgrpc.NewServer(l)
	if err := grpcServer.Serve(fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)); err != nil {
		l.Fatal().Err(err).Msg("failed to start grpc server")
	}
	defer grpcServer.GracefulStop()

	auth := middleware.NewAuthMiddleware(tokens)
	router := handler.NewRouter(
		handler.NewWSHandler(chatSvc, auth, cfg.WebSocket),
		handler.NewHistoryHandler(chatSvc),
		auth,
		log.GinMiddleware(l),
		metrics.HTTPMetricsMiddleware(),
	)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		l.Info().Str("address", server.Addr).Msg("chat service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down chat service")
	grpcServer.Drain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("chat service stopped")
}

func newHistoryStore(cfg config.HistoryConfig) (history.Store, func(), error) {
	switch cfg.Driver {
	case "cassandra":
		cs, err := history.NewCassandraStore(cfg.Cassandra, cfg.Retention)
		if err != nil {
			return nil, nil, err
		}
		return history.NewDeduplicated(cs), func() { cs.Close() }, nil
	case "memory", "":
		return history.NewDeduplicated(history.NewMemoryStore(cfg.Retention)), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported history driver: %s", cfg.Driver)
	}
}
