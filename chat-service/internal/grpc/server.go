package grpc

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/metrics"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to grpc health probes.
const ServiceName = "chat.Gateway"

// Server is the gateway's internal grpc endpoint. It serves the standard
// health protocol so orchestrators can probe instances without a websocket.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

func NewServer(logger zerolog.Logger) *Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			log.UnaryServerInterceptor(logger),
			metrics.GRPCServerMetricsUnaryInterceptor(),
		),
		grpc.StreamInterceptor(log.StreamServerInterceptor(logger)),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	return &Server{grpc: s, health: hs}
}

// Serve listens on addr in the background.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		l := log.L()
		l.Info().Str("address", addr).Msg("chat grpc server listening")
		if err := s.grpc.Serve(lis); err != nil {
			l.Error().Err(err).Msg("grpc server error")
		}
	}()
	return nil
}

// Drain marks the instance as not serving so probes stop routing to it.
func (s *Server) Drain() {
	s.health.Shutdown()
}

func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
