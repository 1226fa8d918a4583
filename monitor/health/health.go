// Package health exposes a Collector as a standard gRPC health
// service, so load balancers and orchestrators can stop routing to an
// instance whose handlers are mostly failing.
package health

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/hooklab/dispatch/monitor"
)

// DefaultFailureThreshold is the aggregate failure ratio above which
// the service reports NOT_SERVING.
const DefaultFailureThreshold = 0.5

// DefaultPollInterval is how often Watch re-evaluates health.
const DefaultPollInterval = time.Second

// Service implements grpc_health_v1.Health over a monitor.Collector.
//
// Health is derived from the aggregate failure ratio: SERVING while it
// stays at or below the threshold, NOT_SERVING above it. An idle
// collector reports SERVING.
type Service struct {
	healthpb.UnimplementedHealthServer
	collector    *monitor.Collector
	threshold    float64
	pollInterval time.Duration
}

// Option configures the health service
type Option func(*Service)

// WithFailureThreshold overrides the NOT_SERVING cutoff. Values
// outside (0, 1] are ignored.
func WithFailureThreshold(ratio float64) Option {
	return func(s *Service) {
		if ratio > 0 && ratio <= 1 {
			s.threshold = ratio
		}
	}
}

// WithPollInterval overrides how often Watch re-evaluates health.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// New creates a health service over collector.
func New(collector *monitor.Collector, opts ...Option) *Service {
	s := &Service{
		collector:    collector,
		threshold:    DefaultFailureThreshold,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register registers the service with a gRPC server.
func (s *Service) Register(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, s)
}

func (s *Service) currentStatus() healthpb.HealthCheckResponse_ServingStatus {
	if s.collector.FailureRatio() > s.threshold {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

// Check reports the current health. The per-service name in the
// request is ignored; the dispatcher is one service.
func (s *Service) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	return &healthpb.HealthCheckResponse{Status: s.currentStatus()}, nil
}

// Watch streams the health status, sending the current value
// immediately and again on every change.
func (s *Service) Watch(req *healthpb.HealthCheckRequest, stream healthpb.Health_WatchServer) error {
	last := s.currentStatus()
	if err := stream.Send(&healthpb.HealthCheckResponse{Status: last}); err != nil {
		return status.Errorf(codes.Canceled, "stream closed: %v", err)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stream.Context().Done():
			return status.FromContextError(stream.Context().Err()).Err()
		case <-ticker.C:
			current := s.currentStatus()
			if current == last {
				continue
			}
			last = current
			if err := stream.Send(&healthpb.HealthCheckResponse{Status: current}); err != nil {
				return status.Errorf(codes.Canceled, "stream closed: %v", err)
			}
		}
	}
}

// Compile-time check
var _ healthpb.HealthServer = (*Service)(nil)
