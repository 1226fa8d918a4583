package health

import (
	"context"
	"errors"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/hooklab/dispatch/monitor"
)

func TestCheckServingWhenIdle(t *testing.T) {
	svc := New(monitor.NewCollector())
	resp, err := svc.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.Status)
	}
}

func TestCheckNotServingAboveThreshold(t *testing.T) {
	c := monitor.NewCollector()
	c.Record("invoice.paid", time.Millisecond, errors.New("down"))
	c.Record("invoice.paid", time.Millisecond, errors.New("down"))
	c.Record("invoice.paid", time.Millisecond, nil)

	svc := New(c, WithFailureThreshold(0.5))
	resp, err := svc.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", resp.Status)
	}
}

func TestCheckRecoversBelowThreshold(t *testing.T) {
	c := monitor.NewCollector()
	c.Record("invoice.paid", time.Millisecond, errors.New("down"))

	svc := New(c, WithFailureThreshold(0.5))
	if resp, _ := svc.Check(context.Background(), &healthpb.HealthCheckRequest{}); resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", resp.Status)
	}

	// Successes dilute the ratio back under the threshold.
	for i := 0; i < 3; i++ {
		c.Record("invoice.paid", time.Millisecond, nil)
	}
	if resp, _ := svc.Check(context.Background(), &healthpb.HealthCheckRequest{}); resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.Status)
	}
}

func TestOptionBoundsIgnored(t *testing.T) {
	svc := New(monitor.NewCollector(),
		WithFailureThreshold(-1), WithFailureThreshold(2), WithPollInterval(-time.Second))
	if svc.threshold != DefaultFailureThreshold {
		t.Errorf("threshold = %v, want default", svc.threshold)
	}
	if svc.pollInterval != DefaultPollInterval {
		t.Errorf("poll interval = %v, want default", svc.pollInterval)
	}
}
