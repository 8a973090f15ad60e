package health

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// #region mock
type mockHealthService struct {
	healthpb.HealthClient

	resp *healthpb.HealthCheckResponse
	err  error
	got  string
}

func (m *mockHealthService) Check(_ context.Context, req *healthpb.HealthCheckRequest, _ ...grpc.CallOption) (*healthpb.HealthCheckResponse, error) {
	m.got = req.GetService()
	return m.resp, m.err
}

// #endregion mock

// #region client-tests
func TestCheck_Serving(t *testing.T) {
	svc := &mockHealthService{resp: &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}}
	c := NewClientWithService(svc)
	defer c.Close()

	status, err := c.Check(context.Background(), Service)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "SERVING" {
		t.Errorf("expected SERVING, got %s", status)
	}
	if svc.got != Service {
		t.Errorf("expected service %q, got %q", Service, svc.got)
	}
}

func TestCheck_Error(t *testing.T) {
	c := NewClientWithService(&mockHealthService{err: errors.New("unavailable")})
	if _, err := c.Check(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewClient_Lazy(t *testing.T) {
	client, err := NewClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

// #endregion client-tests

// #region server-tests
func TestServer_RoundTrip(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs, hs := NewServer()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = gs.Serve(lis)
	}()
	defer func() {
		gs.Stop()
		<-done
	}()

	c, err := NewClient(lis.Addr().String())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := c.Check(ctx, Service)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != "SERVING" {
		t.Errorf("expected SERVING, got %s", status)
	}

	hs.Shutdown()
	status, err = c.Check(ctx, "")
	if err != nil {
		t.Fatalf("check after shutdown: %v", err)
	}
	if status != "NOT_SERVING" {
		t.Errorf("expected NOT_SERVING, got %s", status)
	}
}

// #endregion server-tests
