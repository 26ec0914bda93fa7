package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestServer_RegisterHTTPHandler(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(50061, 8091, logger)
	s.RegisterHTTPHandler(NewMux(logger))

	if s.httpServer.Handler == nil {
		t.Error("expected httpServer.Handler to be set")
	}
	if s.httpServer.Addr != s.httpEndpoint {
		t.Errorf("expected httpServer.Addr %q, got %q", s.httpEndpoint, s.httpServer.Addr)
	}
}

func TestServer_StartStop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(50062, 8092, logger, grpc.Creds(insecure.NewCredentials()))

	mux := NewMux(logger)
	h := NewHTTPHandler(nil, nil, nil, s.Health(), logger)
	if err := h.RegisterRoutes(mux); err != nil {
		t.Fatalf("RegisterRoutes failed: %v", err)
	}
	s.RegisterHTTPHandler(mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	// Give the server a moment to start.
	time.Sleep(200 * time.Millisecond)

	conn, err := grpc.NewClient(
		"localhost"+s.grpcEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to connect to gRPC server: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	cancel()
	if err != nil {
		t.Errorf("health check failed: %v", err)
	} else if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", resp.GetStatus())
	}
	conn.Close()

	httpResp, err := http.Get("http://localhost" + s.httpEndpoint + "/api/health")
	if err != nil {
		t.Errorf("HTTP health request failed: %v", err)
	} else {
		httpResp.Body.Close()
		if httpResp.StatusCode != http.StatusOK {
			t.Errorf("expected 200 from /api/health, got %d", httpResp.StatusCode)
		}
	}

	s.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Server Start returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for server to stop")
	}

	if st, _ := s.Health().Check(context.Background(), &healthpb.HealthCheckRequest{}); st.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected NOT_SERVING after stop, got %v", st.GetStatus())
	}

	// The gRPC port is free again once the server has stopped.
	lis, err := net.Listen("tcp", s.grpcEndpoint)
	if err != nil {
		t.Errorf("expected to be able to listen on %q after shutdown, but got error: %v", s.grpcEndpoint, err)
	} else {
		lis.Close()
	}
}

func TestServer_WatchHealth(t *testing.T) {
	s := NewServer(50063, 8093, zaptest.NewLogger(t))
	status := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := s.Health().Check(context.Background(), &healthpb.HealthCheckRequest{})
		if err != nil {
			t.Fatalf("health check failed: %v", err)
		}
		return resp.GetStatus()
	}

	s.probe(context.Background(), func(context.Context) error { return errors.New("db down") })
	if got := status(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected NOT_SERVING after failed check, got %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.WatchHealth(ctx, func(context.Context) error { return nil }, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if got := status(); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING after recovery, got %v", got)
	}
}
