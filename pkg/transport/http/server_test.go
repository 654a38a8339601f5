package http

import (
	"context"
	"errors"
	"net"
	gohttp "net/http"
	"testing"
	"time"

	"github.com/altarhq/altar/pkg/tenancy"
	"github.com/altarhq/altar/pkg/transport"
)

func listen(t *testing.T) (net.Listener, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	return ln, ln.Addr().String()
}

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	srv := NewServer(newTestAdapter(&mockService{}), WithAddr("127.0.0.1:0"))

	ln, addr := listen(t)
	go srv.ServeOn(ln)
	time.Sleep(50 * time.Millisecond)

	resp, err := gohttp.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusOK)
	}
	if resp.Header.Get(transport.RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header from default middleware")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

func TestServerRecoversMissingScopePanic(t *testing.T) {
	h := gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		tenancy.MustRequire(r.Context())
	})
	srv := NewServer(h)

	ln, addr := listen(t)
	go srv.ServeOn(ln)
	time.Sleep(50 * time.Millisecond)

	resp, err := gohttp.Get("http://" + addr + "/v1/guests")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != gohttp.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusInternalServerError)
	}

	// The server keeps serving after the panic.
	resp, err = gohttp.Get("http://" + addr + "/v1/guests")
	if err != nil {
		t.Fatalf("second GET error: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

func TestServerGracefulShutdown(t *testing.T) {
	slow := gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
			w.WriteHeader(gohttp.StatusOK)
		case <-r.Context().Done():
		}
	})

	srv := NewServer(slow,
		WithAddr("127.0.0.1:0"),
		WithShutdownTimeout(5*time.Second),
	)

	ln, addr := listen(t)
	go srv.ServeOn(ln)
	time.Sleep(50 * time.Millisecond)

	responseCh := make(chan int, 1)
	go func() {
		resp, err := gohttp.Get("http://" + addr + "/slow")
		if err != nil {
			responseCh <- 0
			return
		}
		defer resp.Body.Close()
		responseCh <- resp.StatusCode
	}()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	status := <-responseCh
	if status != gohttp.StatusOK {
		t.Errorf("slow request status = %d, want %d", status, gohttp.StatusOK)
	}
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := NewServer(newTestAdapter(&mockService{}), WithAddr("127.0.0.1:0"), WithShutdownTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServerRunListenError(t *testing.T) {
	ln, addr := listen(t)
	defer ln.Close()

	srv := NewServer(newTestAdapter(&mockService{}), WithAddr(addr))
	err := srv.Run(context.Background())
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Errorf("Run error = %v, want *net.OpError", err)
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	srv := NewServer(newTestAdapter(&mockService{}),
		WithAddr(":9999"),
		WithReadTimeout(5*time.Second),
		WithWriteTimeout(7*time.Second),
		WithShutdownTimeout(10*time.Second),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.httpServer.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v, want %v", srv.httpServer.ReadTimeout, 5*time.Second)
	}
	if srv.httpServer.WriteTimeout != 7*time.Second {
		t.Errorf("write timeout = %v, want %v", srv.httpServer.WriteTimeout, 7*time.Second)
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, 10*time.Second)
	}
}
