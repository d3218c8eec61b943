package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

type fakeServer struct {
	once     sync.Once
	stopped  chan struct{}
	startErr error
	shutdown bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{stopped: make(chan struct{})}
}

func (s *fakeServer) ListenAndServe() error {
	if s.startErr != nil {
		return s.startErr
	}
	<-s.stopped
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(ctx context.Context) error {
	s.shutdown = true
	s.once.Do(func() { close(s.stopped) })
	return nil
}

func TestHTTPServiceShutdown(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !srv.shutdown {
		t.Error("Expected Shutdown to be called")
	}
}

func TestHTTPServiceStartFailure(t *testing.T) {
	srv := newFakeServer()
	srv.startErr = errors.New("address in use")

	err := NewHTTPService(srv, time.Second).Serve(context.Background())
	if err == nil {
		t.Fatal("Expected start failure")
	}
}

type tickService struct {
	runs chan struct{}
}

func (s *tickService) Serve(ctx context.Context) error {
	s.runs <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func (s *tickService) String() string { return "tick" }

func TestTreeRunsServices(t *testing.T) {
	tree := New(Config{ShutdownTimeout: time.Second})
	job := &tickService{runs: make(chan struct{}, 1)}
	tree.AddJob(job)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tree.Serve(ctx) }()

	select {
	case <-job.runs:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
}
