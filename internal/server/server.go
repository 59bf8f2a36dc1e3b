// Package server provides a listener wrapper that serves HTTP or GRPC with
// graceful drain on context cancellation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"

	"github.com/go-gpviz/gpviz/internal/logging"
)

const drainTimeout = 5 * time.Second

type Server struct {
	addr     string
	listener net.Listener
}

func New(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener on %s: %w", addr, err)
	}

	return &Server{
		addr:     addr,
		listener: listener,
	}, nil
}

// Addr reports the bound address. It differs from the configured one when
// the listener was created on port zero.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// ServeHTTP serves until ctx is cancelled, then drains within drainTimeout.
// Serve reports ErrServerClosed as soon as the drain starts; the drain
// result itself is collected afterwards so a failed shutdown is not lost.
func (s *Server) ServeHTTP(ctx context.Context, srv *http.Server) error {
	logger := logging.FromContext(ctx)

	drained := make(chan error, 1)
	go func() {
		<-ctx.Done()

		logger.Debugf("server: draining %s", s.Addr())
		shutdownCtx, done := context.WithTimeout(context.Background(), drainTimeout)
		defer done()
		drained <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	select {
	case <-ctx.Done():
		if err := <-drained; err != nil {
			return fmt.Errorf("failed to shutdown: %w", err)
		}
		logger.Debugf("server: %s drained", s.Addr())
	default:
		// Serve ended on its own, the drain goroutine never fired
	}
	return nil
}

func (s *Server) ServeHTTPHandler(ctx context.Context, handler http.Handler) error {
	return s.ServeHTTP(ctx, &http.Server{
		Handler: handler,
	})
}

func (s *Server) ServeGRPC(ctx context.Context, srv *grpc.Server) error {
	logger := logging.FromContext(ctx)
	go func() {
		<-ctx.Done()
		logger.Debugf("server: stopping grpc on %s", s.Addr())
		srv.GracefulStop()
	}()

	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve grpc: %w", err)
	}

	logger.Debugf("server: grpc on %s stopped", s.Addr())
	return nil
}
