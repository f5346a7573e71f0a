package control

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
)

const stopGrace = 2 * time.Second

// Server encapsulates the gRPC server instance and its unix socket listener.
type Server struct {
	lis net.Listener
	s   *grpc.Server
}

// NewServer listens on the unix socket at path and registers svc. A stale
// socket file left by a crashed instance is replaced, so callers must make
// sure no other instance is serving it.
func NewServer(path string, svc ControlServer) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale socket: %w", err)
	}

	lis, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = lis.Close()
		return nil, fmt.Errorf("failed to restrict socket: %w", err)
	}

	s := grpc.NewServer(grpc.UnaryInterceptor(localOnlyUnary), grpc.StreamInterceptor(localOnlyStream))
	s.RegisterService(&ServiceDesc, svc)

	return &Server{lis: lis, s: s}, nil
}

// Serve starts serving gRPC on the configured listener.
func (g *Server) Serve() error {
	err := g.s.Serve(g.lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Addr returns the network address the server is bound to.
func (g *Server) Addr() net.Addr { return g.lis.Addr() }

// Stop gracefully stops the gRPC server. Open log streams are cut after a
// short grace period.
func (g *Server) Stop() {
	done := make(chan struct{})
	go func() {
		g.s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopGrace):
		g.s.Stop()
		<-done
	}
}
