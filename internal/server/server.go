// Package server owns the listen/serve/shutdown lifecycle of the HTTP server
// and the optional gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shashiranjanraj/bookstore/pkg/grpc"
	"github.com/shashiranjanraj/bookstore/pkg/logger"
)

type Options struct {
	Addr            string
	GRPCPort        string // empty disables gRPC
	ShutdownTimeout time.Duration

	// OnDrain runs once shutdown begins, before connections are closed.
	OnDrain func()
}

// Start listens on opts.Addr and serves until ctx is cancelled.
func Start(ctx context.Context, handler http.Handler, opts Options) error {
	lis, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", opts.Addr, err)
	}
	return Serve(ctx, lis, handler, opts)
}

// Serve runs the HTTP server on lis, and gRPC when configured, then shuts
// both down gracefully once ctx is done.
func Serve(ctx context.Context, lis net.Listener, handler http.Handler, opts Options) error {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var grpcSrv *grpc.Server
	if opts.GRPCPort != "" {
		var err error
		if grpcSrv, err = grpc.Start(opts.GRPCPort); err != nil {
			_ = lis.Close()
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bookstore listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		grpcSrv.Stop()
		if ok {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown started")
	if opts.OnDrain != nil {
		opts.OnDrain()
	}
	grpcSrv.MarkNotServing()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	grpcSrv.Stop()
	if err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
