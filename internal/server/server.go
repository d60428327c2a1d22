// internal/server/server.go
//
// HTTP server construction and lifecycle.
//
// Context
// -------
// cmd/web builds one *http.Server from config.HTTP and hands it to Run,
// which serves until the context is cancelled and then drains in-flight
// requests.
//
// Notes
// -----
// • Zero timeouts take the defaults below (read 15 s, write 15 s, idle 60 s).
// • Run returns nil on a clean shutdown, never http.ErrServerClosed.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 15 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
	DefaultGrace        = 15 * time.Second
)

// Timeouts bounds slow clients.  ReadHeader defaults to Read.
type Timeouts struct {
	Read       time.Duration
	ReadHeader time.Duration
	Write      time.Duration
	Idle       time.Duration
}

// New constructs an *http.Server for addr.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	if t.Read <= 0 {
		t.Read = DefaultReadTimeout
	}
	if t.ReadHeader <= 0 {
		t.ReadHeader = t.Read
	}
	if t.Write <= 0 {
		t.Write = DefaultWriteTimeout
	}
	if t.Idle <= 0 {
		t.Idle = DefaultIdleTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: t.ReadHeader,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
	}
}

// Run listens on srv.Addr and serves until ctx is done, then shuts down
// within grace.
func Run(ctx context.Context, srv *http.Server, grace time.Duration) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, srv, ln, grace)
}

// Serve is Run over an existing listener.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	if grace <= 0 {
		grace = DefaultGrace
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down", zap.Duration("grace", grace))
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
