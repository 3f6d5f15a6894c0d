// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package http serves the operational endpoints of a listener process.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/sqslistener/app"
	"github.com/z5labs/sqslistener/config"

	"github.com/sourcegraph/conc/pool"
)

// DefaultAddr is where the server listens when no address is configured.
const DefaultAddr = ":8090"

// Listener opens a TCP listener on Addr, or [DefaultAddr] if unset.
type Listener struct {
	Addr config.Reader[string]
}

// ListenerFromEnv reads the listen address from HTTP_ADDR.
func ListenerFromEnv() Listener {
	return Listener{Addr: config.Env("HTTP_ADDR")}
}

// Read implements the [config.Reader] interface.
func (l Listener) Read(ctx context.Context) (config.Value[net.Listener], error) {
	addr, err := config.Read(ctx, config.Default(DefaultAddr, l.Addr))
	if err != nil {
		return config.Value[net.Listener]{}, err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return config.Value[net.Listener]{}, err
	}
	return config.ValueOf(ln), nil
}

// Server configures the underlying [http.Server]. Unset timeouts fall
// back to conservative defaults suited to probe traffic.
type Server struct {
	Listener          config.Reader[net.Listener]
	ReadHeaderTimeout config.Reader[time.Duration]
	ReadTimeout       config.Reader[time.Duration]
	WriteTimeout      config.Reader[time.Duration]
	IdleTimeout       config.Reader[time.Duration]
}

// ServerOption sets a value on [Server].
type ServerOption func(*Server)

// ReadHeaderTimeout defaults to 2s.
func ReadHeaderTimeout(d config.Reader[time.Duration]) ServerOption {
	return func(s *Server) {
		s.ReadHeaderTimeout = d
	}
}

// ReadTimeout defaults to 5s.
func ReadTimeout(d config.Reader[time.Duration]) ServerOption {
	return func(s *Server) {
		s.ReadTimeout = d
	}
}

// WriteTimeout defaults to 10s.
func WriteTimeout(d config.Reader[time.Duration]) ServerOption {
	return func(s *Server) {
		s.WriteTimeout = d
	}
}

// IdleTimeout defaults to 120s.
func IdleTimeout(d config.Reader[time.Duration]) ServerOption {
	return func(s *Server) {
		s.IdleTimeout = d
	}
}

// ServerFromEnv reads the HTTP_* timeout variables.
func ServerFromEnv(ln config.Reader[net.Listener], opts ...ServerOption) Server {
	base := []ServerOption{
		ReadHeaderTimeout(config.DurationFromString(config.Env("HTTP_READ_HEADER_TIMEOUT"))),
		ReadTimeout(config.DurationFromString(config.Env("HTTP_READ_TIMEOUT"))),
		WriteTimeout(config.DurationFromString(config.Env("HTTP_WRITE_TIMEOUT"))),
		IdleTimeout(config.DurationFromString(config.Env("HTTP_IDLE_TIMEOUT"))),
	}
	return NewServer(ln, append(base, opts...)...)
}

// NewServer returns a [Server] serving on ln.
func NewServer(ln config.Reader[net.Listener], opts ...ServerOption) Server {
	s := Server{Listener: ln}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// App serves HTTP until its context is cancelled.
type App struct {
	ln  net.Listener
	srv *http.Server
}

// Addr is the address the server is listening on.
func (a App) Addr() net.Addr {
	return a.ln.Addr()
}

// Run implements the [app.Runtime] interface. Cancelling ctx
// gracefully shuts the server down.
func (a App) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		return a.srv.Serve(a.ln)
	})

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return a.srv.Shutdown(context.WithoutCancel(ctx))
	})

	err := p.Wait()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Build serves the handler produced by b.
func Build(srv Server, b app.Builder[http.Handler]) app.Builder[App] {
	return app.Bind(b, func(h http.Handler) app.Builder[App] {
		return app.BuilderFunc[App](func(ctx context.Context) (App, error) {
			ln, err := config.Read(ctx, srv.Listener)
			if err != nil {
				return App{}, err
			}

			hs := &http.Server{
				Handler:           h,
				ReadHeaderTimeout: config.MustOr(ctx, 2*time.Second, srv.ReadHeaderTimeout),
				ReadTimeout:       config.MustOr(ctx, 5*time.Second, srv.ReadTimeout),
				WriteTimeout:      config.MustOr(ctx, 10*time.Second, srv.WriteTimeout),
				IdleTimeout:       config.MustOr(ctx, 120*time.Second, srv.IdleTimeout),
			}
			return App{ln: ln, srv: hs}, nil
		})
	})
}
