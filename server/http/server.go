package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/w-h-a/lio/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type httpServer struct {
	options  server.Options
	handler  http.Handler
	srv      *http.Server
	listener net.Listener
	errCh    chan error
	mtx      sync.RWMutex
}

func (s *httpServer) Options() server.Options {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.options
}

func (s *httpServer) Handle(handler any) error {
	h, ok := handler.(http.Handler)
	if !ok {
		return fmt.Errorf("http server expects an http.Handler, got %T", handler)
	}

	if ms, ok := MiddlewareFrom(s.options.Context); ok {
		for i := len(ms) - 1; i >= 0; i-- {
			h = ms[i](h)
		}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.handler = otelhttp.NewHandler(h, s.options.Name)

	return nil
}

// Start listens and serves in the background. Serve errors after start
// are reported by Stop.
func (s *httpServer) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.handler == nil {
		return errors.New("no handler registered")
	}

	if s.srv != nil {
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.options.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.options.Address, err)
	}

	s.listener = listener
	s.options.Address = listener.Addr().String()

	s.srv = &http.Server{
		Handler:     s.handler,
		ReadTimeout: s.options.ReadTimeout,
	}

	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", "address", s.options.Address, "error", err)
			s.errCh <- err
		}
		close(s.errCh)
	}()

	return nil
}

func (s *httpServer) Stop(ctx context.Context) error {
	s.mtx.Lock()
	srv := s.srv
	s.mtx.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	return <-s.errCh
}

func NewServer(opts ...server.Option) server.Server {
	options := server.NewOptions(opts...)

	return &httpServer{
		options: options,
		errCh:   make(chan error, 1),
		mtx:     sync.RWMutex{},
	}
}
