// Package service wires the quote-serving HTTP side and the
// revocation-consuming loop into a single process lifecycle.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/meridianhost/attest-agent/internal/revocation"
	"github.com/meridianhost/attest-agent/internal/transport"
)

// Service owns the HTTP listener and the revocation subscriber loop,
// running them concurrently until Run's context is canceled.
type Service struct {
	HTTPServer *http.Server
	Subscriber transport.Subscriber
	Executor   *revocation.Executor
	Logger     *slog.Logger
}

// New builds a Service from its collaborators, defaulting Logger to
// slog.Default when nil.
func New(httpServer *http.Server, subscriber transport.Subscriber, executor *revocation.Executor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{HTTPServer: httpServer, Subscriber: subscriber, Executor: executor, Logger: logger}
}

// Run starts the HTTP server and the revocation loop and blocks until
// ctx is canceled or the HTTP server fails; it shuts the HTTP server
// down gracefully on return. The revocation loop never exits on a bad
// message; it exits only when its message channel closes.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runRevocationLoop(ctx)
	}()

	go func() {
		wg.Wait()
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			_ = s.HTTPServer.Shutdown(context.Background())
			return err
		}
	}

	return s.HTTPServer.Shutdown(context.Background())
}

func (s *Service) runRevocationLoop(ctx context.Context) {
	for frame := range s.Subscriber.Messages(ctx) {
		if _, err := s.Executor.Process(ctx, frame); err != nil {
			s.Logger.Warn("revocation message not processed", "error", err)
		}
	}
}
