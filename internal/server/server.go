package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletcore/internal/config"
	"github.com/congo-pay/walletcore/internal/routes"
)

// Server wraps the Fiber application serving the operational endpoints.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, deps routes.Deps, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		DisableStartupMessage: true,
	})
	deps.Logger = logger
	routes.Setup(app, deps)

	return &Server{app: app, addr: cfg.HealthAddress(), logger: logger}
}

// Run serves until ctx is cancelled, then shuts down within grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ops server listening", slog.String("addr", s.addr))
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// App exposes the underlying Fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
