package routes

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/congo-pay/walletcore/internal/middleware"
	"github.com/congo-pay/walletcore/internal/reaper"
)

// Check probes one dependency. A nil error means ready.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps aggregates what the ops routes report on.
type Deps struct {
	Checks []Check
	// Reaper reports the last sweep; nil when the process runs no reaper.
	Reaper func() reaper.Status
	Logger *slog.Logger
}

// Setup configures middlewares and the operational endpoints.
func Setup(app *fiber.App, d Deps) {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger, livenessPath, readinessPath))

	RegisterHealthRoutes(app, d)
}
