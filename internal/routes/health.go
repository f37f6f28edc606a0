package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	livenessPath  = "/healthz"
	readinessPath = "/readyz"
	probeTimeout  = 2 * time.Second
)

// RegisterHealthRoutes adds liveness and readiness endpoints. Readiness fails
// when any dependency check fails; the reaper status is informational.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get(livenessPath, func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	app.Get(readinessPath, func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
		defer cancel()

		status := http.StatusOK
		checks := fiber.Map{}
		for _, check := range d.Checks {
			if err := check.Ping(ctx); err != nil {
				checks[check.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[check.Name] = "ok"
		}

		body := fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		}
		if d.Reaper != nil {
			rs := d.Reaper()
			reaperBody := fiber.Map{"released": rs.Released}
			if !rs.LastSweepAt.IsZero() {
				reaperBody["last_sweep_at"] = rs.LastSweepAt.UTC().Format(time.RFC3339Nano)
			}
			if rs.LastError != "" {
				reaperBody["last_error"] = rs.LastError
			}
			body["reaper"] = reaperBody
		}
		return c.Status(status).JSON(body)
	})
}
