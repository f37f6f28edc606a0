package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits one structured log line per request. Paths listed in quiet are
// logged at debug level unless the response is an error, so probe traffic
// does not flood the log.
func Audit(logger *slog.Logger, quiet ...string) fiber.Handler {
	skip := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if id := RequestIDFrom(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}

		level := slog.LevelInfo
		if _, ok := skip[c.Path()]; ok {
			level = slog.LevelDebug
		}
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelWarn
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			level = slog.LevelError
		}
		logger.LogAttrs(context.Background(), level, "request completed", attrs...)
		return err
	}
}
