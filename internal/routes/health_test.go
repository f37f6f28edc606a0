package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletcore/internal/logging"
	"github.com/congo-pay/walletcore/internal/reaper"
)

func readiness(t *testing.T, d Deps) (int, map[string]any) {
	t.Helper()
	app := fiber.New()
	d.Logger = logging.Discard()
	Setup(app, d)

	resp, err := app.Test(httptest.NewRequest("GET", readinessPath, nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, body
}

func TestReadinessOK(t *testing.T) {
	swept := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	code, body := readiness(t, Deps{
		Checks: []Check{{Name: "store", Ping: func(context.Context) error { return nil }}},
		Reaper: func() reaper.Status { return reaper.Status{LastSweepAt: swept, Released: 2} },
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	status := body["status"].(map[string]any)
	if status["store"] != "ok" {
		t.Fatalf("unexpected status %v", status)
	}
	rs := body["reaper"].(map[string]any)
	if rs["released"].(float64) != 2 || rs["last_sweep_at"] != "2024-03-01T09:00:00Z" {
		t.Fatalf("unexpected reaper body %v", rs)
	}
}

func TestReadinessFailsOnUnreachableDependency(t *testing.T) {
	code, body := readiness(t, Deps{
		Checks: []Check{
			{Name: "store", Ping: func(context.Context) error { return nil }},
			{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
		},
	})
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	status := body["status"].(map[string]any)
	if status["redis"] != "connection refused" {
		t.Fatalf("unexpected status %v", status)
	}
	if _, ok := body["reaper"]; ok {
		t.Fatal("reaper section should be absent without a reaper")
	}
}

func TestLiveness(t *testing.T) {
	app := fiber.New()
	Setup(app, Deps{Logger: logging.Discard()})
	resp, err := app.Test(httptest.NewRequest("GET", livenessPath, nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
