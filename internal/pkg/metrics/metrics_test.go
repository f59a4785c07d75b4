package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pilartoda/trikeride/internal/pkg/metrics"
)

type fakeStat struct{ acquired, idle, total int32 }

func (s fakeStat) AcquiredConns() int32 { return s.acquired }
func (s fakeStat) IdleConns() int32     { return s.idle }
func (s fakeStat) TotalConns() int32    { return s.total }

func TestUpdateDBPoolMetrics(t *testing.T) {
	metrics.UpdateDBPoolMetrics(fakeStat{acquired: 3, idle: 5, total: 8})

	if got := testutil.ToFloat64(metrics.DBPoolConnsAcquired); got != 3 {
		t.Errorf("acquired = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.DBPoolConnsIdle); got != 5 {
		t.Errorf("idle = %v, want 5", got)
	}
	if got := testutil.ToFloat64(metrics.DBPoolConnsOpen); got != 8 {
		t.Errorf("open = %v, want 8", got)
	}
}

func TestHandlerExposesRouteTemplates(t *testing.T) {
	app := fiber.New()
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())
	app.Get("/v1/sessions/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })

	if _, err := app.Test(httptest.NewRequest("GET", "/v1/sessions/abc", nil), -1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	body := string(raw)
	if !strings.Contains(body, `path="/v1/sessions/:id"`) {
		t.Errorf("expected route template label in metrics output")
	}
	if strings.Contains(body, `path="/v1/sessions/abc"`) {
		t.Errorf("raw path leaked into metric labels")
	}
}
