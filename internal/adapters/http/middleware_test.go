package http_test

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/pilartoda/trikeride/internal/adapters/http"
	"github.com/pilartoda/trikeride/internal/core/domain"
)

func TestETag_StationsNotModified(t *testing.T) {
	env := setupTestApp(t, "")

	resp, err := env.app.Test(httptest.NewRequest("GET", "/v1/stations", nil), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	etag := resp.Header.Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak ETag, got %q", etag)
	}

	for _, header := range []string{etag, `W/"0000", ` + etag, "*"} {
		req := httptest.NewRequest("GET", "/v1/stations", nil)
		req.Header.Set("If-None-Match", header)
		resp, err := env.app.Test(req, -1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != 304 {
			t.Errorf("If-None-Match %q: status = %d, want 304", header, resp.StatusCode)
		}
	}

	req := httptest.NewRequest("GET", "/v1/stations", nil)
	req.Header.Set("If-None-Match", `W/"stale"`)
	resp, err = env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("stale ETag: status = %d, want 200", resp.StatusCode)
	}
}

func TestETag_SkipsSessions(t *testing.T) {
	env := setupTestApp(t, "")
	status, body := env.do(t, "POST", "/v1/sessions", nil)
	expectStatus(t, status, 201, body)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/v1/sessions/"+body["id"].(string), nil), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		t.Errorf("session snapshot should not carry an ETag, got %q", etag)
	}
}

func TestAccessLog_TagsSessionAndRoute(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	env := setupTestApp(t, "")
	status, body := env.do(t, "POST", "/v1/sessions", nil)
	expectStatus(t, status, 201, body)
	id := body["id"].(string)

	buf.Reset()
	status, body = env.do(t, "GET", "/v1/sessions/"+id, nil)
	expectStatus(t, status, 200, body)

	out := buf.String()
	for _, want := range []string{`"msg":"GET /v1/sessions/:id"`, `"session_id":"` + id + `"`, `"request_id":`, `"status":200`} {
		if !strings.Contains(out, want) {
			t.Errorf("access log missing %s: %s", want, out)
		}
	}
}

func TestErrorEnvelope_CarriesRequestID(t *testing.T) {
	env := setupTestApp(t, "")
	status, body := env.do(t, "GET", "/v1/sessions/unknown", nil)
	expectStatus(t, status, 404, body)
	if rid, _ := body["request_id"].(string); rid == "" {
		t.Errorf("expected request_id in error body, got %v", body)
	}
}

func TestAdminDrivers_LinkHeaders(t *testing.T) {
	env := setupTestApp(t, "")
	for _, name := range []string{"A", "B", "C"} {
		env.drivers.add(domain.Driver{FullName: name, Status: domain.DriverPending})
	}

	resp, err := env.app.Test(httptest.NewRequest("GET", "/v1/admin/drivers?status=pending&offset=1&limit=1", nil), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	link := resp.Header.Get("Link")
	for _, want := range []string{
		`</v1/admin/drivers?limit=1&offset=0&status=pending>; rel="first"`,
		`</v1/admin/drivers?limit=1&offset=0&status=pending>; rel="prev"`,
		`</v1/admin/drivers?limit=1&offset=2&status=pending>; rel="next"`,
		`</v1/admin/drivers?limit=1&offset=2&status=pending>; rel="last"`,
	} {
		if !strings.Contains(link, want) {
			t.Errorf("Link header missing %s: %s", want, link)
		}
	}
}

func TestNewApp_ParamsOutliveRequest(t *testing.T) {
	app := handler.NewApp(fiber.Config{})
	var kept []string
	app.Post("/v1/bookings/:id/accept", func(c *fiber.Ctx) error {
		kept = append(kept, c.Params("id"))
		return c.SendStatus(fiber.StatusNoContent)
	})

	ids := []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
		"33333333-3333-4333-8333-333333333333",
	}
	for _, id := range ids {
		if _, err := app.Test(httptest.NewRequest("POST", "/v1/bookings/"+id+"/accept", nil), -1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for i, id := range ids {
		if kept[i] != id {
			t.Errorf("param %d = %q after later requests, want %q", i, kept[i], id)
		}
	}
}

func TestSessionFlow_RefreshAfterAcceptFindsBooking(t *testing.T) {
	env := setupTestApp(t, "")
	driverID := env.drivers.add(domain.Driver{FullName: "Juan Dela Cruz", Status: domain.DriverApproved})

	_, body := env.do(t, "POST", "/v1/sessions", nil)
	sid := body["id"].(string)
	env.do(t, "POST", "/v1/sessions/"+sid+"/verify", map[string]any{"lat": 14.426, "lng": 120.988})
	env.do(t, "POST", "/v1/sessions/"+sid+"/pickup", map[string]any{"lat": 14.426, "lng": 120.988})
	env.do(t, "POST", "/v1/sessions/"+sid+"/dropoff", map[string]any{"station_id": stationS2})
	status, body := env.do(t, "POST", "/v1/sessions/"+sid+"/confirm", map[string]any{})
	expectStatus(t, status, 200, body)
	bookingID := body["booking_id"].(string)

	status, body = env.do(t, "POST", "/v1/bookings/"+bookingID+"/accept", map[string]any{"driver_id": driverID})
	expectStatus(t, status, 200, body)

	// Unrelated traffic reuses the request buffers.
	for i := 0; i < 5; i++ {
		env.do(t, "GET", "/v1/stations", nil)
	}

	status, body = env.do(t, "GET", "/v1/bookings/"+bookingID, nil)
	expectStatus(t, status, 200, body)
	status, body = env.do(t, "POST", "/v1/sessions/"+sid+"/refresh", nil)
	expectStatus(t, status, 200, body)
	if body["state"] != "matched" {
		t.Errorf("state = %v, want matched", body["state"])
	}
}
