//go:build integration

package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/pilartoda/trikeride/internal/adapters/http"
	"github.com/pilartoda/trikeride/internal/adapters/postgres"
	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/core/usecases"
	"github.com/pilartoda/trikeride/internal/pkg/config"
	"github.com/pilartoda/trikeride/internal/pkg/fare"
	"github.com/pilartoda/trikeride/internal/pkg/location"
)

// setupTestDB connects to a migrated and seeded database (cmd/migrate up).
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("trikeride-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

// setupIntegrationApp wires real repositories, no cache or broker.
func setupIntegrationApp(db *postgres.DB) *fiber.App {
	geofences := usecases.NewGeofenceService(postgres.NewGeofenceRepo(db), nil, nil, "Pilar Village")
	stations := usecases.NewStationService(postgres.NewStationRepo(db), nil)
	bookings := usecases.NewBookingService(usecases.BookingDeps{
		Geofences: geofences,
		Stations:  stations,
		Bookings:  postgres.NewBookingRepo(db),
		Drivers:   postgres.NewDriverRepo(db),
	}, usecases.BookingOptions{Schedule: fare.DefaultSchedule, Location: location.DefaultOptions})

	app := handler.NewApp(fiber.Config{})
	handler.SetupRoutes(app, &handler.Dependencies{
		Geofences: geofences,
		Stations:  stations,
		Bookings:  bookings,
		Drivers:   usecases.NewDriverService(postgres.NewDriverRepo(db)),
		Editors:   usecases.NewGeofenceEditorService(geofences),
		DB:        db,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestStations_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	app := setupIntegrationApp(setupTestDB(t))

	var result struct {
		Data []domain.Station `json:"data"`
	}
	if status := call(t, app, "GET", "/v1/stations", nil, &result); status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(result.Data) < 4 {
		t.Errorf("expected the 4 seeded stations, got %d", len(result.Data))
	}
}

func TestCheckPoint_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	app := setupIntegrationApp(setupTestDB(t))

	var result struct {
		Inside bool `json:"inside"`
	}
	if status := call(t, app, "GET", "/v1/geofence/check?lat=14.426&lng=120.988", nil, &result); status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !result.Inside {
		t.Error("village centre should be inside the seeded geofence")
	}
}

// TestBookingLifecycle_Integration books a ride, approves a driver and lets
// them accept and complete it against the real store.
func TestBookingLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	app := setupIntegrationApp(setupTestDB(t))

	var snap usecases.FlowSnapshot
	if status := call(t, app, "POST", "/v1/sessions", nil, &snap); status != 201 {
		t.Fatalf("start session: %d", status)
	}
	base := "/v1/sessions/" + snap.ID
	call(t, app, "POST", base+"/verify", map[string]float64{"lat": 14.426, "lng": 120.988}, &snap)
	call(t, app, "POST", base+"/pickup", map[string]float64{"lat": 14.426, "lng": 120.988}, &snap)
	call(t, app, "POST", base+"/dropoff", map[string]float64{"lat": 14.43, "lng": 120.99}, &snap)
	if status := call(t, app, "POST", base+"/confirm", map[string]string{"customer_phone": "09171234567"}, &snap); status != 200 {
		t.Fatalf("confirm: %d", status)
	}
	if snap.State != usecases.FlowSearching || snap.BookingID == "" {
		t.Fatalf("after confirm: %+v", snap)
	}

	var driver domain.Driver
	status := call(t, app, "POST", "/v1/drivers", map[string]string{
		"full_name":     "Integration Driver",
		"mobile_number": fmt.Sprintf("0918%07d", time.Now().UnixNano()%10000000),
		"body_number":   "IT-" + time.Now().Format("150405"),
	}, &driver)
	if status != 201 {
		t.Fatalf("register driver: %d", status)
	}
	if status := call(t, app, "POST", "/v1/admin/drivers/"+driver.ID+"/status", map[string]string{"status": "approved"}, nil); status != 200 {
		t.Fatalf("approve driver: %d", status)
	}

	var b domain.Booking
	if status := call(t, app, "POST", "/v1/bookings/"+snap.BookingID+"/accept", map[string]string{"driver_id": driver.ID}, &b); status != 200 {
		t.Fatalf("accept: %d", status)
	}
	if b.Status != domain.BookingAccepted || b.DriverID == nil || *b.DriverID != driver.ID {
		t.Errorf("accepted booking = %+v", b)
	}
	if status := call(t, app, "POST", "/v1/bookings/"+snap.BookingID+"/accept", map[string]string{"driver_id": driver.ID}, nil); status != 409 {
		t.Errorf("second accept: got %d, want 409", status)
	}

	call(t, app, "POST", base+"/refresh", nil, &snap)
	if snap.State != usecases.FlowMatched {
		t.Errorf("after refresh: %s", snap.State)
	}

	if status := call(t, app, "POST", "/v1/bookings/"+snap.BookingID+"/complete", map[string]string{"driver_id": driver.ID}, &b); status != 200 {
		t.Fatalf("complete: %d", status)
	}
	if b.Status != domain.BookingCompleted {
		t.Errorf("completed booking status = %s", b.Status)
	}
}
