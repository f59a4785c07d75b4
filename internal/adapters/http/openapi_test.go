package http_test

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/pilartoda/trikeride/api"
)

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI document: %v", err)
	}
	return doc
}

// TestOpenAPIDocument validates the OpenAPI document and checks it covers the routes.
func TestOpenAPIDocument(t *testing.T) {
	doc := loadOpenAPI(t)

	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI validation failed: %v", err)
	}

	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/stations",
		"/v1/geofence",
		"/v1/geofence/check",
		"/v1/fare/quote",
		"/v1/sessions",
		"/v1/sessions/{id}",
		"/v1/sessions/{id}/verify",
		"/v1/sessions/{id}/pickup",
		"/v1/sessions/{id}/dropoff",
		"/v1/sessions/{id}/trip-type",
		"/v1/sessions/{id}/confirm",
		"/v1/sessions/{id}/refresh",
		"/v1/sessions/{id}/cancel",
		"/v1/sessions/{id}/reset",
		"/v1/drivers",
		"/v1/drivers/{id}",
		"/v1/drivers/{id}/online",
		"/v1/bookings/pending",
		"/v1/bookings/{id}",
		"/v1/bookings/{id}/accept",
		"/v1/bookings/{id}/complete",
		"/v1/admin/drivers",
		"/v1/admin/drivers/{id}/status",
		"/v1/admin/geofence/editor",
		"/v1/admin/geofence/editor/{sid}",
		"/v1/admin/geofence/editor/{sid}/edit",
		"/v1/admin/geofence/editor/{sid}/vertices",
		"/v1/admin/geofence/editor/{sid}/vertices/{idx}",
		"/v1/admin/geofence/editor/{sid}/reset",
		"/v1/admin/geofence/editor/{sid}/clear",
		"/v1/admin/geofence/editor/{sid}/cancel",
		"/v1/admin/geofence/editor/{sid}/save",
		"/graphql",
	}
	for _, path := range expectedPaths {
		if item := doc.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found", path)
		}
	}

	expectedSchemas := []string{
		"APIError",
		"Coordinate",
		"Geofence",
		"Station",
		"FareQuote",
		"FlowSnapshot",
		"Booking",
		"BookingStatusEvent",
		"Driver",
		"EditorSnapshot",
		"Pagination",
	}
	for _, schema := range expectedSchemas {
		if doc.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}

	t.Logf("OpenAPI document valid: %d paths, %d schemas", len(doc.Paths.Map()), len(doc.Components.Schemas))
}

// TestOpenAPIInfo verifies document metadata.
func TestOpenAPIInfo(t *testing.T) {
	doc := loadOpenAPI(t)

	if doc.Info.Title != "TrikeRide API" {
		t.Errorf("expected title 'TrikeRide API', got %q", doc.Info.Title)
	}
	if doc.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", doc.Info.Version)
	}
	if doc.Info.Description == "" {
		t.Error("expected non-empty description")
	}
	if len(doc.Servers) == 0 {
		t.Fatal("expected at least one server")
	}
}

func TestAPIErrorCodesDocumented(t *testing.T) {
	doc := loadOpenAPI(t)
	code := doc.Components.Schemas["APIError"].Value.Properties["code"].Value
	want := map[string]bool{"bad_request": false, "not_found": false, "conflict": false, "unprocessable": false, "internal_error": false}
	for _, v := range code.Enum {
		if s, ok := v.(string); ok {
			if _, tracked := want[s]; tracked {
				want[s] = true
			}
		}
	}
	for c, seen := range want {
		if !seen {
			t.Errorf("error code %s missing from APIError enum", c)
		}
	}
}

func TestDocsServeJSON(t *testing.T) {
	env := setupTestApp(t, "")
	status, body := env.do(t, "GET", "/docs/openapi.json", nil)
	expectStatus(t, status, 200, body)
	if body["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v", body["openapi"])
	}
	paths, _ := body["paths"].(map[string]any)
	if _, ok := paths["/v1/sessions/{id}/verify"]; !ok {
		t.Errorf("json document missing verify path")
	}
}
