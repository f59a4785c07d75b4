package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/core/ports"
	"github.com/pilartoda/trikeride/internal/pkg/geospatial"
	"github.com/pilartoda/trikeride/internal/pkg/metrics"
	"github.com/pilartoda/trikeride/internal/pkg/telemetry"
)

const activeGeofenceKey = "geofence:active"

// GeofenceService reads the active service area and is the only writer of
// geofence polygons.
type GeofenceService struct {
	geofences   ports.GeofenceRepository
	cache       ports.CacheService
	publisher   ports.EventPublisher
	defaultName string
}

// NewGeofenceService creates a new GeofenceService. cache and publisher may be nil.
func NewGeofenceService(geofences ports.GeofenceRepository, cache ports.CacheService, publisher ports.EventPublisher, defaultName string) *GeofenceService {
	return &GeofenceService{geofences: geofences, cache: cache, publisher: publisher, defaultName: defaultName}
}

// Active returns the active geofence, read through the cache.
func (s *GeofenceService) Active(ctx context.Context) (*domain.Geofence, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, activeGeofenceKey); err == nil {
			var g domain.Geofence
			if err := json.Unmarshal(data, &g); err == nil {
				metrics.CacheHits.WithLabelValues("geofence").Inc()
				return &g, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("geofence").Inc()
	}

	g, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	// Cache for 5 minutes; saves invalidate explicitly.
	if s.cache != nil {
		if data, err := json.Marshal(g); err == nil {
			_ = s.cache.Set(ctx, activeGeofenceKey, data, 300)
		}
	}
	return g, nil
}

// Load reads the active geofence straight from the store, falling back to
// the configured default name when no row is flagged active.
func (s *GeofenceService) Load(ctx context.Context) (*domain.Geofence, error) {
	g, err := s.geofences.GetActive(ctx)
	if err == nil {
		return g, nil
	}
	if !domain.IsNotFound(err) || s.defaultName == "" {
		return nil, fmt.Errorf("load active geofence: %w", err)
	}
	g, err = s.geofences.GetByName(ctx, s.defaultName)
	if err != nil {
		return nil, fmt.Errorf("load geofence %q: %w", s.defaultName, err)
	}
	return g, nil
}

// Contains reports whether c lies inside the active geofence.
func (s *GeofenceService) Contains(ctx context.Context, c domain.Coordinate) (bool, error) {
	g, err := s.Active(ctx)
	if err != nil {
		return false, err
	}
	return geospatial.PointInPolygon(c, g.Polygon), nil
}

// SavePolygon replaces the polygon of one geofence, drops the cached copy and
// broadcasts the change.
func (s *GeofenceService) SavePolygon(ctx context.Context, id string, polygon domain.Polygon) error {
	ctx, span := telemetry.Tracer().Start(ctx, "GeofenceService.SavePolygon")
	defer span.End()
	span.SetAttributes(attribute.String("geofence.id", id), attribute.Int("geofence.vertices", len(polygon)))

	if err := s.geofences.ReplacePolygon(ctx, id, polygon); err != nil {
		metrics.GeofenceSaves.WithLabelValues("error").Inc()
		span.RecordError(err)
		return err
	}
	metrics.GeofenceSaves.WithLabelValues("ok").Inc()

	if s.cache != nil {
		if err := s.cache.Delete(ctx, activeGeofenceKey); err != nil {
			slog.WarnContext(ctx, "geofence cache invalidation failed", "error", err)
		}
	}
	if s.publisher != nil {
		g := &domain.Geofence{ID: id, Polygon: polygon, IsActive: true}
		if err := s.publisher.PublishGeofenceUpdated(ctx, g); err != nil {
			slog.WarnContext(ctx, "geofence update broadcast failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "geofence saved", "geofence_id", id, "vertices", len(polygon))
	return nil
}

// Saver binds SavePolygon to one geofence for an editor session.
func (s *GeofenceService) Saver(id string) PolygonSaver {
	return PolygonSaverFunc(func(ctx context.Context, polygon domain.Polygon) error {
		return s.SavePolygon(ctx, id, polygon)
	})
}

// InvalidateCache drops the cached active geofence, e.g. when another
// instance broadcasts an update.
func (s *GeofenceService) InvalidateCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, activeGeofenceKey)
	}
}
