package usecases

import (
	"context"
	"encoding/json"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/core/ports"
	"github.com/pilartoda/trikeride/internal/pkg/metrics"
)

const activeStationsKey = "stations:active"

// StationService reads the fixed drop-off stations.
type StationService struct {
	stations ports.StationRepository
	cache    ports.CacheService
}

// NewStationService creates a new StationService.
func NewStationService(stations ports.StationRepository, cache ports.CacheService) *StationService {
	return &StationService{stations: stations, cache: cache}
}

// ListActive returns all active stations.
func (s *StationService) ListActive(ctx context.Context) ([]domain.Station, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, activeStationsKey); err == nil {
			var stations []domain.Station
			if err := json.Unmarshal(data, &stations); err == nil {
				metrics.CacheHits.WithLabelValues("stations").Inc()
				return stations, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("stations").Inc()
	}

	stations, err := s.stations.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	// Cache for 10 minutes (stations rarely change)
	if s.cache != nil {
		if data, err := json.Marshal(stations); err == nil {
			_ = s.cache.Set(ctx, activeStationsKey, data, 600)
		}
	}
	return stations, nil
}

// GetByID returns a single station.
func (s *StationService) GetByID(ctx context.Context, id string) (*domain.Station, error) {
	return s.stations.GetByID(ctx, id)
}
