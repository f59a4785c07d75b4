// Package fare prices tricycle trips.
package fare

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

// Schedule holds the tiered fare parameters.
type Schedule struct {
	VillageBase  decimal.Decimal
	OutboundBase decimal.Decimal
	PerKm        decimal.Decimal
}

// DefaultSchedule is the village tariff: 20 inside, 40 outbound, 10 per started km.
var DefaultSchedule = Schedule{
	VillageBase:  decimal.NewFromInt(20),
	OutboundBase: decimal.NewFromInt(40),
	PerKm:        decimal.NewFromInt(10),
}

// Base returns the flag-down fare for a trip type.
func (s Schedule) Base(t domain.TripType) decimal.Decimal {
	if t == domain.TripOutbound {
		return s.OutboundBase
	}
	return s.VillageBase
}

// Compute returns max(base, base + ceil(distanceKm) * perKm).
// distanceKm must be >= 0; NaN and negative distances add no surcharge.
func (s Schedule) Compute(t domain.TripType, distanceKm float64) decimal.Decimal {
	base := s.Base(t)
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm <= 0 {
		return base
	}
	surcharge := decimal.NewFromFloat(math.Ceil(distanceKm)).Mul(s.PerKm)
	return decimal.Max(base, base.Add(surcharge))
}

// Compute prices a trip with the default schedule.
func Compute(t domain.TripType, distanceKm float64) decimal.Decimal {
	return DefaultSchedule.Compute(t, distanceKm)
}
