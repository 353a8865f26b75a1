// Package payout computes a driver's settlement for a completed trip.
// It is pure: no I/O, no clock, deterministic for identical inputs.
package payout

import "freight-service/internal/apperrors"

// Policy defaults applied when a driver's rate card leaves a field unset.
const (
	DefaultRatePerKm     = 12.0 // currency per km
	DefaultMileageKmPerL = 4.0  // km per litre
	DefaultFuelPricePerL = 90.0 // currency per litre
)

// RateCard holds a driver's financial parameters. Zero or negative
// fields mean "unset" and take the policy defaults.
type RateCard struct {
	RatePerKm     float64 `json:"rate_per_km"`
	MileageKmPerL float64 `json:"mileage_kmpl"`
	FuelPricePerL float64 `json:"fuel_price_per_l"`
}

// normalized returns the card with defaults applied. A non-positive
// mileage would mean dividing by zero downstream, so it always falls
// back to the default.
func (rc RateCard) normalized() RateCard {
	if rc.RatePerKm <= 0 {
		rc.RatePerKm = DefaultRatePerKm
	}
	if rc.MileageKmPerL <= 0 {
		rc.MileageKmPerL = DefaultMileageKmPerL
	}
	if rc.FuelPricePerL <= 0 {
		rc.FuelPricePerL = DefaultFuelPricePerL
	}
	return rc
}

// Breakdown is the itemised result of a payout computation.
type Breakdown struct {
	BaseSalary  float64 `json:"base_salary"`
	FuelLiters  float64 `json:"fuel_liters"`
	FuelCost    float64 `json:"fuel_cost"`
	TotalPayout float64 `json:"total_payout"`
}

// Compute derives the payout for distanceKm under the given rate card.
// distanceKm must be non-negative.
func Compute(distanceKm float64, rc RateCard) (Breakdown, error) {
	if distanceKm < 0 {
		return Breakdown{}, apperrors.Validationf("distance must be non-negative, got %v", distanceKm)
	}
	rc = rc.normalized()

	base := distanceKm * rc.RatePerKm
	liters := distanceKm / rc.MileageKmPerL
	fuel := liters * rc.FuelPricePerL

	return Breakdown{
		BaseSalary:  base,
		FuelLiters:  liters,
		FuelCost:    fuel,
		TotalPayout: base + fuel,
	}, nil
}
