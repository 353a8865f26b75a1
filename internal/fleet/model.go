package fleet

import "time"

// DefaultEmissionFactorKgPerKm is the CO2 factor applied to completed
// trip distance when none is configured.
const DefaultEmissionFactorKgPerKm = 0.18

// IdleVehicle is an available driver with their vehicle.
type IdleVehicle struct {
	DriverID    string `json:"driver_id"`
	DriverName  string `json:"driver_name"`
	VehicleID   string `json:"vehicle_id"`
	VehicleName string `json:"vehicle_name"`
}

// EmissionSummary reports fleet-wide CO2 from completed trips.
type EmissionSummary struct {
	TotalDistanceKm     float64          `json:"total_distance_km"`
	EmissionFactorKgKm  float64          `json:"emission_factor_kg_per_km"`
	TotalEmissionsKgCO2 float64          `json:"total_emissions_kg_co2"`
	CompletedTrips      int              `json:"completed_trips"`
	PerDriver           []DriverEmission `json:"per_driver"`
}

// DriverEmission is one driver's share of the emission summary.
type DriverEmission struct {
	DriverID        string  `json:"driver_id"`
	DriverName      string  `json:"driver_name"`
	CompletedTrips  int     `json:"completed_trips"`
	DistanceKm      float64 `json:"distance_km"`
	EmissionsKgCO2  float64 `json:"emissions_kg_co2"`
	ShareOfTotalPct float64 `json:"share_of_total_pct"`
}

// DriverStats is the per-driver aggregate maintained by the consumer.
type DriverStats struct {
	DriverID        string    `json:"driver_id"`
	CompletedTrips  int       `json:"completed_trips"`
	TotalEarnings   float64   `json:"total_earnings"`
	TotalDistanceKm float64   `json:"total_distance_km"`
	UpdatedAt       time.Time `json:"updated_at"`
}
