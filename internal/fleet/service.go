package fleet

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/internal/apperrors"
	"freight-service/internal/drivers"
	"freight-service/internal/trips"
)

// Service answers fleet reporting queries.
type Service struct {
	db             *pgxpool.Pool
	emissionFactor float64
}

// NewService creates a fleet service. A non-positive emissionFactor
// falls back to DefaultEmissionFactorKgPerKm.
func NewService(db *pgxpool.Pool, emissionFactor float64) *Service {
	if emissionFactor <= 0 {
		emissionFactor = DefaultEmissionFactorKgPerKm
	}
	return &Service{db: db, emissionFactor: emissionFactor}
}

// IdleVehicles lists drivers currently AVAILABLE along with their trucks.
func (s *Service) IdleVehicles(ctx context.Context) ([]IdleVehicle, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, vehicle_id, vehicle_name FROM drivers WHERE status=$1 ORDER BY name`,
		drivers.StatusAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IdleVehicle
	for rows.Next() {
		var v IdleVehicle
		if err := rows.Scan(&v.DriverID, &v.DriverName, &v.VehicleID, &v.VehicleName); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Emissions aggregates completed-trip distance into CO2 figures, broken
// down per driver. Planned distance is used: it is the recorded length
// of the haul.
func (s *Service) Emissions(ctx context.Context) (*EmissionSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT t.driver_id, d.name, COUNT(*), COALESCE(SUM(t.planned_distance_km),0)
		 FROM trips t JOIN drivers d ON d.id = t.driver_id
		 WHERE t.status=$1
		 GROUP BY t.driver_id, d.name
		 ORDER BY SUM(t.planned_distance_km) DESC`,
		trips.StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &EmissionSummary{EmissionFactorKgKm: s.emissionFactor}
	for rows.Next() {
		var e DriverEmission
		if err := rows.Scan(&e.DriverID, &e.DriverName, &e.CompletedTrips, &e.DistanceKm); err != nil {
			return nil, err
		}
		e.EmissionsKgCO2 = e.DistanceKm * s.emissionFactor
		summary.PerDriver = append(summary.PerDriver, e)
		summary.TotalDistanceKm += e.DistanceKm
		summary.CompletedTrips += e.CompletedTrips
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary.TotalEmissionsKgCO2 = summary.TotalDistanceKm * s.emissionFactor
	for i := range summary.PerDriver {
		if summary.TotalDistanceKm > 0 {
			summary.PerDriver[i].ShareOfTotalPct = summary.PerDriver[i].DistanceKm / summary.TotalDistanceKm * 100
		}
	}
	return summary, nil
}

// StatsForDriver returns the consumer-maintained aggregate for one driver.
func (s *Service) StatsForDriver(ctx context.Context, driverID string) (*DriverStats, error) {
	var st DriverStats
	err := s.db.QueryRow(ctx,
		`SELECT driver_id, completed_trips, total_earnings, total_distance_km, updated_at
		 FROM driver_stats WHERE driver_id=$1`, driverID).
		Scan(&st.DriverID, &st.CompletedTrips, &st.TotalEarnings, &st.TotalDistanceKm, &st.UpdatedAt)
	if err != nil {
		return nil, apperrors.NotFoundf("no stats recorded for driver %s", driverID)
	}
	return &st, nil
}
