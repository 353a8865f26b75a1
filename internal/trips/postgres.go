package trips

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/internal/apperrors"
	"freight-service/internal/claims"
	"freight-service/internal/drivers"
	rredis "freight-service/pkg/redis"
)

// PGStore is the pgx-backed trip lifecycle Store. It also owns the
// driver-side mutations the lifecycle makes (status, position) and the
// claim writes completion performs.
type PGStore struct {
	db    *pgxpool.Pool
	redis *rredis.Client
}

// NewPGStore wraps a pgx pool. redis may be nil; position clearing
// then only touches the drivers table.
func NewPGStore(db *pgxpool.Pool, redis *rredis.Client) *PGStore {
	return &PGStore{db: db, redis: redis}
}

const tripColumns = `id,driver_id,source,destination,goods_type,planned_distance_km,
	planned_duration_minutes,status,actual_start_time,actual_end_time,created_at`

func scanTrip(row interface{ Scan(dest ...any) error }) (*Trip, error) {
	var t Trip
	err := row.Scan(&t.ID, &t.DriverID, &t.Source, &t.Destination, &t.GoodsType,
		&t.PlannedDistanceKm, &t.PlannedDurationMinutes, &t.Status,
		&t.ActualStartTime, &t.ActualEndTime, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTrip inserts a new ASSIGNED trip.
func (s *PGStore) CreateTrip(ctx context.Context, t *Trip) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO trips (id,driver_id,source,destination,goods_type,
		                    planned_distance_km,planned_duration_minutes,status,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.DriverID, t.Source, t.Destination, t.GoodsType,
		t.PlannedDistanceKm, t.PlannedDurationMinutes, t.Status, t.CreatedAt)
	return err
}

// GetTrip fetches a trip by primary key.
func (s *PGStore) GetTrip(ctx context.Context, id string) (*Trip, error) {
	t, err := scanTrip(s.db.QueryRow(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id=$1`, id))
	if err != nil {
		return nil, apperrors.NotFoundf("trip %s", id)
	}
	return t, nil
}

// ActiveTripForDriver returns the driver's non-terminal trip, nil if none.
func (s *PGStore) ActiveTripForDriver(ctx context.Context, driverID string) (*Trip, error) {
	t, err := scanTrip(s.db.QueryRow(ctx,
		`SELECT `+tripColumns+` FROM trips
		 WHERE driver_id=$1 AND status IN ($2,$3)
		 ORDER BY created_at DESC LIMIT 1`,
		driverID, StatusAssigned, StatusStarted))
	if err != nil {
		return nil, nil
	}
	return t, nil
}

// MarkStarted conditionally flips ASSIGNED -> STARTED.
func (s *PGStore) MarkStarted(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE trips SET status=$1, actual_start_time=$2
		 WHERE id=$3 AND status=$4`,
		StatusStarted, at, id, StatusAssigned)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCompleted conditionally flips STARTED -> COMPLETED.
func (s *PGStore) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE trips SET status=$1, actual_end_time=$2
		 WHERE id=$3 AND status=$4`,
		StatusCompleted, at, id, StatusStarted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetDriver fetches the driver with its rate card.
func (s *PGStore) GetDriver(ctx context.Context, id string) (*drivers.Driver, error) {
	var d drivers.Driver
	err := s.db.QueryRow(ctx,
		`SELECT id,name,email,phone,vehicle_id,vehicle_name,status,
		        base_rate_per_km,mileage_kmpl,fuel_price_per_l,last_lat,last_lng,created_at
		 FROM drivers WHERE id=$1`, id).
		Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.VehicleID, &d.VehicleName, &d.Status,
			&d.RatePerKm, &d.MileageKmPerL, &d.FuelPricePerL, &d.LastLat, &d.LastLng, &d.CreatedAt)
	if err != nil {
		return nil, apperrors.NotFoundf("driver %s", id)
	}
	return &d, nil
}

// ClaimDriver conditionally flips an AVAILABLE driver to ASSIGNED.
func (s *PGStore) ClaimDriver(ctx context.Context, driverID string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE drivers SET status=$1 WHERE id=$2 AND status=$3`,
		drivers.StatusAssigned, driverID, drivers.StatusAvailable)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetDriverStatus updates the driver's operational status.
func (s *PGStore) SetDriverStatus(ctx context.Context, driverID, status string) error {
	_, err := s.db.Exec(ctx, `UPDATE drivers SET status=$1 WHERE id=$2`, status, driverID)
	return err
}

// ClearDriverPosition nulls the last known position and drops the
// driver from the live GEO set.
func (s *PGStore) ClearDriverPosition(ctx context.Context, driverID string) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE drivers SET last_lat=NULL, last_lng=NULL WHERE id=$1`, driverID); err != nil {
		return err
	}
	if s.redis != nil {
		return s.redis.RemoveDriverLocation(ctx, driverID)
	}
	return nil
}

// DeleteGeneratedClaims removes the driver's live generated claims.
func (s *PGStore) DeleteGeneratedClaims(ctx context.Context, driverID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM claims WHERE driver_id=$1 AND validation_status=$2`,
		driverID, claims.StatusGenerated)
	return err
}

// UpsertClaim inserts a claim, replacing any prior row for the same
// (trip_id, claim_type) so a trip never carries duplicates.
func (s *PGStore) UpsertClaim(ctx context.Context, c *claims.Claim) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO claims (id,trip_id,driver_id,claim_type,claimed_value,
		                     system_calculated_value,approved,validation_status,reason,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (trip_id, claim_type) DO UPDATE SET
		   claimed_value=EXCLUDED.claimed_value,
		   system_calculated_value=EXCLUDED.system_calculated_value,
		   approved=EXCLUDED.approved,
		   validation_status=EXCLUDED.validation_status,
		   reason=EXCLUDED.reason`,
		c.ID, c.TripID, c.DriverID, c.ClaimType, c.ClaimedValue,
		c.SystemCalculatedValue, c.Approved, c.ValidationStatus, c.Reason, c.CreatedAt)
	return err
}
