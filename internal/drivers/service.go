package drivers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"freight-service/internal/apperrors"
	"freight-service/pkg/jwt"
	rredis "freight-service/pkg/redis"
	"freight-service/pkg/validation"
)

// PositionListener is notified after a location update has been
// persisted, e.g. to feed live trip tracking.
type PositionListener func(ctx context.Context, driverID string, lat, lng float64)

// Service contains driver account and position logic.
type Service struct {
	db       *pgxpool.Pool
	redis    *rredis.Client
	listener PositionListener
}

// NewService creates a driver service.
func NewService(db *pgxpool.Pool, redis *rredis.Client) *Service {
	return &Service{db: db, redis: redis}
}

// SetPositionListener registers the listener called on every
// successful location update.
func (s *Service) SetPositionListener(l PositionListener) { s.listener = l }

// Register creates a new driver account and returns a JWT.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if !validation.ValidateName(req.Name) || !validation.ValidateEmail(req.Email) {
		return nil, apperrors.Validationf("name and a valid email are required")
	}
	if !validation.ValidatePassword(req.Password) {
		return nil, apperrors.Validationf("password must be 6-100 characters")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM drivers WHERE email=$1)", req.Email).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.New("email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.db.Exec(ctx,
		`INSERT INTO drivers (id,name,email,phone,password_hash,vehicle_id,vehicle_name,
		                      status,base_rate_per_km,mileage_kmpl,fuel_price_per_l)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		id, req.Name, req.Email, req.Phone, string(hash), req.VehicleID, req.VehicleName,
		StatusAvailable, req.RatePerKm, req.MileageKmPerL, req.FuelPricePerL)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Generate(id, req.Email, jwt.RoleDriver)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		Driver: &Driver{
			ID: id, Name: req.Name, Email: req.Email, Phone: req.Phone,
			VehicleID: req.VehicleID, VehicleName: req.VehicleName,
			Status:    StatusAvailable,
			RatePerKm: req.RatePerKm, MileageKmPerL: req.MileageKmPerL, FuelPricePerL: req.FuelPricePerL,
		},
	}, nil
}

// Login authenticates a driver and returns a JWT.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var d Driver
	err := s.db.QueryRow(ctx,
		`SELECT id,name,email,phone,password_hash,vehicle_id,vehicle_name,status,
		        base_rate_per_km,mileage_kmpl,fuel_price_per_l,last_lat,last_lng,created_at
		 FROM drivers WHERE email=$1`, req.Email).
		Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.PasswordHash, &d.VehicleID, &d.VehicleName,
			&d.Status, &d.RatePerKm, &d.MileageKmPerL, &d.FuelPricePerL, &d.LastLat, &d.LastLng, &d.CreatedAt)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(d.PasswordHash), []byte(req.Password)) != nil {
		return nil, errors.New("invalid credentials")
	}

	token, err := jwt.Generate(d.ID, d.Email, jwt.RoleDriver)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, Driver: &d}, nil
}

// GetByID fetches a driver by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*Driver, error) {
	var d Driver
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

// UpdateLocation records the driver's position while a trip is live.
// It feeds the display path only, never payout computation.
func (s *Service) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if !validation.ValidateCoordinates(lat, lng) {
		return apperrors.Validationf("coordinates out of range")
	}
	if _, err := s.db.Exec(ctx,
		`UPDATE drivers SET last_lat=$1, last_lng=$2 WHERE id=$3`, lat, lng, driverID); err != nil {
		return err
	}
	if err := s.redis.SetDriverLocation(ctx, driverID, lat, lng); err != nil {
		return err
	}
	if s.listener != nil {
		s.listener(ctx, driverID, lat, lng)
	}
	return nil
}

// GetNearby returns driver IDs within radiusKm of the given point.
func (s *Service) GetNearby(ctx context.Context, lat, lng, radiusKm float64) ([]string, error) {
	return s.redis.GetNearbyDrivers(ctx, lat, lng, radiusKm, 10)
}

// ListAvailable returns drivers ready to take a trip.
func (s *Service) ListAvailable(ctx context.Context) ([]Driver, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id,name,email,phone,vehicle_id,vehicle_name,status,
		        base_rate_per_km,mileage_kmpl,fuel_price_per_l,last_lat,last_lng,created_at
		 FROM drivers WHERE status=$1 ORDER BY name`, StatusAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.VehicleID, &d.VehicleName, &d.Status,
			&d.RatePerKm, &d.MileageKmPerL, &d.FuelPricePerL, &d.LastLat, &d.LastLng, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
