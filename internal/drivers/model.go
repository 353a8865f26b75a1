package drivers

import (
	"time"

	"freight-service/internal/payout"
)

// Operational status values. A driver has at most one non-terminal trip,
// which is what ASSIGNED / ON_TRIP encode.
const (
	StatusAvailable = "AVAILABLE"
	StatusAssigned  = "ASSIGNED"
	StatusOnTrip    = "ON_TRIP"
)

// Driver represents a driver account with its rate card.
type Driver struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	PasswordHash  string    `json:"-"`
	VehicleID     string    `json:"vehicle_id"`
	VehicleName   string    `json:"vehicle_name"`
	Status        string    `json:"status"`
	RatePerKm     *float64  `json:"base_rate_per_km,omitempty"`
	MileageKmPerL *float64  `json:"mileage_kmpl,omitempty"`
	FuelPricePerL *float64  `json:"fuel_price_per_l,omitempty"`
	LastLat       *float64  `json:"last_lat,omitempty"`
	LastLng       *float64  `json:"last_lng,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RateCard converts the driver's nullable rate columns into a payout
// rate card; unset fields take the policy defaults downstream.
func (d *Driver) RateCard() payout.RateCard {
	rc := payout.RateCard{}
	if d.RatePerKm != nil {
		rc.RatePerKm = *d.RatePerKm
	}
	if d.MileageKmPerL != nil {
		rc.MileageKmPerL = *d.MileageKmPerL
	}
	if d.FuelPricePerL != nil {
		rc.FuelPricePerL = *d.FuelPricePerL
	}
	return rc
}

// RegisterRequest is the body for POST /drivers/register.
type RegisterRequest struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	Password      string   `json:"password"`
	VehicleID     string   `json:"vehicle_id"`
	VehicleName   string   `json:"vehicle_name"`
	RatePerKm     *float64 `json:"base_rate_per_km,omitempty"`
	MileageKmPerL *float64 `json:"mileage_kmpl,omitempty"`
	FuelPricePerL *float64 `json:"fuel_price_per_l,omitempty"`
}

// LoginRequest is the body for POST /drivers/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LocationUpdate is the body for PATCH /drivers/:id/location.
type LocationUpdate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AuthResponse is returned on register / login.
type AuthResponse struct {
	Token  string  `json:"token"`
	Driver *Driver `json:"driver,omitempty"`
}
