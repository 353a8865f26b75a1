package trips

import "time"

// TripStatus enumerates the lifecycle states. Transitions only move
// forward: ASSIGNED -> STARTED -> COMPLETED.
const (
	StatusAssigned  = "ASSIGNED"
	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"
)

// Completion reasons.
const (
	CompleteManual = "MANUAL"
	CompleteAuto   = "AUTO"
)

// Trip represents a single haul. PlannedDistanceKm and
// PlannedDurationMinutes are fixed at assignment from one routing query
// and are never overwritten; planned distance is the sole distance
// input to payout computation.
type Trip struct {
	ID                     string     `json:"id"`
	DriverID               string     `json:"driver_id"`
	Source                 string     `json:"source"`
	Destination            string     `json:"destination"`
	GoodsType              string     `json:"goods_type,omitempty"`
	PlannedDistanceKm      float64    `json:"planned_distance_km"`
	PlannedDurationMinutes float64    `json:"planned_duration_minutes"`
	Status                 string     `json:"status"`
	ActualStartTime        *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime          *time.Time `json:"actual_end_time,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// AssignRequest is the body for POST /trips/assign.
type AssignRequest struct {
	DriverID    string `json:"driver_id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	GoodsType   string `json:"goods_type,omitempty"`
}

// CompleteRequest is the optional body for PATCH /trips/:id/complete.
type CompleteRequest struct {
	Reason string `json:"reason,omitempty"` // MANUAL (default) or AUTO
}
