package events

// LatLng is a coordinate pair used in event payloads.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TripAssignedEvent is published to trip.assigned.
type TripAssignedEvent struct {
	TripID            string  `json:"trip_id"`
	DriverID          string  `json:"driver_id"`
	Source            string  `json:"source"`
	Destination       string  `json:"destination"`
	PlannedDistanceKm float64 `json:"planned_distance_km"`
	AssignedAt        string  `json:"assigned_at"`
}

// TripCompletedEvent is published to trip.completed.
type TripCompletedEvent struct {
	TripID          string  `json:"trip_id"`
	DriverID        string  `json:"driver_id"`
	DistanceKm      float64 `json:"distance_km"`
	TotalPayout     float64 `json:"total_payout"`
	Reason          string  `json:"reason"` // MANUAL or AUTO
	CompletedAt     string  `json:"completed_at"`
	DurationSeconds int64   `json:"duration_seconds"`
}

// ClaimGeneratedEvent is published to claim.generated.
type ClaimGeneratedEvent struct {
	ClaimID     string  `json:"claim_id"`
	TripID      string  `json:"trip_id"`
	DriverID    string  `json:"driver_id"`
	TotalPayout float64 `json:"total_payout"`
	GeneratedAt string  `json:"generated_at"`
}

// ClaimDisputedEvent is published to claim.disputed.
type ClaimDisputedEvent struct {
	ClaimID  string  `json:"claim_id"`
	DriverID string  `json:"driver_id"`
	Reason   string  `json:"reason"`
	Location *LatLng `json:"location,omitempty"`
}

// ClaimResolvedEvent is published to claim.resolved.
type ClaimResolvedEvent struct {
	ClaimID    string `json:"claim_id"`
	DriverID   string `json:"driver_id"`
	Approved   bool   `json:"approved"`
	RiskScore  int    `json:"risk_score"`
	ResolvedAt string `json:"resolved_at"`
}
