package claims

import "time"

// Validation lifecycle states. generated is the only state the driver
// can act on; pending_review is the only state the admin can act on;
// the other three are terminal.
const (
	StatusGenerated        = "generated"
	StatusAcceptedByDriver = "accepted_by_driver"
	StatusPendingReview    = "pending_review"
	StatusApprovedByAdmin  = "approved_by_admin"
	StatusRejectedByAdmin  = "rejected_by_admin"
)

// TypeTotalPayout is the single claim type generated per trip:
// base salary plus fuel cost.
const TypeTotalPayout = "TOTAL_PAYOUT"

// Claim is a driver's payout request for one completed trip.
type Claim struct {
	ID                    string     `json:"id"`
	TripID                string     `json:"trip_id"`
	DriverID              string     `json:"driver_id"`
	ClaimType             string     `json:"claim_type"`
	ClaimedValue          float64    `json:"claimed_value"`
	SystemCalculatedValue float64    `json:"system_calculated_value"`
	Approved              *bool      `json:"approved"`
	ValidationStatus      string     `json:"validation_status"`
	Reason                string     `json:"reason,omitempty"` // payout breakdown note
	DisputeReason         string     `json:"dispute_reason,omitempty"`
	DisputeDescription    string     `json:"dispute_description,omitempty"`
	ProofImageURL         string     `json:"proof_image_url,omitempty"`
	DisputeLat            *float64   `json:"dispute_lat,omitempty"`
	DisputeLng            *float64   `json:"dispute_lng,omitempty"`
	RiskScore             int        `json:"risk_score"`
	TripSource            string     `json:"trip_source,omitempty"`
	TripDestination       string     `json:"trip_destination,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	ResolvedAt            *time.Time `json:"resolved_at,omitempty"`
}

// DisputeDraft carries the fields a driver submits when contesting a
// generated claim. Reason and Description are required; the proof image
// is an already-uploaded object reference.
type DisputeDraft struct {
	Reason        string   `json:"reason"`
	Description   string   `json:"description"`
	ProofImageURL string   `json:"proof_image_url,omitempty"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
}

// ApproveRequest is the body for PATCH /claims/:id/approve.
// Confirmed must be true for scores in the confirm-override band.
type ApproveRequest struct {
	Confirmed bool `json:"confirmed"`
}
