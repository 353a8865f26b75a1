package shipments

import "time"

// Request statuses.
const (
	StatusPending      = "PENDING"
	StatusConsolidated = "CONSOLIDATED"
)

// Priorities accepted on intake.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Request is a warehouse shipment request waiting to be put on a truck.
type Request struct {
	ID          string    `json:"id"`
	TruckName   string    `json:"truck_name"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	TypeOfGoods string    `json:"type_of_goods"`
	LoadKg      float64   `json:"load_kg"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRequest is the body for POST /shipments.
type CreateRequest struct {
	TruckName   string  `json:"truck_name"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	TypeOfGoods string  `json:"type_of_goods"`
	LoadKg      float64 `json:"load_kg"`
	Priority    string  `json:"priority"`
}

// ConsolidateRequest groups pending requests onto one vehicle.
type ConsolidateRequest struct {
	RequestIDs        []string `json:"request_ids"`
	VehicleCapacityKg float64  `json:"vehicle_capacity_kg"`
}

// Consolidation is the result of grouping requests for one vehicle run.
type Consolidation struct {
	Requests       []Request `json:"requests"`
	TotalLoadKg    float64   `json:"total_load_kg"`
	CapacityKg     float64   `json:"capacity_kg"`
	UtilizationPct float64   `json:"utilization_pct"`
	Source         string    `json:"source"`
	Destination    string    `json:"destination"`
	TypeOfGoods    string    `json:"type_of_goods"`
}
