package shipments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/internal/apperrors"
	"freight-service/pkg/validation"
)

// Service contains shipment request logic.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a shipments service backed by the given pool.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// Create records a new pending shipment request.
func (s *Service) Create(ctx context.Context, createdBy string, req CreateRequest) (*Request, error) {
	if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Destination) == "" {
		return nil, apperrors.Validationf("source and destination are required")
	}
	if strings.TrimSpace(req.TypeOfGoods) == "" {
		return nil, apperrors.Validationf("type_of_goods is required")
	}
	if !validation.ValidateLoadKg(req.LoadKg) {
		return nil, apperrors.Validationf("load_kg must be between 0 and 50000")
	}
	switch req.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	case "":
		req.Priority = PriorityMedium
	default:
		return nil, apperrors.Validationf("priority must be LOW, MEDIUM or HIGH")
	}

	r := &Request{
		ID:          uuid.New().String(),
		TruckName:   strings.TrimSpace(req.TruckName),
		Source:      strings.TrimSpace(req.Source),
		Destination: strings.TrimSpace(req.Destination),
		TypeOfGoods: strings.TrimSpace(req.TypeOfGoods),
		LoadKg:      req.LoadKg,
		Priority:    req.Priority,
		Status:      StatusPending,
		CreatedBy:   createdBy,
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO shipment_requests (id,truck_name,source,destination,type_of_goods,load_kg,priority,status,created_by)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING created_at`,
		r.ID, r.TruckName, r.Source, r.Destination, r.TypeOfGoods, r.LoadKg, r.Priority, r.Status, r.CreatedBy).
		Scan(&r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert shipment request: %w", err)
	}
	return r, nil
}

// ListPending returns requests not yet consolidated, high priority first.
func (s *Service) ListPending(ctx context.Context) ([]Request, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id,truck_name,source,destination,type_of_goods,load_kg,priority,status,created_by,created_at
		 FROM shipment_requests WHERE status=$1
		 ORDER BY CASE priority WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 ELSE 2 END, created_at`,
		StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Consolidate groups the given pending requests onto one vehicle run. All
// requests must share a source and destination and fit the capacity; on
// success they are marked CONSOLIDATED atomically.
func (s *Service) Consolidate(ctx context.Context, req ConsolidateRequest) (*Consolidation, error) {
	if len(req.RequestIDs) == 0 {
		return nil, apperrors.Validationf("request_ids is required")
	}
	if req.VehicleCapacityKg <= 0 {
		return nil, apperrors.Validationf("vehicle_capacity_kg must be positive")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT id,truck_name,source,destination,type_of_goods,load_kg,priority,status,created_by,created_at
		 FROM shipment_requests WHERE id = ANY($1) FOR UPDATE`,
		req.RequestIDs)
	if err != nil {
		return nil, err
	}
	requests, err := collect(rows)
	if err != nil {
		return nil, err
	}
	if len(requests) != len(req.RequestIDs) {
		return nil, apperrors.NotFoundf("one or more shipment requests do not exist")
	}

	c := &Consolidation{
		Requests:    requests,
		CapacityKg:  req.VehicleCapacityKg,
		Source:      requests[0].Source,
		Destination: requests[0].Destination,
	}
	goods := make([]string, 0, len(requests))
	for _, r := range requests {
		if r.Status != StatusPending {
			return nil, apperrors.InvalidStatef("shipment request %s is %s, not %s", r.ID, r.Status, StatusPending)
		}
		if r.Source != c.Source || r.Destination != c.Destination {
			return nil, apperrors.Validationf("all requests must share a source and destination")
		}
		c.TotalLoadKg += r.LoadKg
		goods = append(goods, r.TypeOfGoods)
	}
	if c.TotalLoadKg > c.CapacityKg {
		return nil, apperrors.Validationf("total load %.0f kg exceeds vehicle capacity %.0f kg", c.TotalLoadKg, c.CapacityKg)
	}
	c.UtilizationPct = c.TotalLoadKg / c.CapacityKg * 100
	c.TypeOfGoods = strings.Join(goods, ", ")

	_, err = tx.Exec(ctx,
		`UPDATE shipment_requests SET status=$1 WHERE id = ANY($2)`,
		StatusConsolidated, req.RequestIDs)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func collect(rows pgx.Rows) ([]Request, error) {
	defer rows.Close()
	var out []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.TruckName, &r.Source, &r.Destination, &r.TypeOfGoods,
			&r.LoadKg, &r.Priority, &r.Status, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
