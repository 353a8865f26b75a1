package trips

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"freight-service/internal/apperrors"
	"freight-service/internal/claims"
	"freight-service/internal/drivers"
	"freight-service/internal/events"
	"freight-service/internal/payout"
	"freight-service/internal/routing"
	"freight-service/pkg/kafka"
)

// Store is the persistence port for the trip lifecycle. Status
// transitions are conditional on the current persisted status and
// report whether a row changed, so a stale read can never re-run a
// transition another session already made.
type Store interface {
	CreateTrip(ctx context.Context, t *Trip) error
	GetTrip(ctx context.Context, id string) (*Trip, error)
	ActiveTripForDriver(ctx context.Context, driverID string) (*Trip, error)

	// MarkStarted flips ASSIGNED -> STARTED.
	MarkStarted(ctx context.Context, id string, at time.Time) (bool, error)
	// MarkCompleted flips STARTED -> COMPLETED.
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)

	GetDriver(ctx context.Context, id string) (*drivers.Driver, error)
	// ClaimDriver flips an AVAILABLE driver to ASSIGNED, reporting
	// whether the claim won. Conditional for the same reason the trip
	// transitions are: two assign sessions may both have read AVAILABLE.
	ClaimDriver(ctx context.Context, driverID string) (bool, error)
	SetDriverStatus(ctx context.Context, driverID, status string) error
	// ClearDriverPosition nulls the driver's last known position.
	ClearDriverPosition(ctx context.Context, driverID string) error

	// DeleteGeneratedClaims removes any live generated claims for the
	// driver so at most one exists at a time.
	DeleteGeneratedClaims(ctx context.Context, driverID string) error
	// UpsertClaim inserts a claim, replacing on (trip_id, claim_type).
	UpsertClaim(ctx context.Context, c *claims.Claim) error
}

// Service governs the trip lifecycle and generates the payout claim on
// completion.
type Service struct {
	store  Store
	router routing.Provider
	kafka  *kafka.Client
}

// NewService creates a trip service. kafka may be nil in tests.
func NewService(store Store, router routing.Provider, k *kafka.Client) *Service {
	return &Service{store: store, router: router, kafka: k}
}

// GetByID fetches a trip.
func (s *Service) GetByID(ctx context.Context, id string) (*Trip, error) {
	return s.store.GetTrip(ctx, id)
}

// CurrentForDriver returns the driver's non-terminal trip, or nil.
func (s *Service) CurrentForDriver(ctx context.Context, driverID string) (*Trip, error) {
	return s.store.ActiveTripForDriver(ctx, driverID)
}

// Assign creates a trip for an AVAILABLE driver. The routing provider
// is consulted exactly once here; its answer becomes the trip's
// financial truth and is never revised by later position readings.
func (s *Service) Assign(ctx context.Context, req AssignRequest) (*Trip, error) {
	if req.DriverID == "" || req.Source == "" || req.Destination == "" {
		return nil, apperrors.Validationf("driver_id, source and destination are required")
	}

	driver, err := s.store.GetDriver(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if driver.Status != drivers.StatusAvailable {
		return nil, apperrors.InvalidStatef("driver is %s, must be AVAILABLE to assign", driver.Status)
	}

	route, err := s.router.Route(ctx, req.Source, req.Destination)
	if err != nil {
		return nil, fmt.Errorf("routing %s -> %s: %w", req.Source, req.Destination, err)
	}

	// Claim the driver with a conditional write, not the read above: a
	// concurrent assign that also saw AVAILABLE must lose here.
	ok, err := s.store.ClaimDriver(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if cur, rerr := s.store.GetDriver(ctx, req.DriverID); rerr == nil {
			driver = cur
		}
		return nil, apperrors.InvalidStatef("driver is %s, must be AVAILABLE to assign", driver.Status)
	}

	now := time.Now()
	trip := &Trip{
		ID:                     uuid.New().String(),
		DriverID:               req.DriverID,
		Source:                 req.Source,
		Destination:            req.Destination,
		GoodsType:              req.GoodsType,
		PlannedDistanceKm:      route.DistanceKm,
		PlannedDurationMinutes: route.DurationMinutes,
		Status:                 StatusAssigned,
		CreatedAt:              now,
	}
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		// Release the claimed driver; the trip was never recorded.
		if rerr := s.store.SetDriverStatus(ctx, req.DriverID, drivers.StatusAvailable); rerr != nil {
			log.Printf("[trips] failed to release driver %s after aborted assign: %v", req.DriverID, rerr)
		}
		return nil, err
	}

	s.publishAssigned(trip, now)
	return trip, nil
}

// Start transitions ASSIGNED -> STARTED. The precondition is checked
// against the persisted row, not a cached read.
func (s *Service) Start(ctx context.Context, tripID string) (*Trip, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ok, err := s.store.MarkStarted(ctx, tripID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		if cur, rerr := s.store.GetTrip(ctx, tripID); rerr == nil {
			trip = cur
		}
		return nil, apperrors.InvalidStatef("trip is %s, only an ASSIGNED trip can start", trip.Status)
	}

	if err := s.store.SetDriverStatus(ctx, trip.DriverID, drivers.StatusOnTrip); err != nil {
		return nil, err
	}
	return s.store.GetTrip(ctx, tripID)
}

// Complete transitions STARTED -> COMPLETED and generates exactly one
// payout claim before returning. A trip already COMPLETED yields the
// benign ErrAlreadyCompleted no-op so a proximity trigger racing a
// manual end cannot produce a second claim.
func (s *Service) Complete(ctx context.Context, tripID, reason string) (*Trip, error) {
	if reason != CompleteAuto {
		reason = CompleteManual
	}

	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status == StatusCompleted {
		return trip, apperrors.ErrAlreadyCompleted
	}

	now := time.Now()
	ok, err := s.store.MarkCompleted(ctx, tripID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, rerr := s.store.GetTrip(ctx, tripID)
		if rerr == nil && cur.Status == StatusCompleted {
			// Lost the race to a concurrent completion; their claim stands.
			return cur, apperrors.ErrAlreadyCompleted
		}
		if rerr == nil {
			trip = cur
		}
		return nil, apperrors.InvalidStatef("trip is %s, only a STARTED trip can complete", trip.Status)
	}

	if err := s.store.SetDriverStatus(ctx, trip.DriverID, drivers.StatusAvailable); err != nil {
		log.Printf("[trips] failed to release driver %s: %v", trip.DriverID, err)
	}
	if err := s.store.ClearDriverPosition(ctx, trip.DriverID); err != nil {
		log.Printf("[trips] failed to clear position for driver %s: %v", trip.DriverID, err)
	}

	claim, err := s.generateClaim(ctx, tripID)
	if err != nil {
		// The trip is COMPLETED but the payout is not on record. This
		// must reach the caller so it can be retried, not vanish.
		return nil, fmt.Errorf("%w: trip %s completed without a claim: %v", apperrors.ErrClaimGeneration, tripID, err)
	}

	s.publishCompleted(trip, claim, reason, now)
	return s.store.GetTrip(ctx, tripID)
}

// generateClaim computes the payout from the trip's planned distance
// and the driver's rate card and writes the single TOTAL_PAYOUT claim.
func (s *Service) generateClaim(ctx context.Context, tripID string) (*claims.Claim, error) {
	// Re-fetch both records; missing either aborts.
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	driver, err := s.store.GetDriver(ctx, trip.DriverID)
	if err != nil {
		return nil, err
	}

	bd, err := payout.Compute(trip.PlannedDistanceKm, driver.RateCard())
	if err != nil {
		return nil, err
	}

	// Clear any stale generated claim left by an earlier failed or
	// duplicated completion. The idempotency guard in Complete is the
	// primary defense; this is cleanup, so a failure only logs.
	if err := s.store.DeleteGeneratedClaims(ctx, driver.ID); err != nil {
		log.Printf("[trips] failed to delete stale generated claims for driver %s: %v", driver.ID, err)
	}

	claim := &claims.Claim{
		ID:                    uuid.New().String(),
		TripID:                trip.ID,
		DriverID:              driver.ID,
		ClaimType:             claims.TypeTotalPayout,
		ClaimedValue:          bd.TotalPayout,
		SystemCalculatedValue: bd.TotalPayout,
		Approved:              nil,
		ValidationStatus:      claims.StatusGenerated,
		Reason: fmt.Sprintf("Base Salary: %.2f, Fuel Cost: %.2f, Total: %.2f",
			bd.BaseSalary, bd.FuelCost, bd.TotalPayout),
		CreatedAt: time.Now(),
	}
	if err := s.store.UpsertClaim(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *Service) publishAssigned(t *Trip, at time.Time) {
	if s.kafka == nil {
		return
	}
	ev := events.TripAssignedEvent{
		TripID:            t.ID,
		DriverID:          t.DriverID,
		Source:            t.Source,
		Destination:       t.Destination,
		PlannedDistanceKm: t.PlannedDistanceKm,
		AssignedAt:        at.Format(time.RFC3339),
	}
	go func() {
		if err := s.kafka.Publish(context.Background(), kafka.TopicTripAssigned, t.ID, ev); err != nil {
			log.Printf("[trips] failed to publish trip.assigned: %v", err)
		}
	}()
}

func (s *Service) publishCompleted(t *Trip, c *claims.Claim, reason string, at time.Time) {
	if s.kafka == nil {
		return
	}
	var durSec int64
	if t.ActualStartTime != nil {
		durSec = int64(at.Sub(*t.ActualStartTime).Seconds())
	}
	completed := events.TripCompletedEvent{
		TripID:          t.ID,
		DriverID:        t.DriverID,
		DistanceKm:      t.PlannedDistanceKm,
		TotalPayout:     c.SystemCalculatedValue,
		Reason:          reason,
		CompletedAt:     at.Format(time.RFC3339),
		DurationSeconds: durSec,
	}
	generated := events.ClaimGeneratedEvent{
		ClaimID:     c.ID,
		TripID:      t.ID,
		DriverID:    t.DriverID,
		TotalPayout: c.SystemCalculatedValue,
		GeneratedAt: at.Format(time.RFC3339),
	}
	go func() {
		if err := s.kafka.Publish(context.Background(), kafka.TopicTripCompleted, t.ID, completed); err != nil {
			log.Printf("[trips] failed to publish trip.completed: %v", err)
		}
		if err := s.kafka.Publish(context.Background(), kafka.TopicClaimGenerated, c.ID, generated); err != nil {
			log.Printf("[trips] failed to publish claim.generated: %v", err)
		}
	}()
}
