package trips

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"freight-service/internal/apperrors"
	"freight-service/internal/claims"
	"freight-service/internal/drivers"
	"freight-service/internal/routing"
)

// memStore mirrors the pg store's conditional-update semantics.
type memStore struct {
	mu      sync.Mutex
	trips   map[string]*Trip
	drivers map[string]*drivers.Driver
	claims  map[string]*claims.Claim // keyed by trip_id+claim_type

	failClaimInsert bool
	failTripInsert  bool
	claimInserts    int
	positionCleared map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		trips:           make(map[string]*Trip),
		drivers:         make(map[string]*drivers.Driver),
		claims:          make(map[string]*claims.Claim),
		positionCleared: make(map[string]bool),
	}
}

func (m *memStore) CreateTrip(_ context.Context, t *Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTripInsert {
		return errors.New("trips table unavailable")
	}
	cp := *t
	m.trips[t.ID] = &cp
	return nil
}

func (m *memStore) GetTrip(_ context.Context, id string) (*Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, apperrors.NotFoundf("trip %s", id)
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ActiveTripForDriver(_ context.Context, driverID string) (*Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trips {
		if t.DriverID == driverID && t.Status != StatusCompleted {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) MarkStarted(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok || t.Status != StatusAssigned {
		return false, nil
	}
	t.Status = StatusStarted
	t.ActualStartTime = &at
	return true, nil
}

func (m *memStore) MarkCompleted(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok || t.Status != StatusStarted {
		return false, nil
	}
	t.Status = StatusCompleted
	t.ActualEndTime = &at
	return true, nil
}

func (m *memStore) GetDriver(_ context.Context, id string) (*drivers.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, apperrors.NotFoundf("driver %s", id)
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) ClaimDriver(_ context.Context, driverID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[driverID]
	if !ok || d.Status != drivers.StatusAvailable {
		return false, nil
	}
	d.Status = drivers.StatusAssigned
	return true, nil
}

func (m *memStore) SetDriverStatus(_ context.Context, driverID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.drivers[driverID]; ok {
		d.Status = status
	}
	return nil
}

func (m *memStore) ClearDriverPosition(_ context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.drivers[driverID]; ok {
		d.LastLat, d.LastLng = nil, nil
	}
	m.positionCleared[driverID] = true
	return nil
}

func (m *memStore) DeleteGeneratedClaims(_ context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range m.claims {
		if c.DriverID == driverID && c.ValidationStatus == claims.StatusGenerated {
			delete(m.claims, k)
		}
	}
	return nil
}

func (m *memStore) UpsertClaim(_ context.Context, c *claims.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failClaimInsert {
		return errors.New("claims table unavailable")
	}
	m.claimInserts++
	cp := *c
	m.claims[c.TripID+"/"+c.ClaimType] = &cp
	return nil
}

func (m *memStore) generatedClaimsFor(driverID string) []claims.Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []claims.Claim
	for _, c := range m.claims {
		if c.DriverID == driverID && c.ValidationStatus == claims.StatusGenerated {
			out = append(out, *c)
		}
	}
	return out
}

func seedDriver(m *memStore, id string) {
	rate, mileage, fuel := 12.0, 4.0, 90.0
	m.drivers[id] = &drivers.Driver{
		ID: id, Name: "Ravi Kumar", Status: drivers.StatusAvailable,
		RatePerKm: &rate, MileageKmPerL: &mileage, FuelPricePerL: &fuel,
	}
}

type fixedRouter struct{ km, minutes float64 }

func (f fixedRouter) Route(context.Context, string, string) (routing.Route, error) {
	return routing.Route{DistanceKm: f.km, DurationMinutes: f.minutes}, nil
}

func newTestService(m *memStore) *Service {
	return NewService(m, fixedRouter{km: 100, minutes: 120}, nil)
}

func TestAssignRequiresAvailableDriver(t *testing.T) {
	m := newMemStore()
	seedDriver(m, "driver-1")
	svc := newTestService(m)

	trip, err := svc.Assign(context.Background(), AssignRequest{
		DriverID: "driver-1", Source: "Chennai", Destination: "Bangalore",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != StatusAssigned {
		t.Errorf("trip status = %s, want ASSIGNED", trip.Status)
	}
	if trip.PlannedDistanceKm != 100 {
		t.Errorf("planned distance = %v, want 100 from routing", trip.PlannedDistanceKm)
	}
	if m.drivers["driver-1"].Status != drivers.StatusAssigned {
		t.Errorf("driver status = %s, want ASSIGNED", m.drivers["driver-1"].Status)
	}

	// A second assignment to the now-busy driver must fail.
	_, err = svc.Assign(context.Background(), AssignRequest{
		DriverID: "driver-1", Source: "Chennai", Destination: "Salem",
	})
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("want invalid state for busy driver, got %v", err)
	}
}

func TestAssignValidation(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.Assign(context.Background(), AssignRequest{Source: "Chennai"})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("want validation error, got %v", err)
	}
}

func TestAssignMissingDriver(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.Assign(context.Background(), AssignRequest{
		DriverID: "ghost", Source: "Chennai", Destination: "Bangalore",
	})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("want not found, got %v", err)
	}
}

// hookRouter runs a hook once on its first Route call, letting a test
// interleave work between a session's AVAILABLE read and its claim.
type hookRouter struct {
	fixedRouter
	hook  func()
	fired bool
}

func (r *hookRouter) Route(ctx context.Context, origin, destination string) (routing.Route, error) {
	if !r.fired {
		r.fired = true
		r.hook()
	}
	return r.fixedRouter.Route(ctx, origin, destination)
}

func (m *memStore) nonTerminalTripsFor(driverID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.trips {
		if t.DriverID == driverID && t.Status != StatusCompleted {
			n++
		}
	}
	return n
}

func TestConcurrentAssignsClaimDriverOnce(t *testing.T) {
	m := newMemStore()
	seedDriver(m, "driver-1")

	router := &hookRouter{fixedRouter: fixedRouter{km: 100, minutes: 120}}
	svc := NewService(m, router, nil)

	// The second session begins after the first has read the driver as
	// AVAILABLE but before the first has claimed it.
	var second *Trip
	var secondErr error
	router.hook = func() {
		second, secondErr = svc.Assign(context.Background(), AssignRequest{
			DriverID: "driver-1", Source: "Chennai", Destination: "Salem",
		})
	}

	first, firstErr := svc.Assign(context.Background(), AssignRequest{
		DriverID: "driver-1", Source: "Chennai", Destination: "Bangalore",
	})

	// Exactly one session may win the driver.
	if (firstErr == nil) == (secondErr == nil) {
		t.Fatalf("want exactly one winner, got firstErr=%v secondErr=%v", firstErr, secondErr)
	}
	loserErr := firstErr
	if loserErr == nil {
		loserErr = secondErr
	}
	if !errors.Is(loserErr, apperrors.ErrInvalidState) {
		t.Errorf("loser should fail with invalid state, got %v", loserErr)
	}
	if first != nil && second != nil {
		t.Error("both sessions returned a trip")
	}

	if got := m.nonTerminalTripsFor("driver-1"); got != 1 {
		t.Errorf("driver holds %d non-terminal trips, want 1", got)
	}
	if m.drivers["driver-1"].Status != drivers.StatusAssigned {
		t.Errorf("driver status = %s, want ASSIGNED", m.drivers["driver-1"].Status)
	}
}

func TestAssignReleasesDriverWhenTripWriteFails(t *testing.T) {
	m := newMemStore()
	seedDriver(m, "driver-1")
	svc := newTestService(m)

	m.failTripInsert = true
	if _, err := svc.Assign(context.Background(), AssignRequest{
		DriverID: "driver-1", Source: "Chennai", Destination: "Bangalore",
	}); err == nil {
		t.Fatal("want error when the trip write fails")
	}
	if m.drivers["driver-1"].Status != drivers.StatusAvailable {
		t.Errorf("driver status = %s, want AVAILABLE after aborted assign", m.drivers["driver-1"].Status)
	}
}

func mustAssign(t *testing.T, svc *Service, driverID string) *Trip {
	t.Helper()
	trip, err := svc.Assign(context.Background(), AssignRequest{
		DriverID: driverID, Source: "Chennai", Destination: "Bangalore",
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	return trip
}

func TestStartTransition(t *testing.T) {
	m := newMemStore()
	seedDriver(m, "driver-1")
	svc := newTestService(m)
	trip := mustAssign(t, svc, "driver-1")

	started, err := svc.Start(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if started.Status != StatusStarted {
		t.Errorf("status = %s, want STARTED", started.Status)
	}
	if started.ActualStartTime == nil {
		t.Error("actual start time not recorded")
	}
	if m.drivers["driver-1"].Status != drivers.StatusOnTrip {
		t.Errorf("driver status = %s, want ON_TRIP", m.drivers["driver-1"].Status)
	}

	// Starting again must fail and not rewrite the start time.
	firstStart := *started.ActualStartTime
	if _, err := svc.Start(context.Background(), trip.ID); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("want invalid state on double start, got %v", err)
	}
	cur, _ := m.GetTrip(context.Background(), trip.ID)
	if !cur.ActualStartTime.Equal(firstStart) {
		t.Errorf("actual start time was rewritten: %v -> %v", firstStart, cur.ActualStartTime)
	}
}

func TestCompleteFromAssignedFails(t *testing.T) {
	m := newMemStore()
	seedDriver(m, "driver-1")
	svc := newTestService(m)
	trip := mustAssign(t, svc, "driver-1")

	if _, err := svc.Complete(context.Background(), trip.ID, CompleteManual); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("want invalid state completing an ASSIGNED trip, got %v", err)
	}
}

func TestCompleteGeneratesSingleClaim(t *testing.T) {
	m := newMemStore()
	seedDriver(m, "driver-1")
	svc := newTestService(m)
	trip := mustAssign(t, svc, "driver-1")
	if _, err := svc.Start(context.Background(), trip.ID); err != nil {
		t.Fatal(err)
	}

	done, err := svc.Complete(context.Background(), trip.ID, CompleteManual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", done.Status)
	}
	if m.drivers["driver-1"].Status != drivers.StatusAvailable {
		t.Errorf("driver status = %s, want AVAILABLE after completion", m.drivers["driver-1"].Status)
	}
	if !m.positionCleared["driver-1"] {
		t.Error("driver position was not cleared on completion")
	}

	generated := m.generatedClaimsFor("driver-1")
	if len(generated) != 1 {
		t.Fatalf("generated claims = %d, want 1", len(generated))
	}
	// 100 km at 12/km plus 25 l at 90/l.
	c := generated[0]
	if c.SystemCalculatedValue != 3450 {
		t.Errorf("system calculated value = %v, want 3450", c.SystemCalculatedValue)
	}
	if c.ClaimedValue != c.SystemCalculatedValue {
		t.Errorf("claimed %v != system %v", c.ClaimedValue, c.SystemCalculatedValue)
	}
	if c.Approved != nil {
		t.Errorf("approved = %v, want nil on a fresh claim", *c.Approved)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	m := newMemStore()
	seedDriver(m, "driver-1")
	svc := newTestService(m)
	trip := mustAssign(t, svc, "driver-1")
	if _, err := svc.Start(context.Background(), trip.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Complete(context.Background(), trip.ID, CompleteAuto); err != nil {
		t.Fatalf("first complete: %v", err)
	}

	// The duplicate trigger (manual end racing the proximity check)
	// must be a benign no-op, not a second claim.
	cur, err := svc.Complete(context.Background(), trip.ID, CompleteManual)
	if !errors.Is(err, apperrors.ErrAlreadyCompleted) {
		t.Fatalf("want already-completed signal, got %v", err)
	}
	if cur == nil || cur.Status != StatusCompleted {
		t.Errorf("no-op should still return the completed trip")
	}
	if m.claimInserts != 1 {
		t.Errorf("claim inserts = %d, want exactly 1", m.claimInserts)
	}
}

func TestRepeatedCompletionsKeepOneGeneratedClaim(t *testing.T) {
	m := newMemStore()
	seedDriver(m, "driver-1")
	svc := newTestService(m)

	// N consecutive trips for the same driver; each completion replaces
	// the previous live generated claim.
	for i := 0; i < 5; i++ {
		trip, err := svc.Assign(context.Background(), AssignRequest{
			DriverID: "driver-1",
			Source:   "Chennai",
			Destination: fmt.Sprintf("Hub-%d", i),
		})
		if err != nil {
			t.Fatalf("assign %d: %v", i, err)
		}
		if _, err := svc.Start(context.Background(), trip.ID); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		if _, err := svc.Complete(context.Background(), trip.ID, CompleteManual); err != nil {
			t.Fatalf("complete %d: %v", i, err)
		}

		if got := len(m.generatedClaimsFor("driver-1")); got != 1 {
			t.Fatalf("after completion %d: generated claims = %d, want 1", i, got)
		}
	}
}

func TestCompleteSurfacesClaimFailure(t *testing.T) {
	m := newMemStore()
	seedDriver(m, "driver-1")
	svc := newTestService(m)
	trip := mustAssign(t, svc, "driver-1")
	if _, err := svc.Start(context.Background(), trip.ID); err != nil {
		t.Fatal(err)
	}

	m.failClaimInsert = true
	_, err := svc.Complete(context.Background(), trip.ID, CompleteManual)
	if !errors.Is(err, apperrors.ErrClaimGeneration) {
		t.Fatalf("want claim-generation error, got %v", err)
	}

	// The trip is completed; the missing claim must be retryable, not hidden.
	cur, _ := m.GetTrip(context.Background(), trip.ID)
	if cur.Status != StatusCompleted {
		t.Errorf("trip status = %s, want COMPLETED", cur.Status)
	}
	if !apperrors.Retryable(err) {
		t.Error("claim-generation failure should be retryable")
	}
}

func TestPlannedDistanceIsFinancialTruth(t *testing.T) {
	m := newMemStore()
	seedDriver(m, "driver-1")
	svc := newTestService(m)
	trip := mustAssign(t, svc, "driver-1")
	if _, err := svc.Start(context.Background(), trip.ID); err != nil {
		t.Fatal(err)
	}

	// Simulated progress updates the driver's position, never the trip.
	lat, lng := 12.5, 78.9
	m.mu.Lock()
	m.drivers["driver-1"].LastLat, m.drivers["driver-1"].LastLng = &lat, &lng
	m.mu.Unlock()

	if _, err := svc.Complete(context.Background(), trip.ID, CompleteAuto); err != nil {
		t.Fatal(err)
	}
	c := m.generatedClaimsFor("driver-1")[0]
	if c.SystemCalculatedValue != 3450 {
		t.Errorf("payout %v derived from something other than planned distance", c.SystemCalculatedValue)
	}
}
