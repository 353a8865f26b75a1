package claims

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"freight-service/internal/apperrors"
	"freight-service/internal/risk"
)

// memStore is an in-memory Store with the same conditional-update
// semantics as the pg implementation.
type memStore struct {
	mu     sync.Mutex
	claims map[string]*Claim
}

func newMemStore() *memStore { return &memStore{claims: make(map[string]*Claim)} }

func (m *memStore) put(c *Claim) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.claims[c.ID] = &cp
}

func (m *memStore) GetByID(_ context.Context, id string) (*Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, apperrors.NotFoundf("claim %s", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListByDriver(_ context.Context, driverID string) ([]Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Claim
	for _, c := range m.claims {
		if c.DriverID == driverID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) ListPendingReview(_ context.Context) ([]Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Claim
	for _, c := range m.claims {
		if c.ValidationStatus == StatusPendingReview {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) Accept(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok || c.ValidationStatus != StatusGenerated {
		return false, nil
	}
	t := true
	c.ValidationStatus = StatusAcceptedByDriver
	c.Approved = &t
	c.ResolvedAt = &at
	return true, nil
}

func (m *memStore) SubmitDispute(_ context.Context, id string, d DisputeDraft) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok || c.ValidationStatus != StatusGenerated {
		return false, nil
	}
	c.ValidationStatus = StatusPendingReview
	c.Approved = nil
	c.DisputeReason = d.Reason
	c.DisputeDescription = d.Description
	c.ProofImageURL = d.ProofImageURL
	c.DisputeLat = d.Lat
	c.DisputeLng = d.Lng
	return true, nil
}

func (m *memStore) Resolve(_ context.Context, id string, approved bool, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok || c.ValidationStatus != StatusPendingReview {
		return false, nil
	}
	if approved {
		c.ValidationStatus = StatusApprovedByAdmin
	} else {
		c.ValidationStatus = StatusRejectedByAdmin
	}
	c.Approved = &approved
	c.ResolvedAt = &at
	return true, nil
}

func seedClaim(store *memStore, status string, score int) *Claim {
	c := &Claim{
		ID:                    "claim-1",
		TripID:                "trip-1",
		DriverID:              "driver-1",
		ClaimType:             TypeTotalPayout,
		ClaimedValue:          3450,
		SystemCalculatedValue: 3450,
		ValidationStatus:      status,
		RiskScore:             score,
		CreatedAt:             time.Now(),
	}
	store.put(c)
	return c
}

func TestAcceptGeneratedClaim(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusGenerated, 0)
	svc := NewService(store, nil, nil)

	c, err := svc.Accept(context.Background(), "claim-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ValidationStatus != StatusAcceptedByDriver {
		t.Errorf("status = %s, want accepted_by_driver", c.ValidationStatus)
	}
	if c.Approved == nil || !*c.Approved {
		t.Errorf("approved = %v, want true", c.Approved)
	}
}

func TestAcceptNonGeneratedClaim(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusPendingReview, 0)
	svc := NewService(store, nil, nil)

	if _, err := svc.Accept(context.Background(), "claim-1"); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("want invalid state, got %v", err)
	}
}

func TestDisputeRequiresReasonAndDescription(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusGenerated, 0)
	svc := NewService(store, nil, nil)

	_, err := svc.Dispute(context.Background(), "claim-1", DisputeDraft{Reason: "Incorrect Distance"})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}

	// No state mutated on rejection.
	c, _ := store.GetByID(context.Background(), "claim-1")
	if c.ValidationStatus != StatusGenerated {
		t.Errorf("status = %s, want generated after failed dispute", c.ValidationStatus)
	}
}

func TestDisputeMovesToPendingReview(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusGenerated, 0)
	svc := NewService(store, nil, nil)

	lat, lng := 13.08, 80.27
	c, err := svc.Dispute(context.Background(), "claim-1", DisputeDraft{
		Reason:        "Fuel Price Mismatch",
		Description:   "Diesel was 98/l on this route",
		ProofImageURL: "https://storage.example.com/claim-proofs/claim-1.jpg",
		Lat:           &lat,
		Lng:           &lng,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ValidationStatus != StatusPendingReview {
		t.Errorf("status = %s, want pending_review", c.ValidationStatus)
	}
	if c.Approved != nil {
		t.Errorf("approved = %v, want nil while under review", *c.Approved)
	}
	if c.DisputeLat == nil || *c.DisputeLat != lat {
		t.Errorf("dispute location not stored")
	}
}

func TestApproveBlockedByRiskScore(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusPendingReview, 85)
	svc := NewService(store, nil, nil)

	_, err := svc.Approve(context.Background(), "claim-1", true)
	if !errors.Is(err, apperrors.ErrRiskBlocked) {
		t.Fatalf("want risk blocked, got %v", err)
	}

	c, _ := store.GetByID(context.Background(), "claim-1")
	if c.ValidationStatus != StatusPendingReview {
		t.Errorf("status = %s, want pending_review after blocked approval", c.ValidationStatus)
	}
}

func TestApproveConfirmBand(t *testing.T) {
	for _, score := range []int{70, 79} {
		store := newMemStore()
		seedClaim(store, StatusPendingReview, score)
		svc := NewService(store, nil, nil)

		// A single click is not enough in the confirm band.
		_, err := svc.Approve(context.Background(), "claim-1", false)
		if !errors.Is(err, apperrors.ErrConfirmRequired) {
			t.Fatalf("score %d: want confirm required, got %v", score, err)
		}

		c, err := svc.Approve(context.Background(), "claim-1", true)
		if err != nil {
			t.Fatalf("score %d: confirmed approval failed: %v", score, err)
		}
		if c.ValidationStatus != StatusApprovedByAdmin {
			t.Errorf("score %d: status = %s, want approved_by_admin", score, c.ValidationStatus)
		}
	}
}

func TestApproveLowRiskWithoutConfirmation(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusPendingReview, 69)
	svc := NewService(store, nil, nil)

	c, err := svc.Approve(context.Background(), "claim-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ValidationStatus != StatusApprovedByAdmin {
		t.Errorf("status = %s, want approved_by_admin", c.ValidationStatus)
	}
	if c.Approved == nil || !*c.Approved {
		t.Errorf("approved = %v, want true", c.Approved)
	}
}

func TestRejectPendingReview(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusPendingReview, 85)
	svc := NewService(store, nil, nil)

	// Rejection is not risk-gated.
	c, err := svc.Reject(context.Background(), "claim-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ValidationStatus != StatusRejectedByAdmin {
		t.Errorf("status = %s, want rejected_by_admin", c.ValidationStatus)
	}
	if c.Approved == nil || *c.Approved {
		t.Errorf("approved = %v, want false", c.Approved)
	}
}

func TestApproveNonPendingClaim(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusAcceptedByDriver, 0)
	svc := NewService(store, nil, nil)

	if _, err := svc.Approve(context.Background(), "claim-1", true); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("want invalid state, got %v", err)
	}
}

func TestApproveMissingClaim(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)
	if _, err := svc.Approve(context.Background(), "ghost", true); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("want not found, got %v", err)
	}
}

func TestCustomPolicyWiring(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusPendingReview, 75)
	// Stricter policy: block from 75.
	svc := NewService(store, risk.NewPolicy(risk.Band{Min: 75, Action: risk.Block}), nil)

	if _, err := svc.Approve(context.Background(), "claim-1", true); !errors.Is(err, apperrors.ErrRiskBlocked) {
		t.Errorf("want risk blocked under custom policy, got %v", err)
	}
}
