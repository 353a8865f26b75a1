package claims

import (
	"context"
	"fmt"
	"log"
	"time"

	"freight-service/internal/apperrors"
	"freight-service/internal/events"
	"freight-service/internal/risk"
	"freight-service/pkg/kafka"
)

// Store is the persistence port for claims. Mutations are conditional
// on the current persisted status and report whether a row changed, so
// a stale read can never overwrite a concurrent transition.
type Store interface {
	GetByID(ctx context.Context, id string) (*Claim, error)
	ListByDriver(ctx context.Context, driverID string) ([]Claim, error)
	ListPendingReview(ctx context.Context) ([]Claim, error)

	// Accept flips generated -> accepted_by_driver with approved=true.
	Accept(ctx context.Context, id string, at time.Time) (bool, error)
	// SubmitDispute flips generated -> pending_review and stores the draft.
	SubmitDispute(ctx context.Context, id string, d DisputeDraft) (bool, error)
	// Resolve flips pending_review -> approved/rejected_by_admin.
	Resolve(ctx context.Context, id string, approved bool, at time.Time) (bool, error)
}

// Service governs the claim lifecycle.
type Service struct {
	store  Store
	policy *risk.Policy
	kafka  *kafka.Client
}

// NewService creates a claim service. kafka may be nil in tests.
func NewService(store Store, policy *risk.Policy, k *kafka.Client) *Service {
	if policy == nil {
		policy = risk.DefaultPolicy()
	}
	return &Service{store: store, policy: policy, kafka: k}
}

// GetByID fetches one claim.
func (s *Service) GetByID(ctx context.Context, id string) (*Claim, error) {
	return s.store.GetByID(ctx, id)
}

// ListByDriver returns all of a driver's payout claims, newest first.
func (s *Service) ListByDriver(ctx context.Context, driverID string) ([]Claim, error) {
	return s.store.ListByDriver(ctx, driverID)
}

// ListPendingReview returns the admin review queue.
func (s *Service) ListPendingReview(ctx context.Context) ([]Claim, error) {
	return s.store.ListPendingReview(ctx)
}

// Accept records the driver's acceptance of a generated claim.
func (s *Service) Accept(ctx context.Context, claimID string) (*Claim, error) {
	c, err := s.store.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.Accept(ctx, claimID, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// Re-read for an accurate message; the row moved on since c was read.
		if cur, rerr := s.store.GetByID(ctx, claimID); rerr == nil {
			c = cur
		}
		return nil, apperrors.InvalidStatef("claim is %s, only a generated claim can be accepted", c.ValidationStatus)
	}
	return s.store.GetByID(ctx, claimID)
}

// Dispute moves a generated claim into admin review with the driver's
// dispute details attached.
func (s *Service) Dispute(ctx context.Context, claimID string, draft DisputeDraft) (*Claim, error) {
	if draft.Reason == "" || draft.Description == "" {
		return nil, apperrors.Validationf("dispute reason and description are required")
	}

	c, err := s.store.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.SubmitDispute(ctx, claimID, draft)
	if err != nil {
		return nil, err
	}
	if !ok {
		if cur, rerr := s.store.GetByID(ctx, claimID); rerr == nil {
			c = cur
		}
		return nil, apperrors.InvalidStatef("claim is %s, only a generated claim can be disputed", c.ValidationStatus)
	}

	s.publishDisputed(c, draft)
	return s.store.GetByID(ctx, claimID)
}

// Approve settles a pending_review claim in the driver's favour.
// The risk policy is consulted first: blocked scores never approve,
// confirm-band scores require the explicit confirmed flag.
func (s *Service) Approve(ctx context.Context, claimID string, confirmed bool) (*Claim, error) {
	c, err := s.store.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.ValidationStatus != StatusPendingReview {
		return nil, apperrors.InvalidStatef("claim is %s, only pending_review claims can be approved", c.ValidationStatus)
	}

	switch s.policy.Evaluate(c.RiskScore) {
	case risk.Block:
		return nil, fmt.Errorf("%w: risk score %d", apperrors.ErrRiskBlocked, c.RiskScore)
	case risk.Confirm:
		if !confirmed {
			return nil, fmt.Errorf("%w: risk score %d", apperrors.ErrConfirmRequired, c.RiskScore)
		}
	}

	return s.resolve(ctx, c, true)
}

// Reject settles a pending_review claim against the driver.
func (s *Service) Reject(ctx context.Context, claimID string) (*Claim, error) {
	c, err := s.store.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.ValidationStatus != StatusPendingReview {
		return nil, apperrors.InvalidStatef("claim is %s, only pending_review claims can be rejected", c.ValidationStatus)
	}
	return s.resolve(ctx, c, false)
}

func (s *Service) resolve(ctx context.Context, c *Claim, approved bool) (*Claim, error) {
	now := time.Now()
	ok, err := s.store.Resolve(ctx, c.ID, approved, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another admin session resolved it between our read and write.
		cur, rerr := s.store.GetByID(ctx, c.ID)
		if rerr == nil {
			c = cur
		}
		return nil, apperrors.InvalidStatef("claim is %s, already resolved", c.ValidationStatus)
	}

	s.publishResolved(c, approved, now)
	return s.store.GetByID(ctx, c.ID)
}

func (s *Service) publishDisputed(c *Claim, draft DisputeDraft) {
	if s.kafka == nil {
		return
	}
	ev := events.ClaimDisputedEvent{
		ClaimID:  c.ID,
		DriverID: c.DriverID,
		Reason:   draft.Reason,
	}
	if draft.Lat != nil && draft.Lng != nil {
		ev.Location = &events.LatLng{Lat: *draft.Lat, Lng: *draft.Lng}
	}
	go func() {
		if err := s.kafka.Publish(context.Background(), kafka.TopicClaimDisputed, c.ID, ev); err != nil {
			log.Printf("[claims] failed to publish claim.disputed: %v", err)
		}
	}()
}

func (s *Service) publishResolved(c *Claim, approved bool, at time.Time) {
	if s.kafka == nil {
		return
	}
	ev := events.ClaimResolvedEvent{
		ClaimID:    c.ID,
		DriverID:   c.DriverID,
		Approved:   approved,
		RiskScore:  c.RiskScore,
		ResolvedAt: at.Format(time.RFC3339),
	}
	go func() {
		if err := s.kafka.Publish(context.Background(), kafka.TopicClaimResolved, c.ID, ev); err != nil {
			log.Printf("[claims] failed to publish claim.resolved: %v", err)
		}
	}()
}
