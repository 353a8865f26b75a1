package claims

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/internal/apperrors"
)

// PGStore is the pgx-backed claims Store.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore wraps a pgx pool.
func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{db: db} }

const claimColumns = `c.id,c.trip_id,c.driver_id,c.claim_type,c.claimed_value,c.system_calculated_value,
	c.approved,c.validation_status,c.reason,c.dispute_reason,c.dispute_description,
	c.proof_image_url,c.dispute_lat,c.dispute_lng,c.risk_score,
	t.source,t.destination,c.created_at,c.resolved_at`

func scanClaim(row interface{ Scan(dest ...any) error }) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.TripID, &c.DriverID, &c.ClaimType, &c.ClaimedValue, &c.SystemCalculatedValue,
		&c.Approved, &c.ValidationStatus, &c.Reason, &c.DisputeReason, &c.DisputeDescription,
		&c.ProofImageURL, &c.DisputeLat, &c.DisputeLng, &c.RiskScore,
		&c.TripSource, &c.TripDestination, &c.CreatedAt, &c.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID fetches a claim with its trip endpoints.
func (s *PGStore) GetByID(ctx context.Context, id string) (*Claim, error) {
	c, err := scanClaim(s.db.QueryRow(ctx,
		`SELECT `+claimColumns+`
		 FROM claims c JOIN trips t ON t.id=c.trip_id
		 WHERE c.id=$1`, id))
	if err != nil {
		return nil, apperrors.NotFoundf("claim %s", id)
	}
	return c, nil
}

// ListByDriver returns a driver's payout claims, newest first.
func (s *PGStore) ListByDriver(ctx context.Context, driverID string) ([]Claim, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+claimColumns+`
		 FROM claims c JOIN trips t ON t.id=c.trip_id
		 WHERE c.driver_id=$1 AND c.claim_type=$2
		 ORDER BY c.created_at DESC`, driverID, TypeTotalPayout)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListPendingReview returns disputed claims awaiting an admin decision.
func (s *PGStore) ListPendingReview(ctx context.Context) ([]Claim, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+claimColumns+`
		 FROM claims c JOIN trips t ON t.id=c.trip_id
		 WHERE c.validation_status=$1
		 ORDER BY c.risk_score DESC, c.created_at`, StatusPendingReview)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collect(rows pgxRows) ([]Claim, error) {
	var out []Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Accept conditionally flips a generated claim to accepted_by_driver.
func (s *PGStore) Accept(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE claims SET validation_status=$1, approved=true, resolved_at=$2
		 WHERE id=$3 AND validation_status=$4`,
		StatusAcceptedByDriver, at, id, StatusGenerated)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SubmitDispute conditionally flips a generated claim to pending_review.
func (s *PGStore) SubmitDispute(ctx context.Context, id string, d DisputeDraft) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE claims SET validation_status=$1, approved=NULL,
		        dispute_reason=$2, dispute_description=$3,
		        proof_image_url=$4, dispute_lat=$5, dispute_lng=$6
		 WHERE id=$7 AND validation_status=$8`,
		StatusPendingReview, d.Reason, d.Description,
		d.ProofImageURL, d.Lat, d.Lng, id, StatusGenerated)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Resolve conditionally settles a pending_review claim.
func (s *PGStore) Resolve(ctx context.Context, id string, approved bool, at time.Time) (bool, error) {
	status := StatusRejectedByAdmin
	if approved {
		status = StatusApprovedByAdmin
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE claims SET validation_status=$1, approved=$2, resolved_at=$3
		 WHERE id=$4 AND validation_status=$5`,
		status, approved, at, id, StatusPendingReview)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
