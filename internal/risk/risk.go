// Package risk decides what an admin may do with a claim given its
// fraud/error risk score. The score itself is supplied externally;
// this package only applies policy bands to it.
package risk

// Action is the policy outcome for a given score.
type Action int

const (
	// Allow permits approval with no extra step.
	Allow Action = iota
	// Confirm permits approval only after an explicit confirm-override step.
	Confirm
	// Block forbids approval outright.
	Block
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Confirm:
		return "confirm_required"
	case Block:
		return "blocked"
	default:
		return "unknown"
	}
}

// Band maps scores of at least Min to an action. Bands are evaluated
// highest Min first.
type Band struct {
	Min    int
	Action Action
}

// Policy is an ordered decision table over the 0–100 risk score.
type Policy struct {
	bands []Band
}

// Default thresholds: 80 and above is blocked, 70–79 needs explicit
// confirmation, anything lower is unrestricted.
const (
	DefaultBlockAt   = 80
	DefaultConfirmAt = 70
)

// DefaultPolicy returns the standard approval bands.
func DefaultPolicy() *Policy {
	return NewPolicy(
		Band{Min: DefaultBlockAt, Action: Block},
		Band{Min: DefaultConfirmAt, Action: Confirm},
	)
}

// NewPolicy builds a policy from bands. Bands must be given in
// descending Min order; scores below every band are allowed.
func NewPolicy(bands ...Band) *Policy {
	return &Policy{bands: bands}
}

// Evaluate returns the action for a score.
func (p *Policy) Evaluate(score int) Action {
	for _, b := range p.bands {
		if score >= b.Min {
			return b.Action
		}
	}
	return Allow
}

// ValidScore reports whether score is inside the 0–100 range.
func ValidScore(score int) bool {
	return score >= 0 && score <= 100
}
