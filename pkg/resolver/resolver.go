// Package resolver picks exactly one winning claim per entity from several
// disagreeing sources, with a recorded, auditable rationale.
package resolver

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/errors"
)

// Rejection records why a non-winning claim lost.
type Rejection struct {
	SourceID string `json:"source_id" yaml:"source_id"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Decision is the immutable outcome of resolving one entity's claims.
// Exactly one Decision is created per entity per build.
type Decision struct {
	EntityID               string                 `json:"entity_id" yaml:"entity_id"`
	Winner                 boundaries.SourceClaim `json:"winner" yaml:"winner"`
	Reason                 string                 `json:"reason" yaml:"reason"`
	Confidence             int                    `json:"confidence" yaml:"confidence"` // 0..100
	AlternativesConsidered int                    `json:"alternatives_considered" yaml:"alternatives_considered"`
	Rejected               []Rejection            `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// Rejection reason strings. Kept stable: they end up in audit trails.
const (
	reasonSupersededByPrimary = "superseded by primary authority"
	reasonLowerAuthority      = "lower authority level"
	reasonStale               = "stale relative to winner"
	reasonLexicographicOrder  = "lost deterministic source-id tie-break"
)

// Weights are the tunable confidence coefficients. Monotonicity and
// determinism are the contract; the exact constants are not.
type Weights struct {
	AuthorityLevel int // per authority level of the winner
	Agreement      int // per claim that substantively agrees with the winner
}

// DefaultWeights returns the standard confidence coefficients.
func DefaultWeights() Weights {
	return Weights{AuthorityLevel: 20, Agreement: 10}
}

// Resolver resolves conflicts between claims for one entity. It is pure:
// it emits no provenance events itself; the build orchestrator logs each
// decision.
type Resolver struct {
	weights Weights

	// agreementWindow bounds how far apart two timestamps may be for their
	// claims to count as agreeing.
	agreementWindow time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithWeights overrides the confidence coefficients.
func WithWeights(w Weights) Option {
	return func(r *Resolver) { r.weights = w }
}

// WithAgreementWindow overrides the timestamp window for agreement counting.
func WithAgreementWindow(d time.Duration) Option {
	return func(r *Resolver) { r.agreementWindow = d }
}

// New creates a Resolver with default coefficients.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		weights:         DefaultWeights(),
		agreementWindow: 365 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve picks exactly one winner from the entity's claims. Given at least
// one claim it always succeeds; given zero claims it returns a
// ConflictUnresolvedError, which indicates an upstream bug.
func (r *Resolver) Resolve(entityID string, claims []boundaries.SourceClaim) (*Decision, error) {
	if len(claims) == 0 {
		return nil, errors.NewConflictUnresolvedError(entityID, "no claims supplied")
	}

	// A legally primary authority always outranks any aggregator regardless
	// of recency: aggregators are derivative copies of the same source.
	var primary, aggregator []boundaries.SourceClaim
	for _, c := range claims {
		if c.IsPrimary {
			primary = append(primary, c)
		} else {
			aggregator = append(aggregator, c)
		}
	}

	candidates := primary
	fromPrimary := true
	if len(candidates) == 0 {
		candidates = aggregator
		fromPrimary = false
	}

	ordered := make([]boundaries.SourceClaim, len(candidates))
	copy(ordered, candidates)
	sortClaims(ordered)
	winner := ordered[0]

	decision := &Decision{
		EntityID:               entityID,
		Winner:                 winner,
		Reason:                 winnerReason(winner, fromPrimary),
		AlternativesConsidered: len(claims) - 1,
	}

	for _, c := range claims {
		if c.SourceID == winner.SourceID {
			continue
		}
		decision.Rejected = append(decision.Rejected, Rejection{
			SourceID: c.SourceID,
			Reason:   rejectionReason(winner, c),
		})
	}
	sort.Slice(decision.Rejected, func(i, j int) bool {
		return decision.Rejected[i].SourceID < decision.Rejected[j].SourceID
	})

	decision.Confidence = r.confidence(winner, claims)

	return decision, nil
}

// sortClaims orders candidates best-first: highest authority level, then
// latest modification, then lexicographically smallest source id. The last
// key makes the order total, which resolution reproducibility requires.
func sortClaims(claims []boundaries.SourceClaim) {
	sort.SliceStable(claims, func(i, j int) bool {
		a, b := claims[i], claims[j]
		if a.AuthorityLevel != b.AuthorityLevel {
			return a.AuthorityLevel > b.AuthorityLevel
		}
		if !a.LastModified.Equal(b.LastModified) {
			return a.LastModified.After(b.LastModified)
		}
		return a.SourceID < b.SourceID
	})
}

// confidence is monotonic in the winner's authority level and in the number
// of other claims that substantively agree with it.
func (r *Resolver) confidence(winner boundaries.SourceClaim, claims []boundaries.SourceClaim) int {
	agreeing := 0
	for _, c := range claims {
		if c.SourceID == winner.SourceID {
			continue
		}
		if r.agrees(winner, c) {
			agreeing++
		}
	}

	confidence := r.weights.AuthorityLevel*winner.AuthorityLevel + r.weights.Agreement*agreeing
	if confidence > 100 {
		confidence = 100
	}
	return confidence
}

// agrees reports whether a claim asserts the same boundary as the winner at
// a comparable time.
func (r *Resolver) agrees(winner, other boundaries.SourceClaim) bool {
	if !bytes.Equal(winner.Geometry, other.Geometry) {
		return false
	}
	gap := winner.LastModified.Sub(other.LastModified)
	if gap < 0 {
		gap = -gap
	}
	return gap <= r.agreementWindow
}

func winnerReason(winner boundaries.SourceClaim, fromPrimary bool) string {
	if fromPrimary {
		return fmt.Sprintf("primary authority %s (authority level %d)", winner.SourceID, winner.AuthorityLevel)
	}
	return fmt.Sprintf("highest-ranked aggregator %s (authority level %d, no primary claim)", winner.SourceID, winner.AuthorityLevel)
}

func rejectionReason(winner, loser boundaries.SourceClaim) string {
	switch {
	case winner.IsPrimary && !loser.IsPrimary:
		return reasonSupersededByPrimary
	case loser.AuthorityLevel < winner.AuthorityLevel:
		return reasonLowerAuthority
	case loser.LastModified.Before(winner.LastModified):
		return reasonStale
	default:
		return reasonLexicographicOrder
	}
}
