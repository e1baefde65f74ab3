// Package timeline resolves an athlete's event history (commitment, signing,
// enrollment, draft) into one commitment and at most one draft.
//
// Commitment-family events compete on a fixed priority lattice: the highest
// kind seen wins and is sticky, regardless of the order fragments arrive in.
// Draft events fill a separate slot once and never compete.
package timeline

import (
	"fmt"
	"strings"
)

// Kind is the inferred type of a timeline fragment.
type Kind int

const (
	KindNone Kind = iota
	KindEnrollment
	KindSigning
	KindCommitment
	KindDraft
)

func (k Kind) String() string {
	switch k {
	case KindEnrollment:
		return "enrollment"
	case KindSigning:
		return "signing"
	case KindCommitment:
		return "commitment"
	case KindDraft:
		return "draft"
	default:
		return "none"
	}
}

// ParseKind maps a configuration name to a commitment-family kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "commitment", "commit":
		return KindCommitment, nil
	case "signing", "signed", "sign":
		return KindSigning, nil
	case "enrollment", "enrolled", "enroll":
		return KindEnrollment, nil
	default:
		return KindNone, fmt.Errorf("unknown timeline kind: %q", name)
	}
}

// Policy ranks the commitment-family kinds. The first kind in the order has
// the highest priority.
type Policy struct {
	order []Kind
}

// DefaultPolicy ranks commitment > signing > enrollment.
func DefaultPolicy() Policy {
	return Policy{order: []Kind{KindCommitment, KindSigning, KindEnrollment}}
}

// NewPolicy builds a policy from an explicit order, highest first. The order
// must name each commitment-family kind exactly once.
func NewPolicy(order ...Kind) (Policy, error) {
	if len(order) != 3 {
		return Policy{}, fmt.Errorf("priority order needs 3 kinds, got %d", len(order))
	}
	seen := make(map[Kind]bool, len(order))
	for _, k := range order {
		if k != KindCommitment && k != KindSigning && k != KindEnrollment {
			return Policy{}, fmt.Errorf("kind %s cannot be ranked", k)
		}
		if seen[k] {
			return Policy{}, fmt.Errorf("kind %s ranked twice", k)
		}
		seen[k] = true
	}
	return Policy{order: append([]Kind(nil), order...)}, nil
}

// PolicyFromNames parses an order such as ["commitment", "signing", "enrollment"].
func PolicyFromNames(names []string) (Policy, error) {
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return Policy{}, err
		}
		kinds = append(kinds, k)
	}
	return NewPolicy(kinds...)
}

// Order returns the ranked kinds, highest first.
func (p Policy) Order() []Kind {
	if len(p.order) == 0 {
		return DefaultPolicy().order
	}
	return append([]Kind(nil), p.order...)
}

// Priority returns the rank of k; 0 means k never owns the commitment.
func (p Policy) Priority(k Kind) int {
	order := p.Order()
	for i, o := range order {
		if o == k {
			return len(order) - i
		}
	}
	return 0
}

var kindKeywords = map[Kind][]string{
	KindCommitment: {"commit"},
	KindSigning:    {"signed", "signs", "signing", "sign with", "sign to"},
	KindEnrollment: {"enroll"},
}

// Classify infers the kind of a fragment by case-insensitive keyword match.
// Draft text wins over everything else; among the ranked kinds the highest
// matching one is returned.
func (p Policy) Classify(text string) Kind {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "decommit") || strings.Contains(lower, "de-commit") {
		return KindNone
	}
	if strings.Contains(lower, "draft") {
		return KindDraft
	}
	for _, k := range p.Order() {
		for _, kw := range kindKeywords[k] {
			if strings.Contains(lower, kw) {
				return k
			}
		}
	}
	return KindNone
}
