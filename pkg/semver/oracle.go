package semver

import (
	"strings"
	"sync"

	mm "github.com/Masterminds/semver/v3"
)

// Oracle decides whether a concrete version satisfies a required range.
// Implementations must be pure: the same inputs always give the same answer.
type Oracle interface {
	Compatible(requiredRange string, v Version) bool
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(requiredRange string, v Version) bool

// Compatible calls f(requiredRange, v).
func (f OracleFunc) Compatible(requiredRange string, v Version) bool {
	return f(requiredRange, v)
}

// ConstraintOracle interprets ranges as Masterminds constraints.
//
// A range that is a bare version is read as a caret range: "1.2.0" accepts
// anything ^1.2.0 accepts (>=1.2.0 <2.0.0). An empty range or "*" accepts any
// version. Ranges that fail to parse accept nothing.
//
// Parsed constraints are memoized; a ConstraintOracle is safe for
// concurrent use.
type ConstraintOracle struct {
	parsed sync.Map // string -> Constraint (zero when invalid)
}

// NewConstraintOracle returns an oracle with an empty constraint cache.
func NewConstraintOracle() *ConstraintOracle {
	return &ConstraintOracle{}
}

// Compatible reports whether v satisfies requiredRange.
func (o *ConstraintOracle) Compatible(requiredRange string, v Version) bool {
	return Satisfies(v, o.constraint(requiredRange))
}

func (o *ConstraintOracle) constraint(raw string) Constraint {
	if cached, ok := o.parsed.Load(raw); ok {
		return cached.(Constraint)
	}
	c, _ := ParseConstraint(normalizeRange(raw))
	o.parsed.Store(raw, c)
	return c
}

// normalizeRange rewrites bare versions to caret ranges.
func normalizeRange(raw string) string {
	r := strings.TrimSpace(raw)
	if r == "" {
		return "*"
	}
	if _, err := mm.NewVersion(r); err == nil {
		return "^" + strings.TrimPrefix(r, "v")
	}
	return r
}

// ValidRange reports whether raw can be interpreted by ConstraintOracle.
func ValidRange(raw string) bool {
	_, err := ParseConstraint(normalizeRange(raw))
	return err == nil
}

var _ Oracle = (*ConstraintOracle)(nil)
