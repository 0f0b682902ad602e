package pivot

import (
	"errors"
	"fmt"

	"github.com/fulldump/pivotdb/projection"
	"github.com/fulldump/pivotdb/store"
)

var ErrUnknownColumn = errors.New("unknown column")

// Constraint is an equality between a column and a stored value.
type Constraint struct {
	Column string
	Value  string
}

// ScanRange bounds a scan to [Lower, Upper) and stops at the first key not
// starting with Prefix. The zero value is a full scan.
type ScanRange struct {
	Lower  []byte
	Upper  []byte
	Prefix []byte
}

func (r ScanRange) Full() bool {
	return r.Lower == nil && r.Upper == nil && r.Prefix == nil
}

// Restrict narrows the range to keys that also start with prefix.
func (r ScanRange) Restrict(prefix []byte) ScanRange {
	if len(prefix) == 0 {
		return r
	}
	if r.Full() || hasPrefix(prefix, r.Prefix) {
		return ScanRange{
			Lower:  prefix,
			Upper:  store.PrefixEnd(prefix),
			Prefix: prefix,
		}
	}
	if hasPrefix(r.Prefix, prefix) {
		return r
	}
	// disjoint
	return ScanRange{
		Lower:  r.Prefix,
		Upper:  r.Prefix,
		Prefix: r.Prefix,
	}
}

func hasPrefix(s, prefix []byte) bool {
	return len(s) >= len(prefix) && string(s[:len(prefix)]) == string(prefix)
}

type Plan struct {
	Range ScanRange

	// Pinned is the number of leading identity columns pushed into Range.
	Pinned int

	// Residual constraints are checked on every assembled row.
	Residual []Constraint
}

// PlanScan pushes equality constraints on the longest leading run of identity
// columns into a key range. Everything else is returned as residual.
func PlanScan(proj *projection.Projection, constraints []Constraint) (Plan, error) {

	p := proj.Pattern()
	pinned := make([]*Constraint, p.CaptureCount())
	plan := Plan{}

	for i := range constraints {
		c := constraints[i]
		if _, exists := proj.Column(c.Column); !exists {
			return Plan{}, fmt.Errorf("%w '%s'", ErrUnknownColumn, c.Column)
		}
		idx := proj.IdentityIndex(c.Column)
		if idx >= 0 && pinned[idx] == nil {
			pinned[idx] = &c
			continue
		}
		plan.Residual = append(plan.Residual, c)
	}

	values := []string{}
	for _, c := range pinned {
		if c == nil {
			break
		}
		values = append(values, c.Value)
	}

	// a value that cannot be rendered stays residual with everything after it
	for ; len(values) > 0; values = values[:len(values)-1] {
		if _, err := p.Prefix(values...); err == nil {
			break
		}
	}

	for i, c := range pinned {
		if c != nil && i >= len(values) {
			plan.Residual = append(plan.Residual, *c)
		}
	}

	plan.Pinned = len(values)
	if plan.Pinned == 0 {
		return plan, nil
	}

	lower, _ := p.Prefix(values...)
	stem, _ := p.Stem(values...)
	plan.Range = ScanRange{
		Lower:  lower,
		Upper:  store.PrefixEnd(stem),
		Prefix: lower,
	}

	return plan, nil
}

// Accept reports whether row satisfies every residual constraint. NULL never
// equals anything.
func (plan Plan) Accept(proj *projection.Projection, row Row) bool {
	for _, c := range plan.Residual {
		if idx := proj.IdentityIndex(c.Column); idx >= 0 {
			if row.Identity[idx] != c.Value {
				return false
			}
			continue
		}
		value, exists := row.Attrs[c.Column]
		if !exists || value != c.Value {
			return false
		}
	}
	return true
}
