// Package projection binds a compiled key pattern to the column list of a
// table and answers role lookups for scans and writes.
package projection

import (
	"fmt"

	"github.com/fulldump/pivotdb/pattern"
)

type Role uint8

const (
	Attribute Role = iota
	Identity
)

func (r Role) String() string {
	if r == Identity {
		return "identity"
	}
	return "attribute"
}

type ColumnDef struct {
	Name    string
	Type    Type
	Ordinal int
	Role    Role
}

// MismatchError reports a column list that does not fit its key pattern.
type MismatchError struct {
	Pattern string
	Column  string
	Msg     string
}

func (e *MismatchError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("columns do not match key pattern '%s': %s", e.Pattern, e.Msg)
	}
	return fmt.Sprintf("column '%s' does not match key pattern '%s': %s", e.Column, e.Pattern, e.Msg)
}

// Projection is immutable once built and may be shared by concurrent scans.
type Projection struct {
	pattern   *pattern.Pattern
	columns   []ColumnDef
	byName    map[string]int
	byOrdinal map[int]int
	identity  []int // column index per capture, pattern order
	attrs     []int // column index, declaration order
}

// New validates cols against p. Roles are derived from the pattern: a column
// named like a capture is an identity column, every other column is an
// attribute. Type names are normalized, an empty type means text.
func New(p *pattern.Pattern, cols []ColumnDef) (*Projection, error) {

	mismatch := func(column, format string, a ...any) error {
		return &MismatchError{Pattern: p.String(), Column: column, Msg: fmt.Sprintf(format, a...)}
	}

	proj := &Projection{
		pattern:   p,
		columns:   make([]ColumnDef, len(cols)),
		byName:    make(map[string]int, len(cols)),
		byOrdinal: make(map[int]int, len(cols)),
		identity:  make([]int, p.CaptureCount()),
	}
	for i := range proj.identity {
		proj.identity[i] = -1
	}

	for i, col := range cols {
		if col.Name == "" {
			return nil, mismatch("", "column %d has no name", i)
		}
		if _, exists := proj.byName[col.Name]; exists {
			return nil, mismatch(col.Name, "duplicate column name")
		}
		if _, exists := proj.byOrdinal[col.Ordinal]; exists {
			return nil, mismatch(col.Name, "duplicate ordinal %d", col.Ordinal)
		}

		t, err := ParseType(string(col.Type))
		if err != nil {
			return nil, mismatch(col.Name, "%s", err)
		}
		col.Type = t

		if c := p.CaptureIndex(col.Name); c >= 0 {
			col.Role = Identity
			proj.identity[c] = i
		} else {
			if err := p.CheckAttr(col.Name); err != nil {
				return nil, mismatch(col.Name, "not a legal attribute name: %s", err)
			}
			col.Role = Attribute
			proj.attrs = append(proj.attrs, i)
		}

		proj.columns[i] = col
		proj.byName[col.Name] = i
		proj.byOrdinal[col.Ordinal] = i
	}

	if p.CaptureCount() == 0 {
		return nil, mismatch("", "pattern has no captures, at least one identity column is required")
	}
	for c, idx := range proj.identity {
		if idx < 0 {
			return nil, mismatch(p.Captures()[c], "capture has no column")
		}
	}
	if len(proj.attrs) == 0 {
		return nil, mismatch("", "at least one attribute column is required")
	}

	return proj, nil
}

func (p *Projection) Pattern() *pattern.Pattern {
	return p.pattern
}

// Columns returns a copy of the columns in declaration order.
func (p *Projection) Columns() []ColumnDef {
	return append([]ColumnDef(nil), p.columns...)
}

func (p *Projection) Column(name string) (ColumnDef, bool) {
	i, ok := p.byName[name]
	if !ok {
		return ColumnDef{}, false
	}
	return p.columns[i], true
}

func (p *Projection) ColumnByOrdinal(ordinal int) (ColumnDef, bool) {
	i, ok := p.byOrdinal[ordinal]
	if !ok {
		return ColumnDef{}, false
	}
	return p.columns[i], true
}

// IdentityColumns returns identity columns in pattern order, which is the
// order of every identity tuple.
func (p *Projection) IdentityColumns() []ColumnDef {
	result := make([]ColumnDef, len(p.identity))
	for i, idx := range p.identity {
		result[i] = p.columns[idx]
	}
	return result
}

func (p *Projection) AttributeColumns() []ColumnDef {
	result := make([]ColumnDef, len(p.attrs))
	for i, idx := range p.attrs {
		result[i] = p.columns[idx]
	}
	return result
}

// IsAttribute reports whether name is a declared attribute column.
func (p *Projection) IsAttribute(name string) bool {
	i, ok := p.byName[name]
	return ok && p.columns[i].Role == Attribute
}

// IdentityIndex returns the tuple position of an identity column, or -1.
func (p *Projection) IdentityIndex(name string) int {
	i, ok := p.byName[name]
	if !ok || p.columns[i].Role != Identity {
		return -1
	}
	return p.pattern.CaptureIndex(name)
}
