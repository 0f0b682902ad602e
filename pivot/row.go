// Package pivot turns ordered store keys into relational rows and row
// mutations back into key operations.
package pivot

import (
	"github.com/fulldump/pivotdb/projection"
)

// Identity holds one value per capture, in pattern order.
type Identity []string

func (id Identity) Equal(other []string) bool {
	if len(id) != len(other) {
		return false
	}
	for i := range id {
		if id[i] != other[i] {
			return false
		}
	}
	return true
}

// Row is one logical row. A missing entry in Attrs is NULL.
type Row struct {
	Identity Identity
	Attrs    map[string]string
}

// Entry is one parsed store key with its value.
type Entry struct {
	Key      []byte
	Identity Identity
	Attr     string
	Value    []byte
}

// EntrySource yields entries in ascending key order.
type EntrySource interface {
	Next() bool
	Entry() Entry
	Err() error
}

// Assembler groups contiguous entries sharing an identity into rows. Only
// declared attributes are kept, undeclared ones still delimit groups. It holds
// one row at a time and cannot be restarted.
type Assembler struct {
	proj    *projection.Projection
	src     EntrySource
	pending Entry
	peeked  bool
	row     Row
	err     error
	done    bool
	rows    int64
}

func NewAssembler(proj *projection.Projection, src EntrySource) *Assembler {
	return &Assembler{
		proj: proj,
		src:  src,
	}
}

func (a *Assembler) Next() bool {
	if a.done {
		return false
	}

	started := false
	current := Row{}

	for {
		var e Entry
		if a.peeked {
			e = a.pending
			a.peeked = false
		} else if a.src.Next() {
			e = a.src.Entry()
		} else {
			a.done = true
			a.err = a.src.Err()
			break
		}

		if !started {
			current = Row{
				Identity: append(Identity(nil), e.Identity...),
				Attrs:    map[string]string{},
			}
			started = true
		} else if !current.Identity.Equal(e.Identity) {
			a.pending = e
			a.peeked = true
			break
		}

		if a.proj.IsAttribute(e.Attr) {
			current.Attrs[e.Attr] = string(e.Value)
		}
	}

	if !started || a.err != nil {
		return false
	}

	a.row = current
	a.rows++
	return true
}

func (a *Assembler) Row() Row {
	return a.row
}

func (a *Assembler) Err() error {
	return a.err
}
