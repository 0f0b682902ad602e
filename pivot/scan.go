package pivot

import (
	"bytes"

	"github.com/fulldump/pivotdb/pattern"
	"github.com/fulldump/pivotdb/projection"
	"github.com/fulldump/pivotdb/store"
)

type ScanStats struct {
	KeysScanned  int64 `json:"keys_scanned"`
	KeysSkipped  int64 `json:"keys_skipped"`
	RowsReturned int64 `json:"rows_returned"`
}

// keySource walks a range and yields the keys that match the pattern. It stops
// at the first key outside prefix.
type keySource struct {
	it      store.Iterator
	pattern *pattern.Pattern
	prefix  []byte
	entry   Entry
	stats   *ScanStats
}

func openKeySource(r store.Reader, p *pattern.Pattern, rng ScanRange, stats *ScanStats) *keySource {
	if rng.Full() {
		literal := []byte(p.LiteralPrefix())
		rng = ScanRange{
			Lower:  literal,
			Upper:  store.PrefixEnd(literal),
			Prefix: literal,
		}
	}
	return &keySource{
		it:      r.Iterate(rng.Lower, rng.Upper),
		pattern: p,
		prefix:  rng.Prefix,
		stats:   stats,
	}
}

func (s *keySource) Next() bool {
	for s.it.Next() {
		key := s.it.Key()
		if !bytes.HasPrefix(key, s.prefix) {
			return false
		}
		s.stats.KeysScanned++

		m := s.pattern.Match(key)
		if !m.Ok() {
			s.stats.KeysSkipped++
			continue
		}
		s.entry = Entry{
			Key:      key,
			Identity: m.Identity,
			Attr:     m.Attr,
			Value:    s.it.Value(),
		}
		return true
	}
	return false
}

func (s *keySource) Entry() Entry {
	return s.entry
}

func (s *keySource) Err() error {
	return s.it.Err()
}

func (s *keySource) Close() error {
	return s.it.Close()
}

// Rows is the lazy result of Scan. It must be closed.
type Rows struct {
	proj      *projection.Projection
	plan      Plan
	source    *keySource
	assembler *Assembler
	row       Row
	stats     ScanStats
}

// Scan reads the rows selected by plan. Residual constraints are applied after
// assembly.
func Scan(r store.Reader, proj *projection.Projection, plan Plan) *Rows {
	rows := &Rows{
		proj: proj,
		plan: plan,
	}
	rows.source = openKeySource(r, proj.Pattern(), plan.Range, &rows.stats)
	rows.assembler = NewAssembler(proj, rows.source)
	return rows
}

func (r *Rows) Next() bool {
	for r.assembler.Next() {
		row := r.assembler.Row()
		if !r.plan.Accept(r.proj, row) {
			continue
		}
		r.row = row
		r.stats.RowsReturned++
		return true
	}
	return false
}

func (r *Rows) Row() Row {
	return r.row
}

func (r *Rows) Err() error {
	return r.assembler.Err()
}

func (r *Rows) Stats() ScanStats {
	return r.stats
}

func (r *Rows) Close() error {
	return r.source.Close()
}
