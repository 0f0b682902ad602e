package service

import (
	"fmt"
	"log/slog"

	"github.com/SierraSoftworks/connor"

	"github.com/fulldump/pivotdb/database"
	"github.com/fulldump/pivotdb/pivot"
)

type FindQuery struct {
	// Where holds equality constraints. Constraints on leading identity
	// columns narrow the scanned key range.
	Where Document `json:"where"`

	// Filter is a connor expression checked on the decoded record.
	Filter map[string]any `json:"filter"`

	Skip int64 `json:"skip"`

	// Limit 0 means no limit.
	Limit int64 `json:"limit"`
}

type UpdateQuery struct {
	FindQuery `json:",inline"`
	Set       Document `json:"set"`
}

type match struct {
	row    pivot.Row
	record Record
}

// scan streams the rows of table selected by query.
func (s *Service) scan(table *database.Table, query FindQuery, fn func(m match) error) (pivot.ScanStats, error) {

	st, err := s.store()
	if err != nil {
		return pivot.ScanStats{}, err
	}

	proj := table.Projection
	constraints := make([]pivot.Constraint, 0, len(query.Where))
	for name, v := range query.Where {
		col, exists := proj.Column(name)
		if !exists {
			return pivot.ScanStats{}, fmt.Errorf("%w '%s'", pivot.ErrUnknownColumn, name)
		}
		if v == nil {
			// null equals nothing
			return pivot.ScanStats{}, nil
		}
		value, err := encodeValues(proj, map[string]any{col.Name: v})
		if err != nil {
			return pivot.ScanStats{}, err
		}
		constraints = append(constraints, pivot.Constraint{Column: name, Value: value[name].Value})
	}

	plan, err := pivot.PlanScan(proj, constraints)
	if err != nil {
		return pivot.ScanStats{}, err
	}
	plan.Range = plan.Range.Restrict([]byte(table.Definition.PrefixFilter))

	rows := pivot.Scan(st, proj, plan)
	defer rows.Close()

	hasFilter := len(query.Filter) > 0
	skip := query.Skip
	limit := query.Limit

	for rows.Next() {
		row := rows.Row()
		record, err := decodeRow(proj, row)
		if err != nil {
			return rows.Stats(), err
		}

		if hasFilter {
			doc, err := record.document()
			if err != nil {
				return rows.Stats(), err
			}
			matched, err := connor.Match(query.Filter, doc)
			if err != nil {
				return rows.Stats(), fmt.Errorf("match: %w", err)
			}
			if !matched {
				continue
			}
		}

		if skip > 0 {
			skip--
			continue
		}

		if err := fn(match{row: row, record: record}); err != nil {
			return rows.Stats(), err
		}

		if limit > 0 {
			limit--
			if limit == 0 {
				break
			}
		}
	}

	stats := rows.Stats()
	observeScan(table.Name, stats)
	slog.Debug("scan", "table", table.Name, "pinned", plan.Pinned, "residual", len(plan.Residual),
		"keys_scanned", stats.KeysScanned, "keys_skipped", stats.KeysSkipped, "rows", stats.RowsReturned)

	return stats, rows.Err()
}

// collect runs scan to completion before returning the matches, so callers
// can mutate the table afterwards.
func (s *Service) collect(table *database.Table, query FindQuery) ([]match, error) {
	matches := []match{}
	_, err := s.scan(table, query, func(m match) error {
		matches = append(matches, m)
		return nil
	})
	return matches, err
}

func (s *Service) Find(name string, query FindQuery, fn func(r Record) error) (pivot.ScanStats, error) {
	table, err := s.db.GetTable(name)
	if err != nil {
		return pivot.ScanStats{}, err
	}
	return s.scan(table, query, func(m match) error {
		return fn(m.record)
	})
}

// Insert writes one row. Existing attributes of the same identity that are not
// part of doc are kept.
func (s *Service) Insert(name string, doc map[string]any) (Record, error) {
	table, err := s.db.GetTable(name)
	if err != nil {
		return Record{}, err
	}

	values, err := encodeValues(table.Projection, doc)
	if err != nil {
		return Record{}, err
	}

	batch, err := table.Writer.PlanInsert(values)
	if err != nil {
		return Record{}, err
	}
	if err := table.Writer.Apply(batch); err != nil {
		return Record{}, err
	}

	row := pivot.Row{Identity: make(pivot.Identity, table.Projection.Pattern().CaptureCount())}
	row = applyValues(table.Projection, row, values)

	observeMutation(table.Name, "insert", batch)
	s.publish(table, "insert", row.Identity, len(batch.Ops))

	return decodeRow(table.Projection, row)
}

// Update applies query.Set to every selected row and calls fn with the row as
// it was written.
func (s *Service) Update(name string, query UpdateQuery, fn func(r Record) error) (int, error) {
	table, err := s.db.GetTable(name)
	if err != nil {
		return 0, err
	}

	values, err := encodeValues(table.Projection, query.Set)
	if err != nil {
		return 0, err
	}

	matches, err := s.collect(table, query.FindQuery)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, m := range matches {
		batch, err := table.Writer.PlanUpdate(m.row.Identity, values)
		if err != nil {
			return n, err
		}
		if err := table.Writer.Apply(batch); err != nil {
			return n, err
		}
		n++

		updated := applyValues(table.Projection, m.row, values)
		if !batch.Empty() {
			observeMutation(table.Name, "update", batch)
			s.publish(table, "update", updated.Identity, len(batch.Ops))
		}

		record, err := decodeRow(table.Projection, updated)
		if err != nil {
			return n, err
		}
		if err := fn(record); err != nil {
			return n, err
		}
	}

	return n, nil
}

// Remove deletes every key of the selected rows and calls fn with each removed
// row.
func (s *Service) Remove(name string, query FindQuery, fn func(r Record) error) (int, error) {
	table, err := s.db.GetTable(name)
	if err != nil {
		return 0, err
	}

	matches, err := s.collect(table, query)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, m := range matches {
		batch, err := table.Writer.PlanDelete(m.row.Identity)
		if err != nil {
			return n, err
		}
		if err := table.Writer.Apply(batch); err != nil {
			return n, err
		}
		n++

		observeMutation(table.Name, "delete", batch)
		s.publish(table, "delete", m.row.Identity, len(batch.Ops))

		if err := fn(m.record); err != nil {
			return n, err
		}
	}

	return n, nil
}
