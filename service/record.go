package service

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/fulldump/pivotdb/pivot"
	"github.com/fulldump/pivotdb/projection"
)

// Record is a row with typed column values, in column order. A nil value is
// NULL.
type Record struct {
	columns []string
	values  []any
}

func (r Record) Len() int {
	return len(r.columns)
}

func (r Record) Get(name string) (any, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return nil, false
}

func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSONTo writes the record as an object keeping column order.
func (r Record) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	for i, c := range r.columns {
		if err := enc.WriteToken(jsontext.String(c)); err != nil {
			return err
		}
		switch v := r.values[i].(type) {
		case nil:
			err := enc.WriteToken(jsontext.Null)
			if err != nil {
				return err
			}
		case jsontext.Value:
			if err := enc.WriteValue(v); err != nil {
				return err
			}
		default:
			if err := json.MarshalEncode(enc, v); err != nil {
				return err
			}
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}

// MarshalJSON serves encoders that do not know MarshalJSONTo.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r)
}

// document is the plain JSON form of the record, used for filtering.
func (r Record) document() (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	err = json.Unmarshal(data, &doc)
	return doc, err
}

// Document is a client document of column values. Numbers, booleans, objects
// and arrays are kept as raw JSON so Encode sees the exact text the client
// sent. Strings stay strings and null is nil.
type Document map[string]any

func (d *Document) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	raw := map[string]jsontext.Value{}
	if err := json.UnmarshalDecode(dec, &raw); err != nil {
		return err
	}
	doc := make(Document, len(raw))
	for name, value := range raw {
		switch value.Kind() {
		case 'n':
			doc[name] = nil
		case '"':
			s := ""
			if err := json.Unmarshal(value, &s); err != nil {
				return err
			}
			doc[name] = s
		default:
			doc[name] = value
		}
	}
	*d = doc
	return nil
}

// decodeRow converts the stored text of every column. Dates, timestamps and
// bytea keep their canonical text form.
func decodeRow(proj *projection.Projection, row pivot.Row) (Record, error) {
	cols := proj.Columns()
	record := Record{
		columns: make([]string, len(cols)),
		values:  make([]any, len(cols)),
	}
	for i, col := range cols {
		record.columns[i] = col.Name

		var stored string
		if idx := proj.IdentityIndex(col.Name); idx >= 0 {
			stored = row.Identity[idx]
		} else if v, exists := row.Attrs[col.Name]; exists {
			stored = v
		} else {
			continue
		}

		value, err := projection.Decode(col.Type, stored)
		if err != nil {
			return Record{}, fmt.Errorf("column '%s' of row %v: %w", col.Name, []string(row.Identity), err)
		}
		switch col.Type {
		case projection.Date, projection.Timestamp, projection.TimestampTZ, projection.Bytea:
			if value, err = projection.Encode(col.Type, value); err != nil {
				return Record{}, fmt.Errorf("column '%s' of row %v: %w", col.Name, []string(row.Identity), err)
			}
		}
		record.values[i] = value
	}
	return record, nil
}

// encodeValues turns a client document into write intents. Missing columns
// are unchanged, null clears the column.
func encodeValues(proj *projection.Projection, doc map[string]any) (pivot.Values, error) {
	values := make(pivot.Values, len(doc))
	for name, v := range doc {
		col, exists := proj.Column(name)
		if !exists {
			return nil, fmt.Errorf("%w '%s'", pivot.ErrUnknownColumn, name)
		}
		if v == nil {
			values[name] = pivot.NullCell
			continue
		}
		s, err := projection.Encode(col.Type, v)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %w", name, err)
		}
		values[name] = pivot.SetCell(s)
	}
	return values, nil
}

// applyValues returns row after the intents in values.
func applyValues(proj *projection.Projection, row pivot.Row, values pivot.Values) pivot.Row {
	result := pivot.Row{
		Identity: append(pivot.Identity(nil), row.Identity...),
		Attrs:    make(map[string]string, len(row.Attrs)),
	}
	for k, v := range row.Attrs {
		result.Attrs[k] = v
	}
	for name, cell := range values {
		if idx := proj.IdentityIndex(name); idx >= 0 {
			if cell.State == pivot.Set {
				result.Identity[idx] = cell.Value
			}
			continue
		}
		switch cell.State {
		case pivot.Set:
			result.Attrs[name] = cell.Value
		case pivot.Null:
			delete(result.Attrs, name)
		}
	}
	return result
}
