package apitables

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-json-experiment/json"

	"github.com/fulldump/pivotdb/database"
)

type ColumnResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Role string `json:"role"`
}

type TableResponse struct {
	Name         string           `json:"name"`
	Pattern      string           `json:"pattern"`
	PrefixFilter string           `json:"prefix_filter,omitempty"`
	Channel      string           `json:"channel"`
	Columns      []ColumnResponse `json:"columns"`
}

func newTableResponse(table *database.Table) *TableResponse {
	result := &TableResponse{
		Name:         table.Name,
		Pattern:      table.Definition.Pattern,
		PrefixFilter: table.Definition.PrefixFilter,
		Channel:      table.Channel,
		Columns:      []ColumnResponse{},
	}
	for _, col := range table.Projection.Columns() {
		result.Columns = append(result.Columns, ColumnResponse{
			Name: col.Name,
			Type: string(col.Type),
			Role: col.Role.String(),
		})
	}
	return result
}

// readBody decodes the request body into v. An empty body leaves v untouched.
func readBody(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// writeLine writes v as one JSON line.
func writeLine(w io.Writer, v any) error {
	if err := json.MarshalWrite(w, v); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n"))
	return err
}
