package database

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fulldump/pivotdb/pattern"
	"github.com/fulldump/pivotdb/pivot"
	"github.com/fulldump/pivotdb/projection"
)

type ColumnDefinition struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type"`
}

type TableDefinition struct {
	Name         string             `json:"name" yaml:"name"`
	Pattern      string             `json:"pattern" yaml:"pattern"`
	PrefixFilter string             `json:"prefix_filter,omitempty" yaml:"prefix_filter"`
	Columns      []ColumnDefinition `json:"columns" yaml:"columns"`
}

// Table is a registered definition with its compiled projection.
type Table struct {
	Name       string
	Definition TableDefinition
	Projection *projection.Projection
	Writer     *pivot.Writer
	Channel    string
}

// compile validates a definition. Column ordinals follow declaration order,
// starting at 1.
func compile(def TableDefinition) (*projection.Projection, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}

	p, err := pattern.Compile(def.Pattern)
	if err != nil {
		return nil, err
	}

	cols := make([]projection.ColumnDef, len(def.Columns))
	for i, c := range def.Columns {
		cols[i] = projection.ColumnDef{
			Name:    c.Name,
			Type:    projection.Type(c.Type),
			Ordinal: i + 1,
		}
	}

	return projection.New(p, cols)
}

type tablesFile struct {
	Tables []TableDefinition `yaml:"tables"`
}

// ReadTablesFile reads table definitions from a YAML file:
//
//	tables:
//	  - name: users
//	    pattern: users##{tenant}##{id}##{attr}
//	    columns:
//	      - name: tenant
//	      - name: id
//	      - name: age
//	        type: integer
func ReadTablesFile(filename string) ([]TableDefinition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read tables file: %w", err)
	}

	f := tablesFile{}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tables file '%s': %w", filename, err)
	}

	return f.Tables, nil
}
