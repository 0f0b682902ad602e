package service

import (
	"github.com/fulldump/pivotdb/database"
	"github.com/fulldump/pivotdb/discovery"
	"github.com/fulldump/pivotdb/pattern"
)

type Discovery struct {
	discovery.Result `json:",inline"`

	// Columns is a table definition covering the captures of the pattern
	// and every attribute found.
	Columns []database.ColumnDefinition `json:"columns"`
}

func (s *Service) Discover(patternText string, options discovery.Options) (*Discovery, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}

	p, err := pattern.Compile(patternText)
	if err != nil {
		return nil, err
	}

	result, err := discovery.Discover(st, p, options)
	if err != nil {
		return nil, err
	}

	d := &Discovery{
		Result:  result,
		Columns: []database.ColumnDefinition{},
	}
	for _, col := range discovery.Definition(p, result) {
		d.Columns = append(d.Columns, database.ColumnDefinition{
			Name: col.Name,
			Type: string(col.Type),
		})
	}
	return d, nil
}

func (s *Service) ListPrefixes(depth, max int) ([]string, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	return discovery.ListPrefixes(st, depth, max)
}

func (s *Service) InferPattern(samples int) (string, error) {
	st, err := s.store()
	if err != nil {
		return "", err
	}
	return discovery.InferPattern(st, samples)
}
