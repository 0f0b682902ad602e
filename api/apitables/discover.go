package apitables

import (
	"context"

	"github.com/fulldump/box"

	"github.com/fulldump/pivotdb/discovery"
	"github.com/fulldump/pivotdb/service"
)

// discover lists the attributes stored under the table pattern, including the
// ones the table does not declare.
func discover(ctx context.Context, input *discovery.Options) (*service.Discovery, error) {

	s := GetServicer(ctx)

	table, err := s.GetTable(box.GetUrlParameter(ctx, "tableName"))
	if err != nil {
		return nil, err
	}

	options := *input
	if options.PrefixFilter == "" {
		options.PrefixFilter = table.Definition.PrefixFilter
	}

	return s.Discover(table.Definition.Pattern, options)
}
