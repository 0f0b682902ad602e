package apitables

import (
	"context"

	"github.com/fulldump/box"
)

func getTable(ctx context.Context) (*TableResponse, error) {

	s := GetServicer(ctx)

	table, err := s.GetTable(box.GetUrlParameter(ctx, "tableName"))
	if err != nil {
		return nil, err
	}

	return newTableResponse(table), nil
}
