package apitables

import (
	"context"
)

func listTables(ctx context.Context) ([]*TableResponse, error) {

	s := GetServicer(ctx)

	result := []*TableResponse{}
	for _, table := range s.ListTables() {
		result = append(result, newTableResponse(table))
	}

	return result, nil
}
