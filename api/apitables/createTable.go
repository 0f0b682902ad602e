package apitables

import (
	"context"
	"net/http"

	"github.com/fulldump/pivotdb/database"
)

func createTable(ctx context.Context, w http.ResponseWriter, input *database.TableDefinition) (*TableResponse, error) {

	s := GetServicer(ctx)

	table, err := s.CreateTable(*input)
	if err != nil {
		return nil, err
	}

	w.WriteHeader(http.StatusCreated)
	return newTableResponse(table), nil
}
