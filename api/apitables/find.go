package apitables

import (
	"context"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/pivotdb/service"
)

func find(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	query := service.FindQuery{}
	if err := readBody(r, &query); err != nil {
		return err
	}

	s := GetServicer(ctx)
	tableName := box.GetUrlParameter(ctx, "tableName")

	_, err := s.Find(tableName, query, func(record service.Record) error {
		return writeLine(w, record)
	})
	return err
}
