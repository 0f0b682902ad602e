package apitables

import (
	"context"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/pivotdb/service"
)

func update(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	query := service.UpdateQuery{}
	if err := readBody(r, &query); err != nil {
		return err
	}

	s := GetServicer(ctx)
	tableName := box.GetUrlParameter(ctx, "tableName")

	_, err := s.Update(tableName, query, func(record service.Record) error {
		return writeLine(w, record)
	})
	return err
}
