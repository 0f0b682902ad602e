package apitables

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/fulldump/box"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/fulldump/pivotdb/service"
)

// insert accepts one document or a stream of documents and answers with the
// inserted rows, one per line.
func insert(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	s := GetServicer(ctx)
	tableName := box.GetUrlParameter(ctx, "tableName")

	// fail before reading the body
	if _, err := s.GetTable(tableName); err != nil {
		return err
	}

	dec := jsontext.NewDecoder(r.Body)

	for i := 0; true; i++ {
		doc := service.Document{}
		err := json.UnmarshalDecode(dec, &doc)
		if errors.Is(err, io.EOF) {
			if i == 0 {
				w.WriteHeader(http.StatusNoContent)
			}
			return nil
		}
		if err != nil {
			return err
		}

		record, err := s.Insert(tableName, doc)
		if err != nil {
			return err
		}

		if i == 0 {
			w.WriteHeader(http.StatusCreated)
		}
		if err := writeLine(w, record); err != nil {
			return err
		}
	}

	return nil
}
