package api

import (
	"context"
	jsonv1 "encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fulldump/box"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/fulldump/pivotdb/database"
	"github.com/fulldump/pivotdb/discovery"
	"github.com/fulldump/pivotdb/pattern"
	"github.com/fulldump/pivotdb/pivot"
	"github.com/fulldump/pivotdb/projection"
	"github.com/fulldump/pivotdb/service"
	"github.com/fulldump/pivotdb/store"
)

var ErrUnavailable = errors.New("temporary unavailable")

type PrettyError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (p PrettyError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"error": struct {
			Message     string `json:"message"`
			Description string `json:"description"`
		}{
			p.Message,
			p.Description,
		},
	})
}

func (p PrettyError) MarshalTo(w io.Writer) error {
	data, err := p.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func InterceptorUnavailable(db *database.Database) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {

			status := db.GetStatus()
			if status == database.StatusOpening {
				box.SetError(ctx, fmt.Errorf("%w: opening", ErrUnavailable))
				return
			}
			if status == database.StatusClosing {
				box.SetError(ctx, fmt.Errorf("%w: closing", ErrUnavailable))
				return
			}
			next(ctx)
		}
	}
}

// describeError maps an error to its HTTP status and a human description.
func describeError(ctx context.Context, err error) (int, string) {

	var (
		syntaxErr     *pattern.SyntaxError
		keyErr        *pattern.KeyEncodingError
		mismatchErr   *projection.MismatchError
		conversionErr *projection.ConversionError
		jsonErr       *jsontext.SyntacticError
		semanticErr   *json.SemanticError
		jsonv1Err     *jsonv1.SyntaxError
		typeErr       *jsonv1.UnmarshalTypeError
	)

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "user is not authenticated"
	case errors.Is(err, box.ErrResourceNotFound):
		return http.StatusNotFound, fmt.Sprintf("resource '%s' not found", box.GetRequest(ctx).URL.String())
	case errors.Is(err, box.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, fmt.Sprintf("method '%s' not allowed", box.GetRequest(ctx).Method)
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "database is not ready, retry later"
	case errors.Is(err, service.ErrorTableNotFound):
		return http.StatusNotFound, "table does not exist"
	case errors.Is(err, service.ErrorKeyNotFound):
		return http.StatusNotFound, "key does not exist"
	case errors.Is(err, service.ErrorTableAlreadyExists):
		return http.StatusConflict, "a table with that name already exists"
	case errors.Is(err, store.ErrReadOnly):
		return http.StatusForbidden, "database is opened read-only"
	case errors.Is(err, discovery.ErrNoPattern):
		return http.StatusUnprocessableEntity, "stored keys do not share a recognizable structure"
	case errors.As(err, &syntaxErr):
		return http.StatusBadRequest, "Invalid key pattern"
	case errors.As(err, &mismatchErr):
		return http.StatusBadRequest, "Columns do not match the key pattern"
	case errors.As(err, &keyErr):
		return http.StatusBadRequest, "Value cannot be encoded in a key"
	case errors.As(err, &conversionErr):
		return http.StatusBadRequest, "Value does not match the column type"
	case errors.Is(err, pivot.ErrMissingIdentity):
		return http.StatusBadRequest, "Every identity column must have a value"
	case errors.Is(err, pivot.ErrUnknownColumn):
		return http.StatusBadRequest, "Unknown column"
	case errors.As(err, &jsonErr), errors.As(err, &jsonv1Err):
		return http.StatusBadRequest, "Malformed JSON"
	case errors.As(err, &semanticErr), errors.As(err, &typeErr):
		return http.StatusBadRequest, "Unexpected JSON value"
	}

	return http.StatusInternalServerError, "Unexpected error"
}

func PrettyErrorInterceptor(next box.H) box.H {
	return func(ctx context.Context) {

		next(ctx)

		err := box.GetError(ctx)
		if err == nil {
			return
		}
		w := box.GetResponse(ctx)

		status, description := describeError(ctx, err)
		w.WriteHeader(status)
		PrettyError{
			Message:     err.Error(),
			Description: description,
		}.MarshalTo(w)
	}
}
