package apikeys

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/go-json-experiment/json"

	"github.com/fulldump/pivotdb/service"
)

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func getKey(s service.Servicer) func(ctx context.Context, input *KeyValue) (*KeyValue, error) {
	return func(ctx context.Context, input *KeyValue) (*KeyValue, error) {
		value, err := s.GetKey(input.Key)
		if err != nil {
			return nil, err
		}
		return &KeyValue{Key: input.Key, Value: value}, nil
	}
}

func putKey(s service.Servicer) func(ctx context.Context, input *KeyValue) (*KeyValue, error) {
	return func(ctx context.Context, input *KeyValue) (*KeyValue, error) {
		if err := s.PutKey(input.Key, input.Value); err != nil {
			return nil, err
		}
		return input, nil
	}
}

func deleteKey(s service.Servicer) func(ctx context.Context, input *KeyValue) error {
	return func(ctx context.Context, input *KeyValue) error {
		return s.DeleteKey(input.Key)
	}
}

// listKeys streams the selected keys, one JSON object per line.
func listKeys(s service.Servicer) func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

		data, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		query := service.KeysQuery{}
		if len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, &query); err != nil {
				return err
			}
		}

		return s.ListKeys(query, func(key, value string) error {
			if err := json.MarshalWrite(w, KeyValue{Key: key, Value: value}); err != nil {
				return err
			}
			_, err := w.Write([]byte("\n"))
			return err
		})
	}
}
