package service

import (
	"fmt"

	"github.com/fulldump/pivotdb/store"
)

type KeysQuery struct {
	// From is inclusive, To is exclusive. Empty means unbounded.
	From   string `json:"from"`
	To     string `json:"to"`
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
}

func (s *Service) GetKey(key string) (string, error) {
	st, err := s.store()
	if err != nil {
		return "", err
	}
	rawKeyOperations.WithLabelValues("get").Inc()

	value, found, err := st.Get([]byte(key))
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: '%s'", ErrorKeyNotFound, key)
	}
	return string(value), nil
}

func (s *Service) PutKey(key, value string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	st, err := s.store()
	if err != nil {
		return err
	}
	rawKeyOperations.WithLabelValues("put").Inc()
	return st.Put([]byte(key), []byte(value))
}

func (s *Service) DeleteKey(key string) error {
	st, err := s.store()
	if err != nil {
		return err
	}
	rawKeyOperations.WithLabelValues("delete").Inc()
	return st.Delete([]byte(key))
}

// ListKeys calls fn for the keys in query order. It stops after Limit keys
// when Limit is positive.
func (s *Service) ListKeys(query KeysQuery, fn func(key, value string) error) error {
	st, err := s.store()
	if err != nil {
		return err
	}
	rawKeyOperations.WithLabelValues("list").Inc()

	var lower, upper []byte
	if query.From != "" {
		lower = []byte(query.From)
	}
	if query.To != "" {
		upper = []byte(query.To)
	}
	if query.Prefix != "" {
		prefix := []byte(query.Prefix)
		if lower == nil || string(lower) < query.Prefix {
			lower = prefix
		}
		if end := store.PrefixEnd(prefix); end != nil && (upper == nil || string(end) < string(upper)) {
			upper = end
		}
	}

	it := st.Iterate(lower, upper)
	defer it.Close()

	n := 0
	for it.Next() {
		if query.Limit > 0 && n >= query.Limit {
			break
		}
		if err := fn(string(it.Key()), string(it.Value())); err != nil {
			return err
		}
		n++
	}
	return it.Err()
}
