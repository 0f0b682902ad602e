package service

import (
	"errors"
	"testing"

	"github.com/fulldump/biff"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/fulldump/pivotdb/database"
	"github.com/fulldump/pivotdb/pivot"
	"github.com/fulldump/pivotdb/store"
)

func newService(t *testing.T) (*Service, *database.Database) {
	db := database.NewDatabase(&database.Config{
		Dir:   t.TempDir(),
		Store: store.DefaultOptions(),
	})
	biff.AssertNil(db.Load())
	t.Cleanup(func() { db.Stop() })
	return NewService(db), db
}

var metricsTable = database.TableDefinition{
	Name:    "metrics",
	Pattern: "m:{host}:{day}:{attr}",
	Columns: []database.ColumnDefinition{
		{Name: "host"},
		{Name: "day", Type: "date"},
		{Name: "load", Type: "numeric"},
		{Name: "up", Type: "boolean"},
		{Name: "tags", Type: "jsonb"},
	},
}

func collectRecords(t *testing.T, s *Service, query FindQuery) []map[string]any {
	result := []map[string]any{}
	_, err := s.Find("metrics", query, func(r Record) error {
		doc, err := r.document()
		biff.AssertNil(err)
		result = append(result, doc)
		return nil
	})
	biff.AssertNil(err)
	return result
}

func TestService(t *testing.T) {

	biff.Alternative("Service", func(a *biff.A) {

		s, _ := newService(t)
		_, err := s.CreateTable(metricsTable)
		biff.AssertNil(err)

		record, err := s.Insert("metrics", map[string]any{
			"host": "web1",
			"day":  "2024-03-01",
			"load": 0.75,
			"up":   true,
			"tags": map[string]any{"zone": "a", "env": "prod"},
		})
		biff.AssertNil(err)

		a.Alternative("Typed record", func(a *biff.A) {
			data, err := json.Marshal(record)
			biff.AssertNil(err)
			biff.AssertEqual(string(data), `{"host":"web1","day":"2024-03-01","load":0.75,"up":true,"tags":{"env":"prod","zone":"a"}}`)

			value, found := record.Get("load")
			biff.AssertTrue(found)
			biff.AssertEqual(value, jsontext.Value("0.75"))
		})

		a.Alternative("Stored text", func(a *biff.A) {
			value, err := s.GetKey("m:web1:2024-03-01:up")
			biff.AssertNil(err)
			biff.AssertEqual(value, "t")

			value, err = s.GetKey("m:web1:2024-03-01:tags")
			biff.AssertNil(err)
			biff.AssertEqual(value, `{"env":"prod","zone":"a"}`)
		})

		a.Alternative("Find pinned", func(a *biff.A) {
			_, err := s.Insert("metrics", map[string]any{"host": "web2", "day": "2024-03-01", "up": false})
			biff.AssertNil(err)

			stats, err := s.Find("metrics", FindQuery{Where: map[string]any{"host": "web2"}}, func(r Record) error {
				v, _ := r.Get("up")
				biff.AssertEqual(v, false)
				return nil
			})
			biff.AssertNil(err)
			biff.AssertEqual(stats.RowsReturned, int64(1))
			biff.AssertEqual(stats.KeysScanned, int64(1))
		})

		a.Alternative("Find null where", func(a *biff.A) {
			records := collectRecords(t, s, FindQuery{Where: map[string]any{"up": nil}})
			biff.AssertEqual(len(records), 0)
		})

		a.Alternative("Find date where", func(a *biff.A) {
			records := collectRecords(t, s, FindQuery{Where: map[string]any{"host": "web1", "day": "2024-03-01"}})
			biff.AssertEqual(len(records), 1)
		})

		a.Alternative("Update", func(a *biff.A) {
			n, err := s.Update("metrics", UpdateQuery{
				FindQuery: FindQuery{Where: map[string]any{"host": "web1"}},
				Set:       map[string]any{"load": "1.5", "tags": nil},
			}, func(r Record) error {
				v, _ := r.Get("tags")
				biff.AssertNil(v)
				return nil
			})
			biff.AssertNil(err)
			biff.AssertEqual(n, 1)

			_, err = s.GetKey("m:web1:2024-03-01:tags")
			biff.AssertTrue(errors.Is(err, ErrorKeyNotFound))
		})

		a.Alternative("Remove", func(a *biff.A) {
			n, err := s.Remove("metrics", FindQuery{}, func(r Record) error { return nil })
			biff.AssertNil(err)
			biff.AssertEqual(n, 1)

			keys := 0
			biff.AssertNil(s.ListKeys(KeysQuery{}, func(key, value string) error {
				keys++
				return nil
			}))
			biff.AssertEqual(keys, 0)
		})

		a.Alternative("Unknown table", func(a *biff.A) {
			_, err := s.Insert("nope", map[string]any{})
			biff.AssertTrue(errors.Is(err, ErrorTableNotFound))
		})

		a.Alternative("Prefix filter", func(a *biff.A) {
			def := metricsTable
			def.Name = "web2only"
			def.PrefixFilter = "m:web2:"
			_, err := s.CreateTable(def)
			biff.AssertNil(err)
			_, err = s.Insert("metrics", map[string]any{"host": "web2", "day": "2024-03-02", "up": true})
			biff.AssertNil(err)

			hosts := []any{}
			_, err = s.Find("web2only", FindQuery{}, func(r Record) error {
				v, _ := r.Get("host")
				hosts = append(hosts, v)
				return nil
			})
			biff.AssertNil(err)
			biff.AssertEqual(hosts, []any{"web2"})
		})
	})
}

func TestService_Watch(t *testing.T) {

	s, _ := newService(t)
	_, err := s.CreateTable(metricsTable)
	biff.AssertNil(err)

	sub, err := s.Watch("metrics")
	biff.AssertNil(err)
	defer sub.Close()

	_, err = s.Insert("metrics", map[string]any{"host": "web1", "day": "2024-03-01", "up": true, "load": 2})
	biff.AssertNil(err)
	_, err = s.Remove("metrics", FindQuery{}, func(r Record) error { return nil })
	biff.AssertNil(err)

	e := <-sub.C
	biff.AssertEqual(e.Operation, "insert")
	biff.AssertEqual(e.Channel, "public_metrics_changed")
	biff.AssertEqual(e.Identity, []string{"web1", "2024-03-01"})
	biff.AssertEqual(e.Keys, 2)

	e = <-sub.C
	biff.AssertEqual(e.Operation, "delete")
	biff.AssertEqual(e.Keys, 2)

	_, err = s.Watch("nope")
	biff.AssertTrue(errors.Is(err, ErrorTableNotFound))
}

func TestService_ListKeys(t *testing.T) {

	s, _ := newService(t)
	for _, k := range []string{"a", "b/1", "b/2", "b/3", "c"} {
		biff.AssertNil(s.PutKey(k, "v"+k))
	}

	list := func(query KeysQuery) []string {
		keys := []string{}
		biff.AssertNil(s.ListKeys(query, func(key, value string) error {
			biff.AssertEqual(value, "v"+key)
			keys = append(keys, key)
			return nil
		}))
		return keys
	}

	biff.AssertEqual(list(KeysQuery{}), []string{"a", "b/1", "b/2", "b/3", "c"})
	biff.AssertEqual(list(KeysQuery{From: "b", To: "c"}), []string{"b/1", "b/2", "b/3"})
	biff.AssertEqual(list(KeysQuery{Prefix: "b/", Limit: 2}), []string{"b/1", "b/2"})
	biff.AssertEqual(list(KeysQuery{Prefix: "b/", From: "b/2"}), []string{"b/2", "b/3"})
	biff.AssertEqual(list(KeysQuery{Prefix: "b/", To: "b/3"}), []string{"b/1", "b/2"})

	biff.AssertNil(s.DeleteKey("a"))
	_, err := s.GetKey("a")
	biff.AssertTrue(errors.Is(err, ErrorKeyNotFound))

	biff.AssertNotNil(s.PutKey("", "x"))
}

func TestService_ReadOnly(t *testing.T) {

	dir := t.TempDir()
	db := database.NewDatabase(&database.Config{Dir: dir, Store: store.DefaultOptions()})
	biff.AssertNil(db.Load())
	s := NewService(db)
	_, err := s.CreateTable(metricsTable)
	biff.AssertNil(err)
	_, err = s.Insert("metrics", map[string]any{"host": "web1", "day": "2024-03-01", "up": true})
	biff.AssertNil(err)
	biff.AssertNil(db.Stop())

	options := store.DefaultOptions()
	options.ReadOnly = true
	db = database.NewDatabase(&database.Config{Dir: dir, Store: options})
	biff.AssertNil(db.Load())
	defer db.Stop()
	s = NewService(db)

	records := collectRecords(t, s, FindQuery{})
	biff.AssertEqual(len(records), 1)

	_, err = s.Insert("metrics", map[string]any{"host": "web2", "day": "2024-03-01"})
	biff.AssertTrue(errors.Is(err, store.ErrReadOnly))

	err = s.PutKey("x", "y")
	biff.AssertTrue(errors.Is(err, store.ErrReadOnly))

	_, err = s.Update("metrics", UpdateQuery{Set: map[string]any{"up": false}}, func(r Record) error { return nil })
	biff.AssertTrue(errors.Is(err, store.ErrReadOnly))
}

func TestEncodeValues(t *testing.T) {
	s, _ := newService(t)
	table, err := s.CreateTable(metricsTable)
	biff.AssertNil(err)

	values, err := encodeValues(table.Projection, map[string]any{"host": "h", "up": nil, "load": 3.0})
	biff.AssertNil(err)
	biff.AssertEqual(values, pivot.Values{
		"host": pivot.SetCell("h"),
		"up":   pivot.NullCell,
		"load": pivot.SetCell("3"),
	})

	_, err = encodeValues(table.Projection, map[string]any{"nope": 1})
	biff.AssertTrue(errors.Is(err, pivot.ErrUnknownColumn))
}

func TestService_InsertKeepsNumberText(t *testing.T) {
	s, _ := newService(t)
	_, err := s.CreateTable(database.TableDefinition{
		Name:    "counters",
		Pattern: "c/{id}/{attr}",
		Columns: []database.ColumnDefinition{
			{Name: "id"},
			{Name: "n", Type: "bigint"},
			{Name: "x", Type: "numeric"},
			{Name: "small", Type: "integer"},
		},
	})
	biff.AssertNil(err)

	doc := Document{}
	err = json.Unmarshal([]byte(`{"id":"a","n":9007199254740993,"x":12345678901234567890.123}`), &doc)
	biff.AssertNil(err)

	record, err := s.Insert("counters", doc)
	biff.AssertNil(err)
	data, err := json.Marshal(record)
	biff.AssertNil(err)
	biff.AssertEqual(string(data), `{"id":"a","n":9007199254740993,"x":12345678901234567890.123,"small":null}`)

	n, err := s.GetKey("c/a/n")
	biff.AssertNil(err)
	biff.AssertEqual(n, "9007199254740993")

	x, err := s.GetKey("c/a/x")
	biff.AssertNil(err)
	biff.AssertEqual(x, "12345678901234567890.123")

	query := FindQuery{}
	err = json.Unmarshal([]byte(`{"where":{"n":9007199254740993}}`), &query)
	biff.AssertNil(err)
	found := 0
	_, err = s.Find("counters", query, func(r Record) error {
		found++
		return nil
	})
	biff.AssertNil(err)
	biff.AssertEqual(found, 1)

	doc = Document{}
	err = json.Unmarshal([]byte(`{"id":"b","small":2147483648}`), &doc)
	biff.AssertNil(err)
	_, err = s.Insert("counters", doc)
	biff.AssertNotNil(err)
	_, err = s.GetKey("c/b/small")
	biff.AssertTrue(errors.Is(err, ErrorKeyNotFound))
}
