package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulldump/biff"

	"github.com/fulldump/pivotdb/pattern"
	"github.com/fulldump/pivotdb/pivot"
	"github.com/fulldump/pivotdb/projection"
	"github.com/fulldump/pivotdb/store"
)

var usersDefinition = TableDefinition{
	Name:    "users",
	Pattern: "users##{tenant}##{id}##{attr}",
	Columns: []ColumnDefinition{
		{Name: "tenant"},
		{Name: "id"},
		{Name: "name"},
		{Name: "age", Type: "integer"},
	},
}

func newConfig(dir string) *Config {
	return &Config{
		Dir:   dir,
		Store: store.DefaultOptions(),
	}
}

func TestDatabase(t *testing.T) {

	biff.Alternative("Database", func(a *biff.A) {

		config := newConfig(t.TempDir())
		db := NewDatabase(config)
		biff.AssertEqual(db.GetStatus(), StatusOpening)
		biff.AssertNil(db.Load())
		biff.AssertEqual(db.GetStatus(), StatusOperating)

		table, err := db.CreateTable(usersDefinition)
		biff.AssertNil(err)
		biff.AssertEqual(table.Channel, "public_users_changed")

		a.Alternative("Projection", func(a *biff.A) {
			col, ok := table.Projection.ColumnByOrdinal(4)
			biff.AssertTrue(ok)
			biff.AssertEqual(col.Name, "age")
			biff.AssertEqual(col.Type, projection.Integer)
		})

		a.Alternative("Already exists", func(a *biff.A) {
			_, err := db.CreateTable(usersDefinition)
			biff.AssertTrue(errors.Is(err, ErrTableAlreadyExists))
		})

		a.Alternative("Invalid pattern", func(a *biff.A) {
			_, err := db.CreateTable(TableDefinition{Name: "bad", Pattern: "bad##{id}"})
			var syntaxErr *pattern.SyntaxError
			biff.AssertTrue(errors.As(err, &syntaxErr))
		})

		a.Alternative("Reload from catalog", func(a *biff.A) {
			biff.AssertNil(table.Writer.Insert(pivot.Values{
				"tenant": pivot.SetCell("t1"),
				"id":     pivot.SetCell("u1"),
				"name":   pivot.SetCell("Ann"),
			}))
			_, err := db.CreateTable(TableDefinition{
				Name:    "orders",
				Pattern: "orders:{id}:{attr}",
				Columns: []ColumnDefinition{{Name: "id"}, {Name: "total", Type: "numeric"}},
			})
			biff.AssertNil(err)
			biff.AssertNil(db.DropTable("orders"))
			biff.AssertNil(db.Stop())

			db2 := NewDatabase(newConfig(config.Dir))
			biff.AssertNil(db2.Load())
			tables := db2.ListTables()
			biff.AssertEqual(len(tables), 1)
			biff.AssertEqual(tables[0].Definition, usersDefinition)

			value, found, err := db2.Store().Get([]byte("users##t1##u1##name"))
			biff.AssertNil(err)
			biff.AssertTrue(found)
			biff.AssertEqual(string(value), "Ann")
			biff.AssertNil(db2.Stop())
		})

		a.Alternative("Drop missing table", func(a *biff.A) {
			err := db.DropTable("nope")
			biff.AssertTrue(errors.Is(err, ErrTableNotFound))
		})

		a.Alternative("Get table", func(a *biff.A) {
			got, err := db.GetTable("users")
			biff.AssertNil(err)
			biff.AssertEqual(got, table)

			_, err = db.GetTable("nope")
			biff.AssertTrue(errors.Is(err, ErrTableNotFound))
		})
	})
}

func TestDatabase_TablesFile(t *testing.T) {

	dir := t.TempDir()
	tablesFile := filepath.Join(dir, "tables.yaml")
	biff.AssertNil(os.WriteFile(tablesFile, []byte(`
tables:
  - name: users
    pattern: "users##{tenant}##{id}##{attr}"
    columns:
      - name: tenant
      - name: id
      - name: name
      - name: age
        type: integer
  - name: config
    pattern: "cfg/{app}/{attr}"
    prefix_filter: "cfg/prod"
    columns:
      - name: app
      - name: host
`), 0666))

	config := newConfig(filepath.Join(dir, "db"))
	config.TablesFile = tablesFile
	config.Namespace = "app"

	db := NewDatabase(config)
	biff.AssertNil(db.Load())

	tables := db.ListTables()
	biff.AssertEqual(len(tables), 2)
	biff.AssertEqual(tables[0].Name, "config")
	biff.AssertEqual(tables[0].Definition.PrefixFilter, "cfg/prod")
	biff.AssertEqual(tables[0].Channel, "app_config_changed")
	biff.AssertEqual(tables[1].Definition, usersDefinition)
	biff.AssertNil(db.Stop())

	// second load finds them in the catalog and does not duplicate them
	db = NewDatabase(config)
	biff.AssertNil(db.Load())
	biff.AssertEqual(len(db.ListTables()), 2)
	biff.AssertNil(db.Stop())
}

func TestDatabase_ReadOnly(t *testing.T) {

	dir := t.TempDir()

	db := NewDatabase(newConfig(dir))
	biff.AssertNil(db.Load())
	_, err := db.CreateTable(usersDefinition)
	biff.AssertNil(err)
	biff.AssertNil(db.Stop())

	config := newConfig(dir)
	config.Store.ReadOnly = true
	db = NewDatabase(config)
	biff.AssertNil(db.Load())

	table, err := db.GetTable("users")
	biff.AssertNil(err)

	err = table.Writer.Insert(pivot.Values{"tenant": pivot.SetCell("t1"), "id": pivot.SetCell("u1")})
	biff.AssertTrue(errors.Is(err, store.ErrReadOnly))

	_, err = db.CreateTable(TableDefinition{Name: "x", Pattern: "x:{id}:{attr}", Columns: []ColumnDefinition{{Name: "id"}, {Name: "v"}}})
	biff.AssertTrue(errors.Is(err, store.ErrReadOnly))

	biff.AssertNil(db.Stop())
}

func TestDatabase_MissingWithoutCreate(t *testing.T) {
	config := newConfig(filepath.Join(t.TempDir(), "missing"))
	config.Store.CreateIfMissing = false
	db := NewDatabase(config)
	biff.AssertNotNil(db.Load())
	biff.AssertEqual(db.GetStatus(), StatusClosing)
}
