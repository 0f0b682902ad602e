package service

import (
	"errors"

	"github.com/fulldump/pivotdb/database"
	"github.com/fulldump/pivotdb/discovery"
	"github.com/fulldump/pivotdb/notify"
	"github.com/fulldump/pivotdb/pivot"
)

var (
	ErrorTableNotFound      = database.ErrTableNotFound
	ErrorTableAlreadyExists = database.ErrTableAlreadyExists
	ErrorKeyNotFound        = errors.New("key not found")
	ErrorNotLoaded          = errors.New("database is not loaded")
)

type Servicer interface { // todo: split table and key operations
	CreateTable(def database.TableDefinition) (*database.Table, error)
	GetTable(name string) (*database.Table, error)
	ListTables() []*database.Table
	DropTable(name string) error

	Find(name string, query FindQuery, fn func(r Record) error) (pivot.ScanStats, error)
	Insert(name string, doc map[string]any) (Record, error)
	Update(name string, query UpdateQuery, fn func(r Record) error) (int, error)
	Remove(name string, query FindQuery, fn func(r Record) error) (int, error)
	Watch(name string) (*notify.Subscription, error)

	Discover(pattern string, options discovery.Options) (*Discovery, error)
	ListPrefixes(depth, max int) ([]string, error)
	InferPattern(samples int) (string, error)

	GetKey(key string) (string, error)
	PutKey(key, value string) error
	DeleteKey(key string) error
	ListKeys(query KeysQuery, fn func(key, value string) error) error
}
