package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/hashicorp/go-multierror"

	"github.com/fulldump/pivotdb/notify"
	"github.com/fulldump/pivotdb/pivot"
	"github.com/fulldump/pivotdb/store"
)

const (
	StatusOpening   = "opening"
	StatusOperating = "operating"
	StatusClosing   = "closing"
)

const (
	storeDirname    = "data"
	catalogFilename = "catalog.jsonl"
)

var (
	ErrTableNotFound      = errors.New("table not found")
	ErrTableAlreadyExists = errors.New("table already exists")
)

type Config struct {
	Dir string

	// Namespace prefixes notification channels.
	Namespace string

	// TablesFile is an optional YAML file with tables created on load.
	TablesFile string

	Store store.Options
}

type Database struct {
	Config *Config

	mu      sync.RWMutex
	status  string
	tables  map[string]*Table
	store   *store.BTree
	catalog *catalog
	Broker  *notify.Broker
	exit    chan struct{}
}

func NewDatabase(config *Config) *Database {
	if config.Namespace == "" {
		config.Namespace = "public"
	}
	return &Database{
		Config: config,
		status: StatusOpening,
		tables: map[string]*Table{},
		Broker: notify.New(0),
		exit:   make(chan struct{}),
	}
}

func (db *Database) GetStatus() string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.status
}

func (db *Database) setStatus(status string) {
	db.mu.Lock()
	db.status = status
	db.mu.Unlock()
}

// Store is the key-value store shared by every table. It is nil until Load.
func (db *Database) Store() store.Store {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.store == nil {
		return nil
	}
	return db.store
}

func (db *Database) register(def TableDefinition) (*Table, error) {
	proj, err := compile(def)
	if err != nil {
		return nil, fmt.Errorf("table '%s': %w", def.Name, err)
	}
	return &Table{
		Name:       def.Name,
		Definition: def,
		Projection: proj,
		Writer:     pivot.NewWriter(db.store, proj),
		Channel:    notify.Channel(db.Config.Namespace, def.Name),
	}, nil
}

func (db *Database) CreateTable(def TableDefinition) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.store == nil {
		return nil, fmt.Errorf("database is not loaded")
	}
	if db.catalog == nil {
		return nil, store.ErrReadOnly
	}
	if _, exists := db.tables[def.Name]; exists {
		return nil, fmt.Errorf("%w: '%s'", ErrTableAlreadyExists, def.Name)
	}

	table, err := db.register(def)
	if err != nil {
		return nil, err
	}

	if err := db.catalog.append(CommandCreateTable, def); err != nil {
		return nil, fmt.Errorf("persist table '%s': %w", def.Name, err)
	}

	db.tables[def.Name] = table
	return table, nil
}

func (db *Database) GetTable(name string) (*Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	table, exists := db.tables[name]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrTableNotFound, name)
	}
	return table, nil
}

// ListTables returns tables sorted by name.
func (db *Database) ListTables() []*Table {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]*Table, 0, len(db.tables))
	for _, table := range db.tables {
		result = append(result, table)
	}
	slices.SortFunc(result, func(a, b *Table) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result
}

// DropTable forgets a table definition. Its keys stay in the store.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tables[name]; !exists {
		return fmt.Errorf("%w: '%s'", ErrTableNotFound, name)
	}
	if db.catalog == nil {
		return store.ErrReadOnly
	}

	if err := db.catalog.append(CommandDropTable, dropTableCommand{Name: name}); err != nil {
		return fmt.Errorf("persist drop '%s': %w", name, err)
	}

	delete(db.tables, name)
	return nil
}

func (db *Database) Load() error {

	slog.Info("loading database", "dir", db.Config.Dir)
	t0 := time.Now()

	err := db.load()
	if err != nil {
		db.setStatus(StatusClosing)
		return err
	}

	db.setStatus(StatusOperating)
	slog.Info("database ready", "tables", len(db.tables), "keys", db.store.Len(), "elapsed", time.Since(t0))
	return nil
}

func (db *Database) load() error {

	dir := db.Config.Dir
	options := db.Config.Store

	if !options.ReadOnly {
		if _, err := os.Stat(dir); os.IsNotExist(err) && !options.CreateIfMissing {
			return fmt.Errorf("database '%s' does not exist", dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	s, err := store.Open(filepath.Join(dir, storeDirname), options)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.store = s

	filename := filepath.Join(dir, catalogFilename)
	err = replayCatalog(filename, func(command *Command) error {
		switch command.Name {
		case CommandCreateTable:
			def := TableDefinition{}
			if err := json.Unmarshal(command.Payload, &def); err != nil {
				return fmt.Errorf("decode %s %s: %w", command.Name, command.Uuid, err)
			}
			table, err := db.register(def)
			if err != nil {
				return err
			}
			db.tables[def.Name] = table
		case CommandDropTable:
			drop := dropTableCommand{}
			if err := json.Unmarshal(command.Payload, &drop); err != nil {
				return fmt.Errorf("decode %s %s: %w", command.Name, command.Uuid, err)
			}
			delete(db.tables, drop.Name)
		default:
			slog.Warn("unknown catalog command", "name", command.Name, "uuid", command.Uuid)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay catalog: %w", err)
	}

	if options.ReadOnly {
		db.catalog = nil
	} else if db.catalog, err = openCatalog(filename); err != nil {
		return err
	}

	if db.Config.TablesFile == "" {
		return nil
	}

	defs, err := ReadTablesFile(db.Config.TablesFile)
	if err != nil {
		return err
	}
	for _, def := range defs {
		if existing, exists := db.tables[def.Name]; exists {
			if existing.Definition.Pattern != def.Pattern {
				slog.Warn("table already defined with another pattern, keeping it", "table", def.Name, "pattern", existing.Definition.Pattern)
			}
			continue
		}
		table, err := db.register(def)
		if err != nil {
			return err
		}
		if db.catalog != nil {
			if err := db.catalog.append(CommandCreateTable, def); err != nil {
				return err
			}
		}
		db.tables[def.Name] = table
		slog.Info("table loaded from file", "table", def.Name, "pattern", def.Pattern)
	}

	return nil
}

func (db *Database) Start() error {

	go func() {
		if err := db.Load(); err != nil {
			slog.Error("load database", "dir", db.Config.Dir, "error", err)
		}
	}()

	<-db.exit

	return nil
}

func (db *Database) Stop() error {

	defer close(db.exit)

	db.setStatus(StatusClosing)

	db.mu.Lock()
	defer db.mu.Unlock()

	var result error
	if db.catalog != nil {
		if err := db.catalog.Close(); err != nil {
			slog.Error("close catalog", "error", err)
			result = multierror.Append(result, fmt.Errorf("close catalog: %w", err))
		}
	}
	if db.store != nil {
		if err := db.store.Close(); err != nil {
			slog.Error("close store", "error", err)
			result = multierror.Append(result, fmt.Errorf("close store: %w", err))
		}
	}

	return result
}
