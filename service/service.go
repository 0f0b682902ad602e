package service

import (
	"github.com/fulldump/pivotdb/database"
	"github.com/fulldump/pivotdb/notify"
	"github.com/fulldump/pivotdb/store"
)

type Service struct {
	db *database.Database
}

func NewService(db *database.Database) *Service {
	return &Service{
		db: db,
	}
}

func (s *Service) store() (store.Store, error) {
	st := s.db.Store()
	if st == nil {
		return nil, ErrorNotLoaded
	}
	return st, nil
}

func (s *Service) CreateTable(def database.TableDefinition) (*database.Table, error) {
	return s.db.CreateTable(def)
}

func (s *Service) GetTable(name string) (*database.Table, error) {
	return s.db.GetTable(name)
}

func (s *Service) ListTables() []*database.Table {
	return s.db.ListTables()
}

func (s *Service) DropTable(name string) error {
	return s.db.DropTable(name)
}

// Watch subscribes to the change events of a table. The caller must close the
// subscription.
func (s *Service) Watch(name string) (*notify.Subscription, error) {
	table, err := s.db.GetTable(name)
	if err != nil {
		return nil, err
	}
	return s.db.Broker.Subscribe(table.Channel), nil
}

func (s *Service) publish(table *database.Table, operation string, identity []string, keys int) {
	s.db.Broker.Publish(notify.Event{
		Channel:   table.Channel,
		Table:     table.Name,
		Operation: operation,
		Identity:  identity,
		Keys:      keys,
	})
}
