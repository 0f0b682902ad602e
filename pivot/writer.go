package pivot

import (
	"errors"
	"fmt"

	"github.com/fulldump/pivotdb/projection"
	"github.com/fulldump/pivotdb/store"
)

var ErrMissingIdentity = errors.New("missing identity value")

type CellState uint8

const (
	Unchanged CellState = iota
	Null
	Set
)

// Cell is the intent for one column of a mutation.
type Cell struct {
	State CellState
	Value string
}

func SetCell(value string) Cell {
	return Cell{State: Set, Value: value}
}

var NullCell = Cell{State: Null}

// Values maps column name to intent. Absent columns are unchanged.
type Values map[string]Cell

type OpKind uint8

const (
	OpPut OpKind = iota
	OpDelete
)

func (k OpKind) String() string {
	if k == OpDelete {
		return "delete"
	}
	return "put"
}

type KeyOp struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// WriteBatch is the ordered set of key operations of one row mutation.
type WriteBatch struct {
	Ops []KeyOp
}

func (b *WriteBatch) put(key []byte, value string) {
	b.Ops = append(b.Ops, KeyOp{Kind: OpPut, Key: key, Value: []byte(value)})
}

func (b *WriteBatch) delete(key []byte) {
	b.Ops = append(b.Ops, KeyOp{Kind: OpDelete, Key: key})
}

func (b WriteBatch) Count(kind OpKind) int {
	n := 0
	for _, op := range b.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func (b WriteBatch) Empty() bool {
	return len(b.Ops) == 0
}

// Writer translates row mutations into atomic store batches.
type Writer struct {
	store store.Store
	proj  *projection.Projection
}

func NewWriter(s store.Store, proj *projection.Projection) *Writer {
	return &Writer{
		store: s,
		proj:  proj,
	}
}

func (w *Writer) checkColumns(values Values) error {
	for name := range values {
		if _, exists := w.proj.Column(name); !exists {
			return fmt.Errorf("%w '%s'", ErrUnknownColumn, name)
		}
	}
	return nil
}

func (w *Writer) checkIdentity(identity Identity) error {
	cols := w.proj.IdentityColumns()
	if len(identity) != len(cols) {
		return fmt.Errorf("%w: expected %d values, got %d", ErrMissingIdentity, len(cols), len(identity))
	}
	for i, v := range identity {
		if v == "" {
			return fmt.Errorf("%w: column '%s'", ErrMissingIdentity, cols[i].Name)
		}
	}
	return nil
}

// PlanInsert stages one Put per non-null attribute. Every identity column must
// be set.
func (w *Writer) PlanInsert(values Values) (WriteBatch, error) {
	if w.store.ReadOnly() {
		return WriteBatch{}, store.ErrReadOnly
	}
	if err := w.checkColumns(values); err != nil {
		return WriteBatch{}, err
	}

	identity := Identity{}
	for _, col := range w.proj.IdentityColumns() {
		cell := values[col.Name]
		if cell.State != Set || cell.Value == "" {
			return WriteBatch{}, fmt.Errorf("%w: column '%s'", ErrMissingIdentity, col.Name)
		}
		identity = append(identity, cell.Value)
	}

	batch := WriteBatch{}
	for _, col := range w.proj.AttributeColumns() {
		cell := values[col.Name]
		if cell.State != Set {
			continue
		}
		key, err := w.proj.Pattern().Render(identity, col.Name)
		if err != nil {
			return WriteBatch{}, err
		}
		batch.put(key, cell.Value)
	}

	return batch, nil
}

// PlanUpdate stages the changes of the row addressed by identity. When values
// set a different identity every key of the row moves, undeclared attributes
// included.
func (w *Writer) PlanUpdate(identity Identity, values Values) (WriteBatch, error) {
	if w.store.ReadOnly() {
		return WriteBatch{}, store.ErrReadOnly
	}
	if err := w.checkIdentity(identity); err != nil {
		return WriteBatch{}, err
	}
	if err := w.checkColumns(values); err != nil {
		return WriteBatch{}, err
	}

	target := append(Identity(nil), identity...)
	for i, col := range w.proj.IdentityColumns() {
		cell := values[col.Name]
		switch cell.State {
		case Null:
			return WriteBatch{}, fmt.Errorf("%w: column '%s' cannot be set to null", ErrMissingIdentity, col.Name)
		case Set:
			if cell.Value == "" {
				return WriteBatch{}, fmt.Errorf("%w: column '%s'", ErrMissingIdentity, col.Name)
			}
			target[i] = cell.Value
		}
	}

	if target.Equal(identity) {
		return w.planAttributes(identity, values)
	}
	return w.planMove(identity, target, values)
}

func (w *Writer) planAttributes(identity Identity, values Values) (WriteBatch, error) {
	batch := WriteBatch{}
	for _, col := range w.proj.AttributeColumns() {
		cell := values[col.Name]
		if cell.State == Unchanged {
			continue
		}
		key, err := w.proj.Pattern().Render(identity, col.Name)
		if err != nil {
			return WriteBatch{}, err
		}
		old, exists, err := w.store.Get(key)
		if err != nil {
			return WriteBatch{}, err
		}
		switch {
		case cell.State == Set && (!exists || string(old) != cell.Value):
			batch.put(key, cell.Value)
		case cell.State == Null && exists:
			batch.delete(key)
		}
	}
	return batch, nil
}

func (w *Writer) planMove(from, to Identity, values Values) (WriteBatch, error) {
	entries, err := w.entries(from)
	if err != nil {
		return WriteBatch{}, err
	}

	moved := map[string]string{}
	order := []string{}
	batch := WriteBatch{}
	for _, e := range entries {
		batch.delete(e.Key)
		moved[e.Attr] = string(e.Value)
		order = append(order, e.Attr)
	}

	for _, col := range w.proj.AttributeColumns() {
		cell := values[col.Name]
		switch cell.State {
		case Set:
			if _, exists := moved[col.Name]; !exists {
				order = append(order, col.Name)
			}
			moved[col.Name] = cell.Value
		case Null:
			delete(moved, col.Name)
		}
	}

	for _, attr := range order {
		value, exists := moved[attr]
		if !exists {
			continue
		}
		key, err := w.proj.Pattern().Render(to, attr)
		if err != nil {
			return WriteBatch{}, err
		}
		batch.put(key, value)
	}

	return batch, nil
}

// PlanDelete stages a Delete for every key stored under identity, declared
// attribute or not.
func (w *Writer) PlanDelete(identity Identity) (WriteBatch, error) {
	if w.store.ReadOnly() {
		return WriteBatch{}, store.ErrReadOnly
	}
	if err := w.checkIdentity(identity); err != nil {
		return WriteBatch{}, err
	}

	entries, err := w.entries(identity)
	if err != nil {
		return WriteBatch{}, err
	}

	batch := WriteBatch{}
	for _, e := range entries {
		batch.delete(e.Key)
	}
	return batch, nil
}

// entries lists every key whose parsed identity is exactly identity.
func (w *Writer) entries(identity Identity) ([]Entry, error) {
	p := w.proj.Pattern()
	prefix, err := p.Prefix(identity...)
	if err != nil {
		return nil, err
	}

	stats := ScanStats{}
	src := openKeySource(w.store, p, ScanRange{
		Lower:  prefix,
		Upper:  store.PrefixEnd(prefix),
		Prefix: prefix,
	}, &stats)
	defer src.Close()

	result := []Entry{}
	for src.Next() {
		e := src.Entry()
		if !identity.Equal(e.Identity) {
			continue
		}
		e.Key = append([]byte(nil), e.Key...)
		e.Value = append([]byte(nil), e.Value...)
		result = append(result, e)
	}
	return result, src.Err()
}

// Apply commits batch atomically. An empty batch is a no-op.
func (w *Writer) Apply(batch WriteBatch) error {
	if batch.Empty() {
		return nil
	}
	b := w.store.NewBatch()
	for _, op := range batch.Ops {
		switch op.Kind {
		case OpPut:
			b.Put(op.Key, op.Value)
		case OpDelete:
			b.Delete(op.Key)
		}
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("commit %d key operations: %w", len(batch.Ops), err)
	}
	return nil
}

func (w *Writer) Insert(values Values) error {
	batch, err := w.PlanInsert(values)
	if err != nil {
		return err
	}
	return w.Apply(batch)
}

func (w *Writer) Update(identity Identity, values Values) error {
	batch, err := w.PlanUpdate(identity, values)
	if err != nil {
		return err
	}
	return w.Apply(batch)
}

func (w *Writer) Delete(identity Identity) error {
	batch, err := w.PlanDelete(identity)
	if err != nil {
		return err
	}
	return w.Apply(batch)
}
