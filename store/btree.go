package store

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/btree"
)

const (
	btreeDegree       = 32
	btreeFreeListSize = btree.DefaultFreeListSize
	journalFilename   = "data.wal"
)

type item struct {
	key   []byte
	value []byte
}

func lessItem(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// BTree is a Store kept in memory. When opened on a directory every committed
// batch is appended to a journal that is replayed on the next Open.
type BTree struct {
	mu       sync.RWMutex
	tree     *btree.BTreeG[item]
	journal  *journal
	readOnly bool
	closed   bool
	broken   error
	seq      uint64

	syncEachCommit bool
	stopFlusher    chan struct{}
}

// NewMemory returns a store without journal.
func NewMemory() *BTree {
	return newBTree(btreeFreeListSize)
}

func newBTree(cacheSize int) *BTree {
	if cacheSize <= 0 {
		cacheSize = btreeFreeListSize
	}
	freelist := btree.NewFreeListG[item](cacheSize)
	return &BTree{
		tree: btree.NewWithFreeListG(btreeDegree, lessItem, freelist),
	}
}

// Open loads the store kept in dir.
func Open(dir string, options Options) (*BTree, error) {

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if options.ReadOnly || !options.CreateIfMissing {
			return nil, fmt.Errorf("open store '%s': %w", dir, os.ErrNotExist)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store '%s': %w", dir, err)
		}
	case err != nil:
		return nil, fmt.Errorf("open store '%s': %w", dir, err)
	case !info.IsDir():
		return nil, fmt.Errorf("open store '%s': not a directory", dir)
	}

	s := newBTree(options.CacheSize)
	s.readOnly = options.ReadOnly

	filename := filepath.Join(dir, journalFilename)
	valid, torn, err := replayJournal(filename, func(record uint8, seq uint64, data []byte) error {
		if record != recordBatch {
			return fmt.Errorf("unknown journal record %d at %d", record, seq)
		}
		ops, err := decodeOps(data)
		if err != nil {
			return fmt.Errorf("journal record %d: %w", seq, err)
		}
		s.apply(ops)
		s.seq = seq
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replay '%s': %w", filename, err)
	}

	if s.readOnly {
		return s, nil
	}

	if torn {
		slog.Warn("discarding torn journal tail", "file", filename, "valid_bytes", valid)
		if err := os.Truncate(filename, valid); err != nil {
			return nil, fmt.Errorf("truncate torn journal: %w", err)
		}
	}

	s.journal, err = openJournal(filename, options.WriteBufferSize)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if options.SyncInterval > 0 {
		s.stopFlusher = startBackgroundFlusher(s.journal, options.SyncInterval)
	} else {
		s.syncEachCommit = true
	}

	return s, nil
}

func (s *BTree) apply(ops []op) {
	for _, o := range ops {
		switch o.kind {
		case opPut:
			s.tree.ReplaceOrInsert(item{key: o.key, value: o.value})
		case opDelete:
			s.tree.Delete(item{key: o.key})
		}
	}
}

func (s *BTree) commit(ops []op) error {
	if s.readOnly {
		return ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.broken != nil {
		return s.broken
	}
	if len(ops) == 0 {
		return nil
	}

	if s.journal != nil {
		// After a journal failure a partial record may reach the disk, so the
		// store refuses further writes and memory stays behind the journal.
		if err := s.journal.Append(recordBatch, s.seq+1, encodeOps(ops)); err != nil {
			s.broken = fmt.Errorf("journal append: %w", err)
			return s.broken
		}
		s.seq++
		if s.syncEachCommit {
			if err := s.journal.Sync(); err != nil {
				s.broken = fmt.Errorf("journal sync: %w", err)
				return s.broken
			}
		}
	}

	s.apply(ops)
	return nil
}

func (s *BTree) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, ErrClosed
	}

	found, ok := s.tree.Get(item{key: key})
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), found.value...), true, nil
}

func (s *BTree) Put(key, value []byte) error {
	b := s.NewBatch()
	b.Put(key, value)
	return b.Commit()
}

func (s *BTree) Delete(key []byte) error {
	b := s.NewBatch()
	b.Delete(key)
	return b.Commit()
}

func (s *BTree) NewBatch() Batch {
	return &batch{store: s}
}

func (s *BTree) ReadOnly() bool {
	return s.readOnly
}

func (s *BTree) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Iterate reads from a copy-on-write snapshot taken now; later writes are not
// observed by the iterator.
func (s *BTree) Iterate(lower, upper []byte) Iterator {

	// Clone marks the shared nodes, so it needs the write lock
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &iterator{err: ErrClosed}
	}

	return &iterator{
		tree:  s.tree.Clone(),
		from:  append([]byte(nil), lower...),
		upper: append([]byte(nil), upper...),
		hasUp: upper != nil,
		pos:   -1,
	}
}

func (s *BTree) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.stopFlusher != nil {
		close(s.stopFlusher)
	}
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

type batch struct {
	store *BTree
	ops   []op
	done  bool
}

func (b *batch) Put(key, value []byte) {
	b.ops = append(b.ops, op{
		kind:  opPut,
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

func (b *batch) Delete(key []byte) {
	b.ops = append(b.ops, op{
		kind: opDelete,
		key:  append([]byte(nil), key...),
	})
}

func (b *batch) Count() int {
	return len(b.ops)
}

func (b *batch) Commit() error {
	if b.done {
		return fmt.Errorf("batch already committed or discarded")
	}
	b.done = true
	return b.store.commit(b.ops)
}

func (b *batch) Discard() {
	b.done = true
	b.ops = nil
}
