// Package store is the ordered key-value store the pivot engine runs on: an
// in-memory btree made durable by an append-only journal of committed batches.
package store

import (
	"errors"
	"time"
)

var (
	ErrReadOnly = errors.New("store is read-only")
	ErrClosed   = errors.New("store is closed")
)

// Reader is the read side of a store.
type Reader interface {
	// Get returns the value for key. The returned slice is a copy.
	Get(key []byte) ([]byte, bool, error)
	// Iterate walks keys in ascending byte order from lower (inclusive) to
	// upper (exclusive). A nil bound is unbounded.
	Iterate(lower, upper []byte) Iterator
}

type Store interface {
	Reader
	Put(key, value []byte) error
	Delete(key []byte) error
	NewBatch() Batch
	ReadOnly() bool
	Close() error
}

// Batch accumulates operations that are committed atomically: after Commit
// either all of them are visible or none.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Count() int
	Commit() error
	Discard()
}

// Iterator must be closed on every exit path. Key and Value are only valid
// until the next call to Next and must not be modified.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

type Options struct {
	ReadOnly        bool
	CreateIfMissing bool

	// CacheSize is the number of btree nodes kept in the free list for reuse.
	CacheSize int

	// WriteBufferSize is the journal write buffer in bytes.
	WriteBufferSize int

	// SyncInterval is the period of the background journal fsync. Zero syncs
	// on every commit.
	SyncInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		CreateIfMissing: true,
		CacheSize:       btreeFreeListSize,
		WriteBufferSize: 1024 * 1024,
		SyncInterval:    time.Second,
	}
}

// PrefixEnd returns the smallest key greater than every key starting with
// prefix, or nil when there is none (empty prefix or only 0xFF bytes).
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
