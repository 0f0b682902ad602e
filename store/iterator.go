package store

import (
	"github.com/google/btree"
)

// items copied out of the snapshot per refill
const iteratorChunk = 256

type iterator struct {
	tree      *btree.BTreeG[item]
	from      []byte
	upper     []byte
	hasUp     bool
	buf       []item
	pos       int
	exhausted bool
	err       error
}

func (it *iterator) fill() {
	it.buf = it.buf[:0]

	visit := func(i item) bool {
		it.buf = append(it.buf, i)
		return len(it.buf) < iteratorChunk
	}

	from := item{key: it.from}
	if it.hasUp {
		it.tree.AscendRange(from, item{key: it.upper}, visit)
	} else {
		it.tree.AscendGreaterOrEqual(from, visit)
	}

	if len(it.buf) < iteratorChunk {
		it.exhausted = true
		return
	}

	// next chunk starts right after the last key
	last := it.buf[len(it.buf)-1].key
	it.from = append(append(make([]byte, 0, len(last)+1), last...), 0)
}

func (it *iterator) Next() bool {
	if it.err != nil || it.tree == nil {
		return false
	}

	it.pos++
	if it.pos < len(it.buf) {
		return true
	}
	if it.exhausted {
		return false
	}

	it.fill()
	it.pos = 0
	return len(it.buf) > 0
}

func (it *iterator) Key() []byte {
	return it.buf[it.pos].key
}

func (it *iterator) Value() []byte {
	return it.buf[it.pos].value
}

func (it *iterator) Err() error {
	return it.err
}

func (it *iterator) Close() error {
	it.tree = nil
	it.buf = nil
	return nil
}
