package discovery

import (
	"errors"
	"testing"

	"github.com/fulldump/biff"

	"github.com/fulldump/pivotdb/pattern"
	"github.com/fulldump/pivotdb/projection"
	"github.com/fulldump/pivotdb/store"
)

func newStore(keys ...string) *store.BTree {
	s := store.NewMemory()
	b := s.NewBatch()
	for _, key := range keys {
		b.Put([]byte(key), []byte("v:"+key))
	}
	if err := b.Commit(); err != nil {
		panic(err)
	}
	return s
}

func TestDiscover(t *testing.T) {

	s := newStore(
		"users##t1##u1##name",
		"users##t1##u1##email",
		"users##t1##u2##name",
		"users##t2##u3##name",
		"users##t2##u3##age",
		"users##bad",
		"zz##other",
	)
	p := pattern.MustCompile("users##{tenant}##{id}##{attr}")

	biff.Alternative("Discover", func(a *biff.A) {

		a.Alternative("Counts attributes", func(a *biff.A) {
			result, err := Discover(s, p, DefaultOptions())
			biff.AssertNil(err)
			biff.AssertEqual(result.KeysScanned, 6)
			biff.AssertEqual(result.KeysMatched, 5)
			biff.AssertEqual(result.Attrs, []Attr{
				{Name: "name", Count: 3, Sample: "v:users##t1##u1##name"},
				{Name: "age", Count: 1, Sample: "v:users##t2##u3##age"},
				{Name: "email", Count: 1, Sample: "v:users##t1##u1##email"},
			})
		})

		a.Alternative("Prefix filter", func(a *biff.A) {
			result, err := Discover(s, p, Options{PrefixFilter: "users##t2##"})
			biff.AssertNil(err)
			biff.AssertEqual(result.KeysScanned, 2)
			biff.AssertEqual(len(result.Attrs), 2)
		})

		a.Alternative("Max keys", func(a *biff.A) {
			result, err := Discover(s, p, Options{MaxKeys: 2})
			biff.AssertNil(err)
			biff.AssertEqual(result.KeysScanned, 2)
		})

		a.Alternative("Definition", func(a *biff.A) {
			result, err := Discover(s, p, DefaultOptions())
			biff.AssertNil(err)
			cols := Definition(p, result)
			biff.AssertEqual(cols[0], projection.ColumnDef{Name: "tenant", Type: projection.Text, Ordinal: 1})
			biff.AssertEqual(cols[2], projection.ColumnDef{Name: "name", Type: projection.Text, Ordinal: 3})
			_, err = projection.New(p, cols)
			biff.AssertNil(err)
		})
	})
}

func TestListPrefixes(t *testing.T) {

	s := newStore(
		"users##t1##u1##name",
		"users##t1##u2##name",
		"users##t2##u1##name",
		"orders:1:total",
		"orders:2:total",
		"config",
	)

	prefixes, err := ListPrefixes(s, 1, 0)
	biff.AssertNil(err)
	biff.AssertEqual(prefixes, []string{"config", "orders:", "users##"})

	prefixes, err = ListPrefixes(s, 2, 0)
	biff.AssertNil(err)
	biff.AssertEqual(prefixes, []string{"config", "orders:1:", "orders:2:", "users##t1##", "users##t2##"})

	prefixes, err = ListPrefixes(s, 2, 2)
	biff.AssertNil(err)
	biff.AssertEqual(len(prefixes), 2)
}

func TestInferPattern(t *testing.T) {

	biff.Alternative("InferPattern", func(a *biff.A) {

		a.Alternative("Hash delimited", func(a *biff.A) {
			s := newStore(
				"users##t1##u1##name",
				"users##t1##u1##email",
				"users##t2##u2##name",
			)
			inferred, err := InferPattern(s, 0)
			biff.AssertNil(err)
			biff.AssertEqual(inferred, "users##{col1}##{col2}##{attr}")
		})

		a.Alternative("Colon delimited", func(a *biff.A) {
			s := newStore(
				"app:1:host",
				"app:1:port",
				"app:2:host",
			)
			inferred, err := InferPattern(s, 0)
			biff.AssertNil(err)
			biff.AssertEqual(inferred, "app:{col1}:{attr}")
		})

		a.Alternative("Empty store", func(a *biff.A) {
			_, err := InferPattern(store.NewMemory(), 0)
			biff.AssertTrue(errors.Is(err, ErrNoPattern))
		})

		a.Alternative("No delimiters", func(a *biff.A) {
			_, err := InferPattern(newStore("abc", "xyz"), 0)
			biff.AssertTrue(errors.Is(err, ErrNoPattern))
		})
	})
}
