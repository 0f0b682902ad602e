// Package discovery inspects an existing keyspace to suggest key patterns and
// table columns.
package discovery

import (
	"bytes"
	"cmp"
	"errors"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/fulldump/pivotdb/pattern"
	"github.com/fulldump/pivotdb/projection"
	"github.com/fulldump/pivotdb/store"
)

var ErrNoPattern = errors.New("cannot infer a key pattern")

type Options struct {
	MaxKeys      int    `json:"max_keys"`
	SampleSize   int    `json:"sample_size"`
	PrefixFilter string `json:"prefix_filter"`
}

func DefaultOptions() Options {
	return Options{
		MaxKeys:    10000,
		SampleSize: 100,
	}
}

type Attr struct {
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Sample string `json:"sample"`
}

type Result struct {
	Attrs       []Attr `json:"attrs"`
	KeysScanned int    `json:"keys_scanned"`
	KeysMatched int    `json:"keys_matched"`
}

// Discover counts the attribute names found under p, most frequent first.
func Discover(r store.Reader, p *pattern.Pattern, options Options) (Result, error) {

	if options.MaxKeys <= 0 {
		options.MaxKeys = DefaultOptions().MaxKeys
	}
	if options.SampleSize <= 0 {
		options.SampleSize = DefaultOptions().SampleSize
	}

	prefix := []byte(p.LiteralPrefix())
	if options.PrefixFilter != "" {
		prefix = []byte(options.PrefixFilter)
	}

	it := r.Iterate(prefix, store.PrefixEnd(prefix))
	defer it.Close()

	result := Result{}
	found := map[string]*Attr{}

	for result.KeysScanned < options.MaxKeys && it.Next() {
		key := it.Key()
		if !bytes.HasPrefix(key, prefix) || !strings.HasPrefix(string(key), p.LiteralPrefix()) {
			break
		}
		result.KeysScanned++

		m := p.Match(key)
		if !m.Ok() {
			continue
		}
		result.KeysMatched++

		attr, exists := found[m.Attr]
		if !exists {
			attr = &Attr{Name: m.Attr}
			found[m.Attr] = attr
		}
		attr.Count++
		if attr.Count <= options.SampleSize && attr.Sample == "" {
			attr.Sample = string(it.Value())
		}
	}
	if err := it.Err(); err != nil {
		return Result{}, err
	}

	result.Attrs = make([]Attr, 0, len(found))
	for _, attr := range found {
		result.Attrs = append(result.Attrs, *attr)
	}
	slices.SortFunc(result.Attrs, func(a, b Attr) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	return result, nil
}

// Definition builds a column list for p: captures first, then the discovered
// attributes, all as text.
func Definition(p *pattern.Pattern, result Result) []projection.ColumnDef {
	cols := []projection.ColumnDef{}
	for _, name := range p.Captures() {
		cols = append(cols, projection.ColumnDef{
			Name:    name,
			Type:    projection.Text,
			Ordinal: len(cols) + 1,
		})
	}
	for _, attr := range result.Attrs {
		if p.CaptureIndex(attr.Name) >= 0 || p.CheckAttr(attr.Name) != nil {
			continue
		}
		cols = append(cols, projection.ColumnDef{
			Name:    attr.Name,
			Type:    projection.Text,
			Ordinal: len(cols) + 1,
		})
	}
	return cols
}

var delimiterRegexp = regexp.MustCompile(`##|::|//|__|:|/|\.|-`)

// ListPrefixes returns the distinct key prefixes made of the first depth
// delimited segments, sorted. Keys without delimiters count as their own
// prefix.
func ListPrefixes(r store.Reader, depth, max int) ([]string, error) {

	if depth <= 0 {
		depth = 2
	}
	if max <= 0 {
		max = 100
	}

	seen := map[string]bool{}
	result := []string{}

	var lower []byte
	for len(result) < max {
		it := r.Iterate(lower, nil)
		if !it.Next() {
			err := it.Err()
			it.Close()
			if err != nil {
				return nil, err
			}
			break
		}
		key := string(it.Key())
		it.Close()

		prefix := keyPrefix(key, depth)
		if !seen[prefix] {
			seen[prefix] = true
			result = append(result, prefix)
		}

		// jump past every key sharing this prefix
		lower = store.PrefixEnd([]byte(prefix))
		if lower == nil {
			break
		}
	}

	slices.Sort(result)
	return result, nil
}

func keyPrefix(key string, depth int) string {
	prefix := ""
	remaining := key
	for i := 0; i < depth; i++ {
		loc := delimiterRegexp.FindStringIndex(remaining)
		if loc == nil {
			if i == 0 {
				return key
			}
			break
		}
		prefix += remaining[:loc[1]]
		remaining = remaining[loc[1]:]
	}
	return prefix
}

var commonDelimiters = []string{"##", "::", "//", "__", ":", "/", ".", "-", "_"}

// InferPattern guesses a pattern from the first keys of the store: it splits
// them by the most frequent delimiter, keeps constant segments as literals and
// turns variable ones into captures, the last one being the attribute.
func InferPattern(r store.Reader, samples int) (string, error) {

	if samples <= 0 {
		samples = 100
	}

	keys := []string{}
	it := r.Iterate(nil, nil)
	for len(keys) < samples && it.Next() {
		keys = append(keys, string(it.Key()))
	}
	err := it.Err()
	it.Close()
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", ErrNoPattern
	}

	best, bestCount := "", 0
	for _, delim := range commonDelimiters {
		count := 0
		for _, key := range keys {
			count += strings.Count(key, delim)
		}
		if count > bestCount {
			best, bestCount = delim, count
		}
	}
	if best == "" {
		return "", ErrNoPattern
	}

	parts := splitKey(keys[0], best)
	if len(parts) < 2 {
		return "", ErrNoPattern
	}

	constant := make([]bool, len(parts))
	for i := range constant {
		constant[i] = true
	}
	for _, key := range keys {
		keyParts := splitKey(key, best)
		if len(keyParts) != len(parts) {
			continue
		}
		for i := range parts {
			if keyParts[i] != parts[i] {
				constant[i] = false
			}
		}
	}

	last := len(parts) - 1
	b := strings.Builder{}
	n := 1
	for i, part := range parts {
		if i > 0 {
			b.WriteString(best)
		}
		switch {
		case i == last:
			b.WriteString("{attr}")
		case constant[i]:
			b.WriteString(part)
		default:
			b.WriteString("{col" + strconv.Itoa(n) + "}")
			n++
		}
	}

	inferred := b.String()
	if _, err := pattern.Compile(inferred); err != nil {
		return "", errors.Join(ErrNoPattern, err)
	}
	return inferred, nil
}

// splitKey splits by delim dropping a trailing empty part.
func splitKey(key, delim string) []string {
	parts := strings.Split(key, delim)
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
