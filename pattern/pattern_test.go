package pattern

import (
	"errors"
	"testing"

	"github.com/fulldump/biff"
)

func TestCompile(t *testing.T) {

	biff.Alternative("Compile", func(a *biff.A) {

		a.Alternative("Users pattern", func(a *biff.A) {
			p, err := Compile("users##{tenant}##{id}##{attr}")
			biff.AssertNil(err)
			biff.AssertEqual(p.Tokens(), []Token{
				{Kind: Literal, Text: "users##"},
				{Kind: Capture, Text: "tenant"},
				{Kind: Literal, Text: "##"},
				{Kind: Capture, Text: "id"},
				{Kind: Literal, Text: "##"},
				{Kind: Attr},
			})
			biff.AssertEqual(p.Captures(), []string{"tenant", "id"})
			biff.AssertEqual(p.LiteralPrefix(), "users##")
			biff.AssertEqual(p.CaptureIndex("id"), 1)
			biff.AssertEqual(p.CaptureIndex("name"), -1)
			biff.AssertEqual(p.AttrDelimiter(), "")
		})

		a.Alternative("Trailing literal after attr", func(a *biff.A) {
			p, err := Compile("{id}:{attr}.v1")
			biff.AssertNil(err)
			biff.AssertEqual(p.LiteralPrefix(), "")
			biff.AssertEqual(p.AttrDelimiter(), ".v1")
		})

		a.Alternative("Deterministic", func(a *biff.A) {
			p1 := MustCompile("a/{x}/{attr}")
			p2 := MustCompile("a/{x}/{attr}")
			biff.AssertEqual(p1.Tokens(), p2.Tokens())
		})
	})
}

func TestCompile_Errors(t *testing.T) {

	cases := map[string]Rule{
		"":                         RuleEmpty,
		"users##{id}":              RuleMissingAttr,
		"{id}##{attr}##{attr}":     RuleDuplicateAttr,
		"{id}{attr}":               RuleAdjacent,
		"{a}##{a}##{attr}":         RuleDuplicateCapture,
		"users##{te-nant}##{attr}": RuleInvalidName,
		"users##{}##{attr}":        RuleEmptyPlaceholder,
		"users##{id##{attr}":       RuleInvalidName,
		"users##{id":               RuleUnclosed,
		"{attr}##{id}":             RuleAttrNotLast,
	}

	for input, rule := range cases {
		t.Run(input, func(t *testing.T) {
			_, err := Compile(input)
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("expected *SyntaxError, got %v", err)
			}
			biff.AssertEqual(syntaxErr.Rule, rule)
			biff.AssertEqual(syntaxErr.Pattern, input)
		})
	}
}

func TestMatch(t *testing.T) {

	p := MustCompile("users##{tenant}##{id}##{attr}")

	biff.Alternative("Match", func(a *biff.A) {

		a.Alternative("Matched", func(a *biff.A) {
			m := p.Match([]byte("users##t1##u1##email"))
			biff.AssertEqual(m.Outcome, Matched)
			biff.AssertEqual(m.Identity, []string{"t1", "u1"})
			biff.AssertEqual(m.Attr, "email")
		})

		a.Alternative("Attr takes the remainder", func(a *biff.A) {
			m := p.Match([]byte("users##t1##u1##a##b"))
			biff.AssertEqual(m.Outcome, Matched)
			biff.AssertEqual(m.Attr, "a##b")
		})

		a.Alternative("Other keyspace", func(a *biff.A) {
			m := p.Match([]byte("orders##1##total"))
			biff.AssertEqual(m.Outcome, NoMatch)
			biff.AssertFalse(m.Ok())
		})

		a.Alternative("Missing segments", func(a *biff.A) {
			m := p.Match([]byte("users##t1"))
			biff.AssertEqual(m.Outcome, Malformed)
		})

		a.Alternative("Empty segment", func(a *biff.A) {
			m := p.Match([]byte("users####u1##name"))
			biff.AssertEqual(m.Outcome, Malformed)
		})

		a.Alternative("Empty attr", func(a *biff.A) {
			m := p.Match([]byte("users##t1##u1##"))
			biff.AssertEqual(m.Outcome, Malformed)
		})

		a.Alternative("Trailing bytes", func(a *biff.A) {
			q := MustCompile("{id}:{attr}.v1")
			biff.AssertEqual(q.Match([]byte("7:name.v1")).Outcome, Matched)
			biff.AssertEqual(q.Match([]byte("7:name.v1x")).Outcome, Malformed)
		})

		a.Alternative("Leftmost segmentation", func(a *biff.A) {
			// a tenant containing the delimiter is split at its first occurrence
			m := p.Match([]byte("users##t##1##u1##name"))
			biff.AssertEqual(m.Outcome, Matched)
			biff.AssertEqual(m.Identity, []string{"t", "1"})
			biff.AssertEqual(m.Attr, "u1##name")
		})
	})
}

func TestRender(t *testing.T) {

	p := MustCompile("users##{tenant}##{id}##{attr}")

	biff.Alternative("Render", func(a *biff.A) {

		a.Alternative("Full key", func(a *biff.A) {
			key, err := p.Render([]string{"t1", "u1"}, "name")
			biff.AssertNil(err)
			biff.AssertEqual(string(key), "users##t1##u1##name")
		})

		a.Alternative("Value with delimiter", func(a *biff.A) {
			_, err := p.Render([]string{"t##1", "u1"}, "name")
			var encErr *KeyEncodingError
			biff.AssertTrue(errors.As(err, &encErr))
			biff.AssertEqual(encErr.Field, "tenant")
		})

		a.Alternative("Value overlapping delimiter", func(a *biff.A) {
			_, err := p.Render([]string{"t1#", "u1"}, "name")
			var encErr *KeyEncodingError
			biff.AssertTrue(errors.As(err, &encErr))
		})

		a.Alternative("Empty attr", func(a *biff.A) {
			_, err := p.Render([]string{"t1", "u1"}, "")
			var encErr *KeyEncodingError
			biff.AssertTrue(errors.As(err, &encErr))
			biff.AssertEqual(encErr.Field, AttrName)
		})

		a.Alternative("Wrong arity", func(a *biff.A) {
			_, err := p.Render([]string{"t1"}, "name")
			biff.AssertNotNil(err)
		})

		a.Alternative("Prefix", func(a *biff.A) {
			prefix, err := p.Prefix()
			biff.AssertNil(err)
			biff.AssertEqual(string(prefix), "users##")

			prefix, err = p.Prefix("t1")
			biff.AssertNil(err)
			biff.AssertEqual(string(prefix), "users##t1##")

			prefix, err = p.Prefix("t1", "u1")
			biff.AssertNil(err)
			biff.AssertEqual(string(prefix), "users##t1##u1##")
		})

		a.Alternative("Stem", func(a *biff.A) {
			stem, err := p.Stem()
			biff.AssertNil(err)
			biff.AssertEqual(string(stem), "users##")

			stem, err = p.Stem("t1")
			biff.AssertNil(err)
			biff.AssertEqual(string(stem), "users##t1")

			stem, err = p.Stem("t1", "u1")
			biff.AssertNil(err)
			biff.AssertEqual(string(stem), "users##t1##u1")
		})
	})
}

func TestRender_RoundTrip(t *testing.T) {

	patterns := []string{
		"users##{tenant}##{id}##{attr}",
		"{id}:{attr}",
		"app/{env}/{svc}/cfg/{attr}.json",
		"x{a}y{b}z{attr}",
	}
	identities := [][]string{
		{"t1", "u1", "u2"},
		{"a b", "ñ", "0"},
		{"#", ":", "."},
	}
	attrs := []string{"name", "e-mail", "x.y"}

	for _, source := range patterns {
		p := MustCompile(source)
		for _, values := range identities {
			identity := values[:p.CaptureCount()]
			for _, attr := range attrs {
				key, err := p.Render(identity, attr)
				if err != nil {
					// rejected values are exactly the ambiguous ones
					continue
				}
				m := p.Match(key)
				if !m.Ok() {
					t.Fatalf("%s: key %q did not match back", source, key)
				}
				biff.AssertEqual(m.Identity, identity)
				biff.AssertEqual(m.Attr, attr)
			}
		}
	}
}
