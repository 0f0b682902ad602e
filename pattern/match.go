package pattern

import (
	"strings"
)

type Outcome uint8

const (
	// NoMatch means the key does not start with the literal prefix, so it
	// belongs to some other keyspace.
	NoMatch Outcome = iota
	Matched
	// Malformed means the key starts like this pattern but its remaining
	// bytes do not decompose into the token sequence.
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case NoMatch:
		return "no_match"
	case Matched:
		return "matched"
	case Malformed:
		return "malformed"
	}
	return "unknown"
}

type Match struct {
	Outcome  Outcome
	Identity []string // capture values in pattern order
	Attr     string
}

func (m Match) Ok() bool {
	return m.Outcome == Matched
}

var malformed = Match{Outcome: Malformed}

// Match decomposes key into capture values and the attribute name.
//
// Variable segments end at the leftmost occurrence of the next literal, the
// last token takes the remainder of the key. Empty segments and trailing bytes
// are rejected.
func (p *Pattern) Match(key []byte) Match {
	s := string(key)

	if !strings.HasPrefix(s, p.prefix) {
		return Match{Outcome: NoMatch}
	}

	identity := make([]string, 0, len(p.captures))
	attr := ""
	cursor := 0
	last := len(p.tokens) - 1

	for i, t := range p.tokens {
		if t.Kind == Literal {
			if !strings.HasPrefix(s[cursor:], t.Text) {
				return malformed
			}
			cursor += len(t.Text)
			continue
		}

		var segment string
		if i == last {
			segment = s[cursor:]
		} else {
			n := strings.Index(s[cursor:], p.tokens[i+1].Text)
			if n < 0 {
				return malformed
			}
			segment = s[cursor : cursor+n]
		}
		if segment == "" {
			return malformed
		}
		cursor += len(segment)

		switch t.Kind {
		case Capture:
			identity = append(identity, segment)
		case Attr:
			attr = segment
		}
	}

	if cursor != len(s) {
		return malformed
	}

	return Match{
		Outcome:  Matched,
		Identity: identity,
		Attr:     attr,
	}
}
