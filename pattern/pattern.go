// Package pattern compiles key patterns such as `users##{tenant}##{id}##{attr}`
// and uses them to split store keys into identity values and an attribute name,
// or to render keys back from those values.
package pattern

import (
	"strings"
)

// AttrName is the reserved placeholder name of the attribute marker.
const AttrName = "attr"

type Kind uint8

const (
	Literal Kind = iota
	Capture
	Attr
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Capture:
		return "capture"
	case Attr:
		return "attr"
	}
	return "unknown"
}

// Token is one element of a compiled pattern. Text holds the literal bytes for
// Literal tokens and the capture name for Capture tokens; it is empty for Attr.
type Token struct {
	Kind Kind
	Text string
}

func (t Token) variable() bool {
	return t.Kind != Literal
}

// Pattern is a compiled key pattern. It is immutable and safe for concurrent use.
type Pattern struct {
	source   string
	tokens   []Token
	captures []string
	prefix   string // literal text before the first placeholder
}

// Compile parses and validates a pattern. The same input always yields the same
// token sequence.
func Compile(s string) (*Pattern, error) {

	if s == "" {
		return nil, syntaxError(s, 0, RuleEmpty, "key pattern cannot be empty")
	}

	p := &Pattern{source: s}

	hasAttr := false
	literal := strings.Builder{}
	flush := func() {
		if literal.Len() > 0 {
			p.tokens = append(p.tokens, Token{Kind: Literal, Text: literal.String()})
			literal.Reset()
		}
	}

	for pos := 0; pos < len(s); {
		if s[pos] != '{' {
			literal.WriteByte(s[pos])
			pos++
			continue
		}
		flush()

		end := strings.IndexByte(s[pos:], '}')
		if end < 0 {
			return nil, syntaxError(s, pos, RuleUnclosed, "unclosed '{' at position %d", pos)
		}
		end += pos

		name := s[pos+1 : end]
		if name == "" {
			return nil, syntaxError(s, pos, RuleEmptyPlaceholder, "empty placeholder '{}' at position %d", pos)
		}
		for i := 0; i < len(name); i++ {
			if !isIdentChar(name[i]) {
				return nil, syntaxError(s, pos, RuleInvalidName, "invalid character %q in placeholder name '%s'", name[i], name)
			}
		}

		if name == AttrName {
			if hasAttr {
				return nil, syntaxError(s, pos, RuleDuplicateAttr, "multiple {attr} placeholders")
			}
			hasAttr = true
			p.tokens = append(p.tokens, Token{Kind: Attr})
		} else {
			for _, c := range p.captures {
				if c == name {
					return nil, syntaxError(s, pos, RuleDuplicateCapture, "duplicate capture name '%s'", name)
				}
			}
			p.captures = append(p.captures, name)
			p.tokens = append(p.tokens, Token{Kind: Capture, Text: name})
		}

		pos = end + 1
	}
	flush()

	if !hasAttr {
		return nil, syntaxError(s, len(s), RuleMissingAttr, "pattern must contain an {attr} placeholder")
	}

	seenAttr := false
	for i, t := range p.tokens {
		if i > 0 && t.variable() && p.tokens[i-1].variable() {
			return nil, syntaxError(s, -1, RuleAdjacent, "placeholders must be separated by a literal delimiter")
		}
		if seenAttr && t.Kind == Capture {
			return nil, syntaxError(s, -1, RuleAttrNotLast, "{attr} must be the last placeholder, found '{%s}' after it", t.Text)
		}
		if t.Kind == Attr {
			seenAttr = true
		}
	}

	for _, t := range p.tokens {
		if t.Kind != Literal {
			break
		}
		p.prefix += t.Text
	}

	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(s string) *Pattern {
	p, err := Compile(s)
	if err != nil {
		panic(err)
	}
	return p
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}

func (p *Pattern) String() string {
	return p.source
}

// Tokens returns a copy of the token sequence.
func (p *Pattern) Tokens() []Token {
	return append([]Token(nil), p.tokens...)
}

// Captures returns capture names in pattern order.
func (p *Pattern) Captures() []string {
	return append([]string(nil), p.captures...)
}

func (p *Pattern) CaptureCount() int {
	return len(p.captures)
}

// CaptureIndex returns the position of a capture name, or -1.
func (p *Pattern) CaptureIndex(name string) int {
	for i, c := range p.captures {
		if c == name {
			return i
		}
	}
	return -1
}

// LiteralPrefix is the literal text before the first placeholder. Every key
// matching the pattern starts with it.
func (p *Pattern) LiteralPrefix() string {
	return p.prefix
}

// AttrDelimiter is the literal that follows {attr}, empty when {attr} ends the
// pattern. An attribute name containing it cannot be matched back.
func (p *Pattern) AttrDelimiter() string {
	for i, t := range p.tokens {
		if t.Kind == Attr && i+1 < len(p.tokens) {
			return p.tokens[i+1].Text
		}
	}
	return ""
}
