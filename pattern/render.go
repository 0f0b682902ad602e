package pattern

import (
	"fmt"
	"strings"
)

// Render builds the full key for an identity and attribute name. It fails with
// a *KeyEncodingError when any value would not parse back from the produced key.
func (p *Pattern) Render(identity []string, attr string) ([]byte, error) {

	if len(identity) != len(p.captures) {
		return nil, fmt.Errorf("key pattern '%s' expects %d identity values, got %d", p.source, len(p.captures), len(identity))
	}

	b := strings.Builder{}
	c := 0
	for i, t := range p.tokens {
		value := ""
		field := ""
		switch t.Kind {
		case Literal:
			b.WriteString(t.Text)
			continue
		case Capture:
			value, field = identity[c], t.Text
			c++
		case Attr:
			value, field = attr, AttrName
		}
		if err := p.checkSegment(i, field, value); err != nil {
			return nil, err
		}
		b.WriteString(value)
	}

	return []byte(b.String()), nil
}

// Prefix renders leading tokens until the values run out: literals and one
// capture per value, stopping at {attr} or at the first capture with no value.
// With `users##{tenant}##{id}##{attr}` and values [t1] it returns `users##t1##`.
func (p *Pattern) Prefix(values ...string) ([]byte, error) {
	b, _, err := p.leading(values)
	return b, err
}

// Stem is Prefix without the literal that follows the last rendered value. With
// `users##{tenant}##{id}##{attr}` and values [t1] it returns `users##t1`.
// Without values it is the literal prefix.
func (p *Pattern) Stem(values ...string) ([]byte, error) {
	b, stem, err := p.leading(values)
	if err != nil {
		return nil, err
	}
	return b[:stem], nil
}

func (p *Pattern) leading(values []string) ([]byte, int, error) {

	if len(values) > len(p.captures) {
		return nil, 0, fmt.Errorf("key pattern '%s' has %d captures, got %d values", p.source, len(p.captures), len(values))
	}

	b := strings.Builder{}
	stem := 0
	c := 0
	for i, t := range p.tokens {
		if t.Kind == Attr {
			break
		}
		if t.Kind == Literal {
			b.WriteString(t.Text)
			if c == 0 {
				stem = b.Len()
			}
			continue
		}
		if c >= len(values) {
			break
		}
		if err := p.checkSegment(i, t.Text, values[c]); err != nil {
			return nil, 0, err
		}
		b.WriteString(values[c])
		stem = b.Len()
		c++
	}

	return []byte(b.String()), stem, nil
}

// checkSegment verifies that value, placed at variable token i, is found again
// by the leftmost-literal rule of Match.
func (p *Pattern) checkSegment(i int, field, value string) error {
	if value == "" {
		return &KeyEncodingError{Pattern: p.source, Field: field, Value: value, Reason: "empty values cannot be matched"}
	}
	if i+1 >= len(p.tokens) {
		return nil
	}
	next := p.tokens[i+1].Text
	if strings.Index(value+next, next) != len(value) {
		return &KeyEncodingError{Pattern: p.source, Field: field, Value: value, Reason: fmt.Sprintf("value overlaps delimiter '%s'", next)}
	}
	return nil
}

// CheckAttr reports whether name can be used as an attribute segment.
func (p *Pattern) CheckAttr(name string) error {
	for i, t := range p.tokens {
		if t.Kind == Attr {
			return p.checkSegment(i, AttrName, name)
		}
	}
	return nil
}
