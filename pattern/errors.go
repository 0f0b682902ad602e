package pattern

import (
	"fmt"
)

type Rule string

const (
	RuleEmpty            Rule = "empty"
	RuleUnclosed         Rule = "unclosed_placeholder"
	RuleEmptyPlaceholder Rule = "empty_placeholder"
	RuleInvalidName      Rule = "invalid_name"
	RuleDuplicateCapture Rule = "duplicate_capture"
	RuleMissingAttr      Rule = "missing_attr"
	RuleDuplicateAttr    Rule = "duplicate_attr"
	RuleAdjacent         Rule = "adjacent_placeholders"
	RuleAttrNotLast      Rule = "attr_not_last"
)

// SyntaxError reports a pattern that violates the grammar. Pos is the byte
// offset of the offending placeholder, or -1 when the rule is structural.
type SyntaxError struct {
	Pattern string
	Pos     int
	Rule    Rule
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid key pattern '%s': %s", e.Pattern, e.Msg)
}

func syntaxError(pattern string, pos int, rule Rule, format string, a ...any) *SyntaxError {
	return &SyntaxError{
		Pattern: pattern,
		Pos:     pos,
		Rule:    rule,
		Msg:     fmt.Sprintf(format, a...),
	}
}

// KeyEncodingError reports a value that cannot be written into a key because
// the resulting key would not parse back into the same value.
type KeyEncodingError struct {
	Pattern string
	Field   string
	Value   string
	Reason  string
}

func (e *KeyEncodingError) Error() string {
	return fmt.Sprintf("cannot encode %s=%q into key pattern '%s': %s", e.Field, e.Value, e.Pattern, e.Reason)
}
