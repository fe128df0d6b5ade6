package cmdline

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes (arbitrary but unique; start at 1 to avoid clash with parsly.EOF).
const (
	whitespaceCode = iota + 1
	singleQuotedCode
	doubleQuotedCode
	fieldCode
)

// Token definitions
var (
	whitespaceToken   = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	singleQuotedToken = parsly.NewToken(singleQuotedCode, "SingleQuoted", newSingleQuotedMatcher())
	doubleQuotedToken = parsly.NewToken(doubleQuotedCode, "DoubleQuoted", newDoubleQuotedMatcher())
	fieldToken        = parsly.NewToken(fieldCode, "Field", newFieldMatcher())
)

// Custom matchers
func newSingleQuotedMatcher() parsly.Matcher {
	return &singleQuotedMatcher{}
}

func newDoubleQuotedMatcher() parsly.Matcher {
	return &doubleQuotedMatcher{}
}

func newFieldMatcher() parsly.Matcher {
	return &fieldMatcher{}
}

// singleQuotedMatcher matches a single-quoted segment including both quotes.
// Single quotes carry no escapes; an unterminated quote does not match.
type singleQuotedMatcher struct{}

func (m *singleQuotedMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size || input[pos] != '\'' {
		return 0
	}
	for i := pos + 1; i < size; i++ {
		if input[i] == '\'' {
			return i - pos + 1
		}
	}
	return 0
}

// doubleQuotedMatcher matches a double-quoted segment including both quotes.
// A backslash escapes the following character; an unterminated quote does not
// match.
type doubleQuotedMatcher struct{}

func (m *doubleQuotedMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size || input[pos] != '"' {
		return 0
	}
	i := pos + 1
	for i < size {
		switch input[i] {
		case '\\':
			i += 2
			continue
		case '"':
			return i - pos + 1
		}
		i++
	}
	return 0
}

// fieldMatcher matches a run of characters up to whitespace or a quote
type fieldMatcher struct{}

func (m *fieldMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	matched := 0
	for i := pos; i < size; i++ {
		c := input[i]
		if isSpace(c) || c == '\'' || c == '"' {
			break
		}
		matched++
	}
	return matched
}

// Helper functions
func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
