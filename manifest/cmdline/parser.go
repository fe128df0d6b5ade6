// Package cmdline splits manifest command strings into executable fields the
// way a POSIX shell tokenises its input: fields separated by whitespace,
// single quotes taken literally and double quotes honouring backslash
// escapes.  No expansion of any kind is performed.
package cmdline

import (
	"strings"

	"github.com/viant/parsly"
)

// Split splits input into command fields.  Adjacent quoted and unquoted
// segments concatenate into a single field, so a'b c'd yields one field.
func Split(input string) ([]string, error) {
	cursor := parsly.NewCursor("", []byte(input), 0)

	var fields []string
	var current strings.Builder
	pending := false

	flush := func() {
		if pending {
			fields = append(fields, current.String())
			current.Reset()
			pending = false
		}
	}

	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAny(whitespaceToken, singleQuotedToken, doubleQuotedToken, fieldToken)
		switch matched.Code {
		case whitespaceCode:
			flush()
		case singleQuotedCode:
			text := matched.Text(cursor)
			current.WriteString(text[1 : len(text)-1])
			pending = true
		case doubleQuotedCode:
			text := matched.Text(cursor)
			current.WriteString(unescape(text[1 : len(text)-1]))
			pending = true
		case fieldCode:
			current.WriteString(matched.Text(cursor))
			pending = true
		default:
			// Typically an unterminated quote
			return nil, cursor.NewError(fieldToken)
		}
	}
	flush()
	return fields, nil
}

// unescape resolves backslash escapes inside a double-quoted segment
func unescape(text string) string {
	if !strings.Contains(text, `\`) {
		return text
	}
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' && i+1 < len(text) {
			i++
		}
		b.WriteByte(text[i])
	}
	return b.String()
}
