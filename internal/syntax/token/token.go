// Package token provides the set of lexical line tokens for a .reqx file.
//
// The .reqx grammar is line oriented so rather than producing character level
// tokens, the scanner classifies whole lines.
package token

import "fmt"

// Kind is the kind of a line.
type Kind int

//go:generate stringer -type Kind -linecomment
const (
	EOF        Kind = iota // EOF
	Error                  // Error
	Delimiter              // Delimiter
	Assignment             // Assignment
	Comment                // Comment
	Blank                  // Blank
	Content                // Content
)

// Line is a single classified line in a .reqx file.
type Line struct {
	Text   string // The line's text, trimmed of leading and trailing whitespace
	Name   string // Variable name, set only for Assignment lines
	Value  string // Variable value, set only for Assignment lines
	Kind   Kind   // The kind of line this is
	Number int    // Line number in the source file (1 indexed)
}

// String returns a string representation of a [Line].
func (l Line) String() string {
	return fmt.Sprintf("<Line::%s number=%d, text=%q>", l.Kind, l.Number, l.Text)
}

// methods is the fixed set of HTTP verbs a request line may start with,
// keyed by their canonical (uppercase) spelling.
var methods = map[string]string{
	"GET":     "GET",
	"POST":    "POST",
	"PUT":     "PUT",
	"PATCH":   "PATCH",
	"DELETE":  "DELETE",
	"HEAD":    "HEAD",
	"OPTIONS": "OPTIONS",
}

// Method reports whether text refers to a known HTTP method, matching
// case-insensitively and returning the canonical spelling if it does.
func Method(text string) (method string, ok bool) {
	canonical, ok := methods[upper(text)]
	return canonical, ok
}

// upper is an ASCII only strings.ToUpper, method verbs are ASCII by definition.
func upper(s string) string {
	buf := []byte(s)
	for i, c := range buf {
		if 'a' <= c && c <= 'z' {
			buf[i] = c - ('a' - 'A')
		}
	}
	return string(buf)
}
