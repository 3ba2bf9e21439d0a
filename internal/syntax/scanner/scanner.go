// Package scanner implements the lexical scanner for .reqx files.
//
// The .reqx grammar is strictly line oriented so the scanner works a line at
// a time, classifying each one by the rules below (first match wins):
//
//  1. A line that is exactly "###" after trimming is a Delimiter
//  2. A line starting with '@' and matching "@name = value" is an Assignment
//  3. Any other line starting with '#' is a Comment
//  4. An empty (post trim) line is Blank
//  5. Anything else is Content
//
// A line starting with '@' that does not match the assignment grammar (a
// missing '=' or an invalid name) is classified as a Comment and therefore
// ignored, it is never an error.
package scanner

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"go.followtheprocess.codes/reqx/internal/syntax"
	"go.followtheprocess.codes/reqx/internal/syntax/token"
)

const bufferSize = 32 // Line buffer size, .reqx files are small so lines are rarely waited on

// delimiter is the literal section delimiter line.
const delimiter = "###"

// Scanner is the .reqx file scanner.
type Scanner struct {
	handler syntax.ErrorHandler // The error handler, if any
	lines   chan token.Line     // Channel on which to emit classified lines
	name    string              // Name of the file
	src     []byte              // Raw source text
}

// New returns a new [Scanner] reading from src.
func New(name string, src []byte, handler syntax.ErrorHandler) *Scanner {
	s := &Scanner{
		handler: handler,
		lines:   make(chan token.Line, bufferSize),
		name:    name,
		src:     src,
	}

	// run terminates when the whole of src has been classified and all lines
	// drained from s.lines so no extra synchronisation needed here
	go s.run()
	return s
}

// Scan returns the next classified line, the final line has [token.EOF].
func (s *Scanner) Scan() token.Line {
	return <-s.lines
}

// run drives the scanner, classifying each line of src in order and closing
// the lines channel when done as a signal to the receiver.
func (s *Scanner) run() {
	defer close(s.lines)

	src := bytes.TrimPrefix(s.src, []byte("\ufeff")) // Strip any byte order mark

	if !utf8.Valid(src) {
		s.error("file is not valid utf-8")
		s.lines <- token.Line{Kind: token.Error, Number: 1}
		s.lines <- token.Line{Kind: token.EOF, Number: 1}
		return
	}

	number := 0
	for line := range strings.Lines(string(src)) {
		number++
		s.lines <- classify(line, number)
	}

	s.lines <- token.Line{Kind: token.EOF, Number: number + 1}
}

// error arranges for s.handler to be called with the position information.
func (s *Scanner) error(msg string) {
	if s.handler == nil {
		// I guess just ignore the error?
		return
	}

	position := syntax.Position{
		Name:     s.name,
		Line:     1,
		StartCol: 1,
		EndCol:   1,
	}

	s.handler(position, msg)
}

// classify classifies a single raw source line.
//
// Leading and trailing whitespace is insignificant in the .reqx grammar so
// classification (and everything downstream) operates on the trimmed text.
func classify(raw string, number int) token.Line {
	text := strings.TrimSpace(raw)

	switch {
	case text == delimiter:
		return token.Line{Kind: token.Delimiter, Text: text, Number: number}
	case strings.HasPrefix(text, "@"):
		return classifyAssignment(text, number)
	case strings.HasPrefix(text, "#"):
		return token.Line{Kind: token.Comment, Text: text, Number: number}
	case text == "":
		return token.Line{Kind: token.Blank, Number: number}
	default:
		return token.Line{Kind: token.Content, Text: text, Number: number}
	}
}

// classifyAssignment classifies a line known to start with '@'.
//
// Anything not matching "@name = value" exactly falls back to a Comment so
// that a stray '@' can never derail the rest of the file.
func classifyAssignment(text string, number int) token.Line {
	name, value, found := strings.Cut(text[1:], "=")
	if !found {
		return token.Line{Kind: token.Comment, Text: text, Number: number}
	}

	name = strings.TrimSpace(name)
	if !validName(name) {
		return token.Line{Kind: token.Comment, Text: text, Number: number}
	}

	return token.Line{
		Kind:   token.Assignment,
		Text:   text,
		Name:   name,
		Value:  strings.TrimSpace(value),
		Number: number,
	}
}

// validName reports whether name is a valid variable name, that is one or
// more alphanumeric or underscore characters.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, char := range name {
		if !isIdent(char) {
			return false
		}
	}
	return true
}

// isIdent reports whether r is a valid identifier character.
func isIdent(r rune) bool {
	return isAlpha(r) || isDigit(r) || r == '_'
}

// isAlpha reports whether r is an alpha character.
func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// isDigit reports whether r is a valid ASCII digit.
func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
