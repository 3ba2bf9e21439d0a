// Package syntax handles parsing raw .reqx file text into meaningful
// data structures, it hosts the line scanner and the parser as well as
// the positional error reporting machinery they share.
package syntax

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"go.followtheprocess.codes/hue"
)

// An ErrorHandler may be provided to parts of the parsing pipeline. If a syntax error is encountered and
// a non-nil handler was provided, it is called with the position info and error message.
type ErrorHandler func(pos Position, msg string)

// Position is an arbitrary source file position including file, line
// and column information. It can also express a range of source via StartCol
// and EndCol, this is useful for error reporting.
//
// Position's without filenames are considered invalid, in the case of stdin
// the string "stdin" may be used.
type Position struct {
	Name     string // Filename
	Line     int    // Line number (1 indexed)
	StartCol int    // Start column (1 indexed)
	EndCol   int    // End column (1 indexed), EndCol == StartCol when pointing to a single character
}

// IsValid reports whether the [Position] describes a valid source position.
//
// The rules are:
//
//   - At least Name, Line and StartCol must be set (and non zero)
//   - EndCol cannot be 0, it's only allowed values are StartCol or any number greater than StartCol
func (p Position) IsValid() bool {
	if p.Name == "" || p.Line < 1 || p.StartCol < 1 || p.EndCol < 1 || (p.EndCol >= 1 && p.EndCol < p.StartCol) {
		return false
	}
	return true
}

// String returns a string representation of a [Position].
//
// It is formatted such that most text editors/terminals will be able to support clicking on it
// and navigating to the position.
//
// Depending on which fields are set, the string returned will be different:
//
//   - "file:line:start-end": valid position pointing to a range of text on the line
//   - "file:line:start": valid position pointing to a single character on the line (EndCol == StartCol)
func (p Position) String() string {
	if !p.IsValid() {
		return fmt.Sprintf(
			"BadPosition: {Name: %q, Line: %d, StartCol: %d, EndCol: %d}",
			p.Name,
			p.Line,
			p.StartCol,
			p.EndCol,
		)
	}

	if p.StartCol == p.EndCol {
		// No range, just a single position
		return fmt.Sprintf("%s:%d:%d", p.Name, p.Line, p.StartCol)
	}

	return fmt.Sprintf("%s:%d:%d-%d", p.Name, p.Line, p.StartCol, p.EndCol)
}

// Document represents a single .reqx file as parsed.
//
// It is *nearly* concrete but variable interpolation is still to evaluate,
// URLs may be shorthand or templated, and methods may be absent. This is a
// structure populated from the as-parsed text.
type Document struct {
	Name     string            `json:"name,omitempty"`     // Name of the file
	Vars     map[string]string `json:"vars,omitempty"`     // File-global variables, last assignment of a name wins
	Requests []Request         `json:"requests,omitempty"` // One request per non-empty section, in source order
}

// Request is a single HTTP request as parsed from a .reqx file.
type Request struct {
	Comment string   `json:"comment,omitempty"` // Comment directly above the request line, if any
	Method  string   `json:"method,omitempty"`  // Explicit HTTP method, empty when it should be inferred
	URL     string   `json:"url,omitempty"`     // Raw URL, may have variable interpolation or the ":port" shorthand
	Headers []Header `json:"headers,omitempty"` // Headers in source order, duplicate names kept
	Body    string   `json:"body,omitempty"`    // Raw body text, empty when the request has no body
	Section int      `json:"section,omitempty"` // The 1-based index of the section this request came from
	Line    int      `json:"line,omitempty"`    // Line number of the request line, for error messages
}

// Header is a single HTTP header as parsed from a .reqx file.
//
// Headers are deliberately not a map, the .reqx grammar preserves both
// insertion order and duplicate names.
type Header struct {
	Name  string `json:"name"`  // Header name, may not be empty
	Value string `json:"value"` // Header value, may have variable interpolation
}

// PrettyConsoleHandler returns a [ErrorHandler] that formats the syntax error for
// display on the terminal to a user.
func PrettyConsoleHandler(w io.Writer) ErrorHandler {
	return func(pos Position, msg string) {
		fmt.Fprintf(w, "%s: %s\n\n", pos, msg)

		contents, err := os.ReadFile(pos.Name)
		if err != nil {
			fmt.Fprintf(w, "unable to show src context: %v\n", err)
			return
		}

		lines := bytes.Split(contents, []byte("\n"))

		const contextLines = 3

		startLine := max(pos.Line-contextLines, 0)
		endLine := max(pos.Line+contextLines, len(lines))

		for i, line := range lines {
			i++ // Lines are 1 indexed
			if i >= startLine && i <= endLine {
				margin := fmt.Sprintf("%d | ", i)
				fmt.Fprintf(w, "%s%s\n", margin, line)
				if i == pos.Line {
					hue.Red.Fprintf(
						w,
						"%s%s\n",
						strings.Repeat(" ", len(margin)+pos.StartCol-1),
						strings.Repeat("─", pos.EndCol-pos.StartCol),
					)
				}
			}
		}
	}
}
