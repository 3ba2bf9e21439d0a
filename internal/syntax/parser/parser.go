// Package parser implements the .reqx file parser.
package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.followtheprocess.codes/reqx/internal/syntax"
	"go.followtheprocess.codes/reqx/internal/syntax/scanner"
	"go.followtheprocess.codes/reqx/internal/syntax/token"
)

// ErrParse is a generic parsing error, details on the error are passed
// to the parsers [syntax.ErrorHandler] at the moment it occurs.
var ErrParse = errors.New("parse error")

// Parser is the .reqx file parser.
//
// It splits the classified line stream into delimiter-bounded sections,
// builds the file-global variable table, and parses each section's request
// line, headers and body. A malformed section is reported to the
// [syntax.ErrorHandler] and skipped, it never aborts the rest of the file,
// so a [Parser] returns every well formed request alongside [ErrParse].
type Parser struct {
	handler   syntax.ErrorHandler // The error handler
	scanner   *scanner.Scanner    // Scanner to generate classified lines
	name      string              // Name of the file being parsed
	hadErrors bool                // Whether we encountered parse errors
}

// New returns a new [Parser].
func New(name string, r io.Reader, handler syntax.ErrorHandler) (*Parser, error) {
	// .reqx files are smol, it's okay to read the whole thing
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read from input: %w", err)
	}

	p := &Parser{
		handler: handler,
		name:    name,
		scanner: scanner.New(name, src, handler),
	}

	return p, nil
}

// Parse parses the file to completion returning a [syntax.Document] and any
// parsing errors encountered.
//
// The returned error simply signifies whether or not there were parse errors,
// details go to the error handler passed to [New]. On a section error the
// returned [syntax.Document] still holds every request that did parse, with
// its original section index intact, so callers may report the failures and
// carry on with the survivors.
func (p *Parser) Parse() (syntax.Document, error) {
	document := syntax.Document{
		Name: p.name,
	}

	// Variables are file-global and position independent, every assignment
	// line in the file lands in the one table regardless of which section it
	// appears in, later assignments of the same name overwrite earlier ones.
	// The table is complete before any section is looked at, which is what
	// makes forward references work.
	var sections [][]token.Line
	var current []token.Line

scan:
	for {
		line := p.scanner.Scan()
		switch line.Kind {
		case token.EOF:
			sections = append(sections, current)
			break scan
		case token.Error:
			// The scanner already reported it, nothing useful beyond this point
			p.hadErrors = true
			return syntax.Document{}, ErrParse
		case token.Assignment:
			if document.Vars == nil {
				document.Vars = make(map[string]string)
			}
			document.Vars[line.Name] = line.Value
		case token.Delimiter:
			sections = append(sections, current)
			current = nil
		default:
			current = append(current, line)
		}
	}

	// Sections with no content lines (blank or comment-only) describe no
	// request, they are skipped and don't count towards section indices
	index := 0
	for _, section := range sections {
		if !hasContent(section) {
			continue
		}

		index++
		request, ok := p.parseSection(section, index)
		if !ok {
			continue
		}

		document.Requests = append(document.Requests, request)
	}

	if p.hadErrors {
		return document, ErrParse
	}

	return document, nil
}

// parseSection parses one delimiter-bounded section, known to contain at
// least one content line, into a [syntax.Request].
//
// ok is false when the section was malformed, in which case the error has
// already been reported against this section's index.
func (p *Parser) parseSection(lines []token.Line, index int) (request syntax.Request, ok bool) {
	request = syntax.Request{Section: index}

	rest := lines

	// The request line is the first content line, a comment directly above
	// it serves as the request's description
	var head token.Line
	for len(rest) > 0 {
		line := rest[0]
		rest = rest[1:]
		if line.Kind == token.Comment {
			request.Comment = strings.TrimSpace(strings.TrimLeft(line.Text, "#"))
			continue
		}
		if line.Kind == token.Content {
			head = line
			break
		}
		// Blank lines above the request line are insignificant
	}

	request.Line = head.Number

	method, url, ok := p.parseRequestLine(head, index)
	if !ok {
		return syntax.Request{}, false
	}

	request.Method = method
	request.URL = url

	// Headers run until the first blank line, each must be "name: value".
	// Order and duplicates are preserved, resolution never merges them.
	var i int
	for i = 0; i < len(rest); i++ {
		line := rest[i]
		if line.Kind == token.Blank {
			break
		}
		if line.Kind == token.Comment {
			continue
		}

		name, value, found := strings.Cut(line.Text, ":")
		if !found {
			p.errorf(line, "section %d: malformed header %q: missing ':'", index, line.Text)
			return syntax.Request{}, false
		}

		request.Headers = append(request.Headers, syntax.Header{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}

	// Everything after the separating blank line is the body, verbatim. If
	// there was no blank line there is no body
	var body []string
	for _, line := range rest[i:] {
		switch line.Kind {
		case token.Content:
			body = append(body, line.Text)
		case token.Blank:
			// Interior blank lines are part of the body, leading ones are not
			if len(body) > 0 {
				body = append(body, "")
			}
		default:
			// Comments are ignored everywhere, even mid body
		}
	}

	// Trailing blank lines belong to the file, not the body
	for len(body) > 0 && body[len(body)-1] == "" {
		body = body[:len(body)-1]
	}

	request.Body = strings.Join(body, "\n")

	return request, true
}

// parseRequestLine splits a section's first content line into an optional
// method and a URL.
//
// If the first whitespace separated token case-insensitively matches a known
// HTTP verb it is the explicit method and the remainder is the URL, otherwise
// the whole line is the URL and the method is inferred later during
// resolution. An unknown leading token is not an error.
func (p *Parser) parseRequestLine(head token.Line, index int) (method, url string, ok bool) {
	first, rest, _ := cutSpace(head.Text)

	canonical, isMethod := token.Method(first)
	if !isMethod {
		return "", head.Text, true
	}

	if rest == "" {
		p.errorf(head, "section %d: expected a URL after %s", index, canonical)
		return "", "", false
	}

	return canonical, rest, true
}

// hasContent reports whether any line in the section is a content line.
func hasContent(lines []token.Line) bool {
	for _, line := range lines {
		if line.Kind == token.Content {
			return true
		}
	}
	return false
}

// cutSpace cuts s around the first run of whitespace, returning the leading
// token and the trimmed remainder.
func cutSpace(s string) (first, rest string, found bool) {
	index := strings.IndexAny(s, " \t")
	if index < 0 {
		return s, "", false
	}
	return s[:index], strings.TrimSpace(s[index:]), true
}

// error reports a parse error against a specific line via the installed handler.
func (p *Parser) error(line token.Line, msg string) {
	p.hadErrors = true

	if p.handler == nil {
		// I guess ignore?
		return
	}

	position := syntax.Position{
		Name:     p.name,
		Line:     line.Number,
		StartCol: 1,
		EndCol:   max(1, 1+len(line.Text)),
	}

	p.handler(position, msg)
}

// errorf calls error with a formatted message.
func (p *Parser) errorf(line token.Line, format string, a ...any) {
	p.error(line, fmt.Sprintf(format, a...))
}
