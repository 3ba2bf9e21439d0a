// Package spec provides the [File] and [Request] data structures which
// together represent a fully resolved .reqx file.
//
// They differ from their counterparts in the syntax package in that they are
// "resolved". This means:
//   - Variable interpolation e.g. `{{...}}` has been performed
//   - The `:port/path` localhost shorthand has been expanded
//   - Absent methods have been inferred from the shape of the request
//
// This resolution means the requests described are ready to hand to a
// transport, the core never sends them itself.
package spec

import (
	"strconv"
	"strings"

	"go.followtheprocess.codes/reqx/internal/syntax"
)

// localhost is what the ":port/path" URL shorthand expands to.
const localhost = "http://localhost"

// Resolve converts a [syntax.Document] into a [File], performing variable
// interpolation, URL normalisation and method inference on every request.
//
// Resolution is a pure function of the document: no I/O, no clock, no
// randomness. Resolving the same document twice yields identical results, and
// it is safe to call concurrently on independent documents.
//
// Placeholders naming a variable that does not exist in the document's table
// are left in place literally, they are not an error.
func Resolve(document syntax.Document) File {
	file := File{
		Name: document.Name,
		Vars: document.Vars,
	}

	if len(document.Requests) > 0 {
		file.Requests = make([]Request, 0, len(document.Requests))
	}

	for _, request := range document.Requests {
		file.Requests = append(file.Requests, resolveRequest(request, document.Vars))
	}

	return file
}

// resolveRequest converts a single [syntax.Request] to a [Request] against
// the document's variable table.
func resolveRequest(in syntax.Request, vars map[string]string) Request {
	resolved := Request{
		Name:    in.Comment,
		Method:  in.Method,
		URL:     normaliseURL(interpolate(in.URL, vars)),
		Body:    interpolate(in.Body, vars),
		Section: in.Section,
	}

	// Requests without their own description are named after their section
	// index e.g. "#1"
	if resolved.Name == "" {
		resolved.Name = "#" + strconv.Itoa(in.Section)
	}

	if len(in.Headers) > 0 {
		resolved.Headers = make([]Header, 0, len(in.Headers))
		for _, header := range in.Headers {
			resolved.Headers = append(resolved.Headers, Header{
				Name:  header.Name,
				Value: interpolate(header.Value, vars),
			})
		}
	}

	// An explicit method always wins, otherwise a request with a body is a
	// POST and one without is a GET
	if resolved.Method == "" {
		if resolved.Body != "" {
			resolved.Method = "POST"
		} else {
			resolved.Method = "GET"
		}
	}

	return resolved
}

// interpolate replaces each "{{name}}" placeholder in s with the table's
// value for name.
//
// Replacement is plain textual substitution. Placeholders naming an absent
// variable, and unterminated "{{", pass through untouched.
func interpolate(s string, vars map[string]string) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))

	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			builder.WriteString(s)
			return builder.String()
		}

		end := strings.Index(s[start:], "}}")
		if end < 0 {
			builder.WriteString(s)
			return builder.String()
		}
		end += start

		name := strings.TrimSpace(s[start+2 : end])
		value, ok := vars[name]
		if ok {
			builder.WriteString(s[:start])
			builder.WriteString(value)
		} else {
			// Unknown variable, keep the placeholder literally
			builder.WriteString(s[:end+2])
		}

		s = s[end+2:]
	}
}

// normaliseURL expands the ":port/path" shorthand into a localhost URL,
// anything else passes through untouched.
func normaliseURL(url string) string {
	if strings.HasPrefix(url, ":") {
		return localhost + url
	}
	return url
}
