package spec

import (
	"fmt"
	"strings"
)

// A Request is one fully resolved HTTP request described in a [File].
//
// Every field is concrete: the method is always one of the known verbs, the
// URL has had interpolation and the localhost shorthand applied, and headers
// keep their source order including duplicates. A Request is immutable once
// produced, the core keeps no reference after handing it over.
type Request struct {
	// Name of the request, its comment if it had one, "#N" otherwise
	Name string `json:"name,omitempty"`

	// The HTTP method e.g. "GET", "POST"
	Method string `json:"method,omitempty"`

	// The complete URL with variable interpolation evaluated and the
	// ":port/path" shorthand expanded
	URL string `json:"url,omitempty"`

	// Headers in source order, duplicate names each kept
	Headers []Header `json:"headers,omitempty"`

	// Request body, empty when the request has none
	Body string `json:"body,omitempty"`

	// The 1-based index of the section this request came from
	Section int `json:"section,omitempty"`
}

// A Header is a single resolved HTTP header.
type Header struct {
	Name  string `json:"name"`  // Header name
	Value string `json:"value"` // Header value, interpolation evaluated
}

// String implements [fmt.Stringer] for a [Request], rendering it as
// canonical .reqx text.
func (r Request) String() string {
	builder := &strings.Builder{}

	builder.WriteString("###\n")

	if r.Name != "" && !strings.HasPrefix(r.Name, "#") {
		fmt.Fprintf(builder, "# %s\n", r.Name)
	}

	fmt.Fprintf(builder, "%s %s\n", r.Method, r.URL)

	for _, header := range r.Headers {
		fmt.Fprintf(builder, "%s: %s\n", header.Name, header.Value)
	}

	if r.Body != "" {
		fmt.Fprintf(builder, "\n%s\n", r.Body)
	}

	return builder.String()
}

// FilterValue helps implement tea.list.Item.
//
// See https://github.com/charmbracelet/bubbles/tree/master/list#adding-custom-items.
func (r Request) FilterValue() string {
	return r.Name
}

// Title returns the request's name.
func (r Request) Title() string {
	return r.Name
}

// Description returns a description of the request, in this case the method and URL.
func (r Request) Description() string {
	return fmt.Sprintf("%s %s", r.Method, r.URL)
}
