package spec

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// A File is a single, fully resolved .reqx file.
//
// It is constructed with [Resolve] from a [syntax.Document].
type File struct {
	// Name of the file
	Name string `json:"name,omitempty"`

	// The file-global variable table, as it was used during resolution
	Vars map[string]string `json:"vars,omitempty"`

	// The resolved requests, in source order
	Requests []Request `json:"requests,omitempty"`
}

// String implements [fmt.Stringer] for a [File], rendering it as canonical
// .reqx text.
func (f File) String() string {
	builder := &strings.Builder{}

	for _, key := range slices.Sorted(maps.Keys(f.Vars)) {
		fmt.Fprintf(builder, "@%s = %s\n", key, f.Vars[key])
	}

	// Separate the requests from the variables by a newline
	if len(f.Vars) > 0 {
		builder.WriteByte('\n')
	}

	for i, request := range f.Requests {
		if i > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(request.String())
	}

	return builder.String()
}

// Request returns the request with the given 1-based section index.
//
// Section indices are stable: a malformed section keeps its place, so the
// index of every request that did parse is unaffected by failures elsewhere
// in the file.
func (f File) Request(index int) (Request, bool) {
	for _, request := range f.Requests {
		if request.Section == index {
			return request, true
		}
	}

	return Request{}, false
}

// ByMethod returns the requests whose method matches the given verb,
// preserving source order.
func (f File) ByMethod(method string) []Request {
	var matched []Request
	for _, request := range f.Requests {
		if strings.EqualFold(request.Method, method) {
			matched = append(matched, request)
		}
	}

	return matched
}
