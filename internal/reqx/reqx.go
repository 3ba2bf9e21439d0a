// Package reqx implements the actual functionality exposed via the CLI.
package reqx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/gjson"
	"go.followtheprocess.codes/hue"
	"go.followtheprocess.codes/msg"
	"go.followtheprocess.codes/reqx/internal/spec"
	"go.followtheprocess.codes/reqx/internal/syntax"
	"go.followtheprocess.codes/reqx/internal/syntax/parser"
	"go.followtheprocess.codes/reqx/internal/syntax/token"
	"go.followtheprocess.codes/reqx/internal/transport"
)

// watchDebounce is how long to wait after a file write event before
// re-checking, editors tend to fire several events per save.
const watchDebounce = 200 * time.Millisecond

// maxBodyLines caps how many lines of a non-JSON response body get shown.
const maxBodyLines = 50

// Reqx holds the state of the program.
type Reqx struct {
	stdout io.Writer        // Normal program output is written here
	stderr io.Writer        // Syntax errors and warnings
	client transport.Client // Sends the resolved requests, injectable for testing
}

// New returns a new instance of [Reqx].
func New(stdout, stderr io.Writer, client transport.Client) Reqx {
	return Reqx{
		stdout: stdout,
		stderr: stderr,
		client: client,
	}
}

// CheckOptions are the flags passed to the `reqx check` subcommand.
type CheckOptions struct {
	Watch bool // Re-check files whenever they change
}

// Check implements the `reqx check` subcommand.
func (r Reqx) Check(files []string, options CheckOptions) error {
	var errs []error
	for _, file := range files {
		if err := r.check(file); err != nil {
			errs = append(errs, err)
		}
	}

	if !options.Watch {
		return errors.Join(errs...)
	}

	return r.watch(files)
}

// check parses a single file, reporting the outcome to the user.
func (r Reqx) check(file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	p, err := parser.New(file, f, syntax.PrettyConsoleHandler(r.stderr))
	if err != nil {
		return err
	}

	if _, err = p.Parse(); err != nil {
		return fmt.Errorf("%w: %s is not valid reqx syntax", err, file)
	}

	msg.Fsuccess(r.stdout, "%s is valid", file)
	return nil
}

// watch re-checks each of files whenever it is written to, running until the
// process is interrupted.
func (r Reqx) watch(files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch parent directories rather than the files themselves, editors that
	// save via rename would otherwise silently drop the watch
	watched := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("could not watch %s: %w", dir, err)
			}
			watched[dir] = true
		}
	}

	checking := make(map[string]bool, len(files))
	for _, file := range files {
		checking[filepath.Clean(file)] = true
	}

	fmt.Fprintln(r.stdout, "Watching for changes... (press Ctrl+C to stop)")

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Write) || !checking[filepath.Clean(event.Name)] {
				continue
			}

			// Debounce: reset the timer on each event
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(watchDebounce, func() {
				fmt.Fprintf(r.stdout, "\n%s changed, re-checking\n", name)
				if err := r.check(name); err != nil {
					msg.Ferror(r.stderr, "%v", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			msg.Ferror(r.stderr, "watcher: %v", err)
		}
	}
}

// ShowOptions are the flags passed to the `reqx show` subcommand.
type ShowOptions struct {
	Resolve bool // Resolve variables and do replacements
	JSON    bool // Output the file in JSON
}

// Show implements the `reqx show` subcommand.
func (r Reqx) Show(file string, options ShowOptions) error {
	document, err := r.parse(file)
	if err != nil {
		return err
	}

	if options.Resolve {
		resolved := spec.Resolve(document)

		if options.JSON {
			return json.NewEncoder(r.stdout).Encode(resolved)
		}

		fmt.Fprintln(r.stdout, strings.TrimSpace(resolved.String()))
		return nil
	}

	if options.JSON {
		return json.NewEncoder(r.stdout).Encode(document)
	}

	fmt.Fprintln(r.stdout, strings.TrimSpace(rawString(document)))
	return nil
}

// DoOptions are the flags passed to the `reqx do` subcommand.
type DoOptions struct {
	Method  string        // Only execute requests with this method
	Output  string        // Save the final response body to this file
	Request int           // Only execute the request with this 1-based section index
	Timeout time.Duration // Overall timeout per request
	Verbose bool          // Show request and response detail
	DryRun  bool          // Show requests without sending them
}

// Do implements the `reqx do` subcommand, executing requests from file
// sequentially in source order.
func (r Reqx) Do(file string, options DoOptions) error {
	document, err := r.parse(file)
	if err != nil {
		return err
	}

	resolved := spec.Resolve(document)

	requests, err := selectRequests(resolved, options)
	if err != nil {
		return err
	}

	if len(requests) == 0 {
		msg.Fwarn(r.stdout, "no requests matched")
		return nil
	}

	if options.Verbose {
		r.showVars(resolved.Vars)
	}

	client := r.client
	if client == nil {
		client = transport.NewHTTP(options.Timeout)
	}

	total := len(resolved.Requests)
	for _, request := range requests {
		fmt.Fprintf(r.stdout, "%s\n", (hue.Blue | hue.Bold).Sprintf("━━━ Request %d/%d ━━━", request.Section, total))

		if !strings.HasPrefix(request.Name, "#") {
			fmt.Fprintf(r.stdout, "%s %s\n", hue.Green.Sprint("▸"), request.Name)
		}

		if err := r.execute(client, request, options); err != nil {
			return err
		}

		fmt.Fprintln(r.stdout)
	}

	return nil
}

// parse opens and parses file, writing any syntax errors to stderr.
//
// A partial parse is not fatal here: the failed sections have already been
// reported against their indices and the surviving requests keep theirs, so
// we warn and carry on with what we have.
func (r Reqx) parse(file string) (syntax.Document, error) {
	f, err := os.Open(file)
	if err != nil {
		return syntax.Document{}, err
	}
	defer f.Close()

	p, err := parser.New(file, f, syntax.PrettyConsoleHandler(r.stderr))
	if err != nil {
		return syntax.Document{}, err
	}

	document, err := p.Parse()
	if err != nil {
		if len(document.Requests) == 0 {
			return syntax.Document{}, fmt.Errorf("%w: %s is not valid reqx syntax", err, file)
		}
		msg.Fwarn(r.stderr, "some sections in %s failed to parse, continuing with the rest", file)
	}

	return document, nil
}

// selectRequests applies the index and method filters to the resolved file.
func selectRequests(file spec.File, options DoOptions) ([]spec.Request, error) {
	requests := file.Requests

	if options.Request > 0 {
		request, ok := file.Request(options.Request)
		if !ok {
			return nil, fmt.Errorf("invalid request index: %d, the file has %d request(s)", options.Request, len(file.Requests))
		}
		requests = []spec.Request{request}
	}

	if options.Method != "" {
		method, ok := token.Method(options.Method)
		if !ok {
			return nil, fmt.Errorf("invalid HTTP method filter: %s", options.Method)
		}

		var matched []spec.Request
		for _, request := range requests {
			if request.Method == method {
				matched = append(matched, request)
			}
		}
		requests = matched
	}

	return requests, nil
}

// showVars prints the resolved variable table.
func (r Reqx) showVars(vars map[string]string) {
	if len(vars) == 0 {
		return
	}

	fmt.Fprintln(r.stdout, "── Variables ──")
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		fmt.Fprintf(r.stdout, "  %s = %s\n", hue.Cyan.Sprint(key), vars[key])
	}
	fmt.Fprintln(r.stdout)
}

// execute sends one resolved request (unless dry running) and renders the
// outcome to the user.
func (r Reqx) execute(client transport.Client, request spec.Request, options DoOptions) error {
	fmt.Fprintf(r.stdout, "%s %s\n", colourMethod(request.Method), request.URL)

	if options.Verbose {
		for _, header := range request.Headers {
			fmt.Fprintf(r.stdout, "  %s: %s\n", header.Name, header.Value)
		}
		if request.Body != "" {
			fmt.Fprintln(r.stdout, "  Body:")
			r.showBody(request.Body)
		}
	}

	if options.DryRun {
		fmt.Fprintln(r.stdout, "  (dry-run: request not sent)")
		return nil
	}

	response, err := client.Do(context.Background(), request)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.stdout, "  Status: %s\n", colourStatus(response.StatusCode, response.Status))

	if options.Verbose {
		fmt.Fprintln(r.stdout, "  Response Headers:")
		for _, key := range slices.Sorted(maps.Keys(response.Headers)) {
			fmt.Fprintf(r.stdout, "    %s: %s\n", key, strings.Join(response.Headers[key], ", "))
		}
	}

	if len(response.Body) > 0 {
		fmt.Fprintln(r.stdout, "  Response Body:")
		r.showBody(string(response.Body))
	}

	if options.Output != "" {
		const perms = 0o644
		if err := os.WriteFile(options.Output, response.Body, perms); err != nil {
			return fmt.Errorf("could not save response body: %w", err)
		}
		msg.Fsuccess(r.stdout, "response body saved to %s", options.Output)
	}

	return nil
}

// showBody renders a request or response body, pretty printing JSON and
// truncating anything unreasonably long.
func (r Reqx) showBody(body string) {
	if gjson.Valid(body) {
		body = strings.TrimSpace(gjson.Get(body, "@pretty").Raw)
	}

	lines := strings.Split(body, "\n")
	shown := lines
	if len(shown) > maxBodyLines {
		shown = shown[:maxBodyLines]
	}

	for _, line := range shown {
		fmt.Fprintf(r.stdout, "    %s\n", line)
	}

	if hidden := len(lines) - len(shown); hidden > 0 {
		fmt.Fprintf(r.stdout, "    ... (%d more lines)\n", hidden)
	}
}

// colourMethod renders an HTTP verb in its traditional colour.
func colourMethod(method string) string {
	style := hue.White
	switch method {
	case "GET":
		style = hue.Green
	case "POST":
		style = hue.Yellow
	case "PUT":
		style = hue.Blue
	case "PATCH":
		style = hue.Magenta
	case "DELETE":
		style = hue.Red
	case "HEAD":
		style = hue.Cyan
	}

	return (style | hue.Bold).Sprint(method)
}

// colourStatus renders a status line coloured by its class.
func colourStatus(code int, status string) string {
	style := hue.White
	switch {
	case code >= 200 && code < 300:
		style = hue.Green
	case code >= 400 && code < 500:
		style = hue.Yellow
	case code >= 500:
		style = hue.Red
	}

	return (style | hue.Bold).Sprint(status)
}

// rawString renders a raw document as canonical .reqx text.
func rawString(document syntax.Document) string {
	builder := &strings.Builder{}

	for _, key := range slices.Sorted(maps.Keys(document.Vars)) {
		fmt.Fprintf(builder, "@%s = %s\n", key, document.Vars[key])
	}

	if len(document.Vars) > 0 {
		builder.WriteByte('\n')
	}

	for i, request := range document.Requests {
		if i > 0 {
			builder.WriteByte('\n')
		}

		builder.WriteString("###\n")
		if request.Comment != "" {
			fmt.Fprintf(builder, "# %s\n", request.Comment)
		}

		if request.Method != "" {
			fmt.Fprintf(builder, "%s %s\n", request.Method, request.URL)
		} else {
			fmt.Fprintf(builder, "%s\n", request.URL)
		}

		for _, header := range request.Headers {
			fmt.Fprintf(builder, "%s: %s\n", header.Name, header.Value)
		}

		if request.Body != "" {
			fmt.Fprintf(builder, "\n%s\n", request.Body)
		}
	}

	return builder.String()
}
