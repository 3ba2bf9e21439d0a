package reqx_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"go.followtheprocess.codes/reqx/internal/reqx"
	"go.followtheprocess.codes/reqx/internal/spec"
	"go.followtheprocess.codes/reqx/internal/transport"
	"go.followtheprocess.codes/test"
)

func TestCheck(t *testing.T) {
	good := filepath.Join("testdata", "check", "good.reqx")
	bad := filepath.Join("testdata", "check", "bad.reqx")

	t.Run("good", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		app := reqx.New(stdout, stderr, nil)

		err := app.Check([]string{good}, reqx.CheckOptions{})
		test.Ok(t, err)

		// Stderr should be empty
		test.Equal(t, stderr.String(), "")

		// Stdout should have the success message
		test.True(t, strings.Contains(stdout.String(), fmt.Sprintf("%s is valid", good)))
	})

	t.Run("bad", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		app := reqx.New(stdout, stderr, nil)

		err := app.Check([]string{bad}, reqx.CheckOptions{})
		test.Err(t, err)

		got := stderr.String()

		// Replace \ with / on windows
		if runtime.GOOS == "windows" {
			got = strings.ReplaceAll(got, `\`, "/")
		}

		// Stderr should have the syntax error, against the section's index
		test.True(
			t,
			strings.Contains(
				got,
				"testdata/check/bad.reqx:2:1-7: section 1: expected a URL after DELETE",
			),
		)
	})
}

func TestShow(t *testing.T) {
	good := filepath.Join("testdata", "check", "good.reqx")

	t.Run("raw", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		app := reqx.New(stdout, stderr, nil)

		err := app.Show(good, reqx.ShowOptions{})
		test.Ok(t, err)

		test.Equal(t, stderr.String(), "")

		// Raw output keeps placeholders and shorthand untouched
		test.True(t, strings.Contains(stdout.String(), "@base = :8000"))
		test.True(t, strings.Contains(stdout.String(), "GET {{base}}/health"))
	})

	t.Run("resolved", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		app := reqx.New(stdout, stderr, nil)

		err := app.Show(good, reqx.ShowOptions{Resolve: true})
		test.Ok(t, err)

		// Resolution evaluates placeholders and expands the shorthand
		test.True(t, strings.Contains(stdout.String(), "GET http://localhost:8000/health"))
		test.True(t, strings.Contains(stdout.String(), "POST http://localhost:8000/users"))
	})

	t.Run("json", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		app := reqx.New(stdout, stderr, nil)

		err := app.Show(good, reqx.ShowOptions{Resolve: true, JSON: true})
		test.Ok(t, err)

		test.True(t, strings.Contains(stdout.String(), `"url":"http://localhost:8000/health"`))
	})
}

func TestDo(t *testing.T) {
	testHandler := func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"stuff": "here"}`)
	}

	server := httptest.NewServer(http.HandlerFunc(testHandler))
	defer server.Close()

	reqxFile := fmt.Sprintf(`###
# Test
GET %s
Accept: application/json
`, server.URL)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	app := reqx.New(stdout, stderr, nil)

	file := writeTemp(t, reqxFile)

	options := reqx.DoOptions{
		Timeout: 1 * time.Second,
	}

	err := app.Do(file, options)
	test.Ok(t, err)

	got := stdout.String()

	test.True(t, strings.Contains(got, "Request 1/1"))
	test.True(t, strings.Contains(got, "▸ Test"))
	test.True(t, strings.Contains(got, "Status: 200 OK"))
	test.True(t, strings.Contains(got, `"stuff": "here"`))
}

func TestDoDryRun(t *testing.T) {
	client := &recordingClient{}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	app := reqx.New(stdout, stderr, client)

	file := writeTemp(t, `###
GET :8000/health
`)

	err := app.Do(file, reqx.DoOptions{DryRun: true})
	test.Ok(t, err)

	// Nothing must have been sent
	test.Equal(t, len(client.requests), 0)
	test.True(t, strings.Contains(stdout.String(), "(dry-run: request not sent)"))
	test.True(t, strings.Contains(stdout.String(), "GET http://localhost:8000/health"))
}

func TestDoRequestFilter(t *testing.T) {
	client := &recordingClient{response: transport.Response{Status: "200 OK", StatusCode: http.StatusOK}}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	app := reqx.New(stdout, stderr, client)

	file := writeTemp(t, `###
GET :8000/one

###
DELETE :8000/two

###
GET :8000/three
`)

	err := app.Do(file, reqx.DoOptions{Request: 2})
	test.Ok(t, err)

	test.Equal(t, len(client.requests), 1)
	test.Equal(t, client.requests[0].URL, "http://localhost:8000/two")
	test.Equal(t, client.requests[0].Method, "DELETE")

	// Out of range index is an error
	err = app.Do(file, reqx.DoOptions{Request: 9})
	test.Err(t, err)
	test.Equal(t, err.Error(), "invalid request index: 9, the file has 3 request(s)")
}

func TestDoMethodFilter(t *testing.T) {
	client := &recordingClient{response: transport.Response{Status: "200 OK", StatusCode: http.StatusOK}}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	app := reqx.New(stdout, stderr, client)

	file := writeTemp(t, `###
GET :8000/one

###
DELETE :8000/two

###
GET :8000/three
`)

	err := app.Do(file, reqx.DoOptions{Method: "get"})
	test.Ok(t, err)

	test.Equal(t, len(client.requests), 2)
	test.Equal(t, client.requests[0].URL, "http://localhost:8000/one")
	test.Equal(t, client.requests[1].URL, "http://localhost:8000/three")

	// An unknown verb is an error, not an empty filter
	err = app.Do(file, reqx.DoOptions{Method: "YEET"})
	test.Err(t, err)
	test.Equal(t, err.Error(), "invalid HTTP method filter: YEET")
}

func TestDoOutput(t *testing.T) {
	client := &recordingClient{
		response: transport.Response{
			Status:     "200 OK",
			StatusCode: http.StatusOK,
			Body:       []byte(`{"stuff": "here"}`),
		},
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	app := reqx.New(stdout, stderr, client)

	file := writeTemp(t, `###
GET :8000/health
`)

	output := filepath.Join(t.TempDir(), "body.json")

	err := app.Do(file, reqx.DoOptions{Output: output})
	test.Ok(t, err)

	saved, err := os.ReadFile(output)
	test.Ok(t, err)
	test.Equal(t, string(saved), `{"stuff": "here"}`)
}

func TestDoPartialFile(t *testing.T) {
	client := &recordingClient{response: transport.Response{Status: "200 OK", StatusCode: http.StatusOK}}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	app := reqx.New(stdout, stderr, client)

	// Section 2 is malformed, sections 1 and 3 must still run with
	// their original indices
	file := writeTemp(t, `###
GET :8000/one

###
POST

###
GET :8000/three
`)

	err := app.Do(file, reqx.DoOptions{})
	test.Ok(t, err)

	test.Equal(t, len(client.requests), 2)
	test.Equal(t, client.requests[0].Section, 1)
	test.Equal(t, client.requests[1].Section, 3)

	test.True(t, strings.Contains(stderr.String(), "failed to parse, continuing with the rest"))
}

// writeTemp writes src to a temporary .reqx file, returning its path.
func writeTemp(t *testing.T, src string) string {
	t.Helper()

	file, err := os.CreateTemp(t.TempDir(), "test*.reqx")
	test.Ok(t, err)

	_, err = file.WriteString(src)
	test.Ok(t, err)
	test.Ok(t, file.Close())

	return file.Name()
}

// recordingClient is a [transport.Client] that records every request it is
// given instead of sending it anywhere.
type recordingClient struct {
	mu       sync.Mutex
	requests []spec.Request
	response transport.Response
	err      error
}

func (r *recordingClient) Do(_ context.Context, request spec.Request) (transport.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, request)
	return r.response, r.err
}
