// Package transport defines the capability used to actually send a resolved
// request over the network.
//
// The parsing and resolution pipeline never sends anything itself, it only
// produces [spec.Request] values. Whoever embeds the pipeline owns a [Client]
// and decides when (and whether) each request is executed, so swapping the
// real HTTP client for a recording or mock implementation is trivial.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.followtheprocess.codes/reqx/internal/spec"
)

// DefaultTimeout is the overall request timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// Response is a summary of a completed HTTP exchange.
type Response struct {
	Headers    http.Header // Response headers
	Status     string      // Status line text e.g. "200 OK"
	Body       []byte      // The raw response body
	StatusCode int         // Numeric status code e.g. 200
}

// A Client executes a single resolved request and reports what came back.
//
// Implementations must treat the request as read only.
type Client interface {
	Do(ctx context.Context, request spec.Request) (Response, error)
}

// HTTP is a [Client] backed by [net/http].
type HTTP struct {
	client *http.Client
}

// NewHTTP returns a [HTTP] transport with the given overall timeout, falling
// back to [DefaultTimeout] if it is zero.
func NewHTTP(timeout time.Duration) HTTP {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return HTTP{
		client: &http.Client{Timeout: timeout},
	}
}

// Do implements [Client] for [HTTP].
func (h HTTP) Do(ctx context.Context, request spec.Request) (Response, error) {
	var body io.Reader
	if request.Body != "" {
		body = strings.NewReader(request.Body)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, request.URL, body)
	if err != nil {
		return Response{}, fmt.Errorf("could not build HTTP request: %w", err)
	}

	for _, header := range request.Headers {
		httpRequest.Header.Add(header.Name, header.Value)
	}

	response, err := h.client.Do(httpRequest)
	if err != nil {
		return Response{}, fmt.Errorf("HTTP: %w", err)
	}

	if response == nil {
		return Response{}, errors.New("nil response")
	}

	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return Response{}, fmt.Errorf("could not read response body: %w", err)
	}

	return Response{
		Headers:    response.Header,
		Status:     response.Status,
		Body:       raw,
		StatusCode: response.StatusCode,
	}, nil
}
