package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"lookout/internal/platform/httpclient"
)

// Doer sends a request and returns the fully read reply.
type Doer interface {
	Do(req *http.Request) (*httpclient.Reply, error)
}

// Endpoint describes one upstream HTTP lookup.
type Endpoint struct {
	Kind   Kind
	Method string
	// URL builds the request URL for a normalized identifier.
	URL func(identifier string) string
	// Body optionally builds a JSON request body.
	Body    func(identifier string) any
	Headers map[string]string
	// Configured is false when required credentials are missing.
	Configured bool
	// Parse turns the upstream reply into a Response. A non-nil error is
	// treated as bad_data.
	Parse func(status int, body []byte) (Response, error)
}

// HTTPAdapter invokes an Endpoint over the shared client.
type HTTPAdapter struct {
	endpoint Endpoint
	client   Doer
}

// NewHTTPAdapter binds endpoint to client.
func NewHTTPAdapter(endpoint Endpoint, client Doer) (*HTTPAdapter, error) {
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if endpoint.URL == nil || endpoint.Parse == nil {
		return nil, fmt.Errorf("endpoint %s: url and parse are required", endpoint.Kind)
	}
	if endpoint.Method == "" {
		endpoint.Method = http.MethodGet
	}
	return &HTTPAdapter{endpoint: endpoint, client: client}, nil
}

func (a *HTTPAdapter) Kind() Kind {
	return a.endpoint.Kind
}

// Invoke performs one request bounded by ctx.
func (a *HTTPAdapter) Invoke(ctx context.Context, identifier string) (Response, error) {
	kind := a.endpoint.Kind
	if !a.endpoint.Configured {
		return Response{}, NewProviderError(ErrorNotConfigured, kind, "missing credentials", ErrNotConfigured)
	}

	var body io.Reader
	if a.endpoint.Body != nil {
		payload, err := json.Marshal(a.endpoint.Body(identifier))
		if err != nil {
			return Response{}, NewProviderError(ErrorInternal, kind, "encode request", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, a.endpoint.Method, a.endpoint.URL(identifier), body)
	if err != nil {
		return Response{}, NewProviderError(ErrorInternal, kind, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range a.endpoint.Headers {
		req.Header.Set(k, v)
	}

	reply, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, NewProviderError(ErrorTimeout, kind, "request deadline exceeded", ctx.Err())
		}
		return Response{}, NewProviderError(ErrorProviderOutage, kind, "request failed", err)
	}

	resp, err := a.endpoint.Parse(reply.StatusCode, reply.Body)
	if err != nil {
		return Response{}, NewProviderError(ErrorBadData, kind, "decode reply", err)
	}
	resp.Source = kind.String()
	return resp, nil
}

// statusFailure is the Response for an unexpected upstream status.
func statusFailure(kind Kind, status int, body []byte) Response {
	snippet := body
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return Fail(kind, fmt.Sprintf("status %d [%s]: %s", status, CategoryForStatus(status), snippet))
}
