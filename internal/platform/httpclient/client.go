// Package httpclient provides the process-wide outbound HTTP client shared by
// every provider adapter.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxBodyBytes caps how much of a provider reply is buffered.
const maxBodyBytes = 8 << 20

// Reply is a fully read HTTP response. The underlying body is already closed.
type Reply struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client bounds concurrent in-flight requests with a semaphore. A slot is
// acquired before the request is sent and released once the body is drained
// and closed.
type Client struct {
	http  *http.Client
	slots chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// New builds a Client allowing at most maxInFlight concurrent requests.
func New(maxInFlight int, opts ...Option) *Client {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          maxInFlight,
		MaxIdleConnsPerHost:   maxInFlight,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	c := &Client{
		http:  &http.Client{Transport: transport},
		slots: make(chan struct{}, maxInFlight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req and reads the whole body. Deadlines come from req's context.
func (c *Client) Do(req *http.Request) (*Reply, error) {
	ctx := req.Context()
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Reply{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// InFlight reports the number of slots currently held.
func (c *Client) InFlight() int {
	return len(c.slots)
}

func (c *Client) acquire(ctx context.Context) error {
	select {
	case c.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	<-c.slots
}
