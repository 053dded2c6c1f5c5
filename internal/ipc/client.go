package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client calls a running relay's IPC server.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for addr, in the form accepted by Listen.
func NewClient(addr string) (*Client, error) {
	if path, ok := strings.CutPrefix(addr, "unix://"); ok {
		if path == "" {
			return nil, fmt.Errorf("client %q: missing socket path", addr)
		}
		transport := &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		}
		return &Client{base: "http://relay", http: &http.Client{Transport: transport, Timeout: 30 * time.Second}}, nil
	}
	return &Client{
		base: "http://" + strings.TrimPrefix(addr, "tcp://"),
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Do sends body (JSON-encoded when non-nil) and decodes the envelope. A
// transport failure is returned as an error; a relay-side failure comes
// back as a Response with Status "error".
func (c *Client) Do(ctx context.Context, method, path string, body any) (Response, error) {
	var resp Response

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return resp, fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", "application/json")

	hr, err := c.http.Do(req)
	if err != nil {
		return resp, fmt.Errorf("relay unreachable: %w", err)
	}
	defer hr.Body.Close()

	if err := json.NewDecoder(hr.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("decode response (status %d): %w", hr.StatusCode, err)
	}
	return resp, nil
}
