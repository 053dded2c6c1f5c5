package binding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultForwardTimeout bounds a single HTTP forward when no timeout is given.
const DefaultForwardTimeout = 2 * time.Second

// HTTPForwarder delivers calls to a consumer listening on a local HTTP
// endpoint, either a loopback URL or a unix socket.
//
// Target forms:
//
//	http://127.0.0.1:9400/calls
//	unix:///run/user/1000/consumer.sock
//
// Each call is a POST of a JSON-encoded Call. Any 2xx status is acceptance.
type HTTPForwarder struct {
	endpoint string
	client   *http.Client
}

// NewHTTPForwarder parses target and builds a forwarder. Only loopback hosts
// and unix sockets are accepted.
func NewHTTPForwarder(target string, timeout time.Duration) (*HTTPForwarder, error) {
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse callback target: %w", err)
	}

	switch u.Scheme {
	case "unix":
		socket := u.Path
		if socket == "" {
			return nil, fmt.Errorf("callback target %q: missing socket path", target)
		}
		transport := &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		}
		return &HTTPForwarder{
			endpoint: "http://consumer/calls",
			client:   &http.Client{Timeout: timeout, Transport: transport},
		}, nil
	case "http":
		if !isLoopback(u.Hostname()) {
			return nil, fmt.Errorf("callback target %q: host must be loopback", target)
		}
		return &HTTPForwarder{
			endpoint: u.String(),
			client:   &http.Client{Timeout: timeout},
		}, nil
	default:
		return nil, fmt.Errorf("callback target %q: unsupported scheme %q", target, u.Scheme)
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Invoke implements Forwarder.
func (h *HTTPForwarder) Invoke(ctx context.Context, method string, args map[string]any) error {
	body, err := json.Marshal(Call{Method: method, Args: args})
	if err != nil {
		return fmt.Errorf("marshal call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: consumer returned %d", ErrRejected, resp.StatusCode)
	}
	return nil
}
