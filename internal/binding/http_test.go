package binding

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPForwarder_Targets(t *testing.T) {
	tests := []struct {
		target  string
		wantErr bool
	}{
		{"http://127.0.0.1:9400/calls", false},
		{"http://localhost:9400/calls", false},
		{"http://[::1]:9400/calls", false},
		{"unix:///tmp/consumer.sock", false},
		{"http://example.com/calls", true},
		{"https://127.0.0.1/calls", true},
		{"unix://", true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			_, err := NewHTTPForwarder(tt.target, time.Second)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHTTPForwarder_PostsCall(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f, err := NewHTTPForwarder(srv.URL+"/calls", time.Second)
	require.NoError(t, err)

	err = f.Invoke(context.Background(), "onSmsReceived", map[string]any{
		"sender":          "X",
		"body":            "A",
		"timestampMillis": int64(1700000000123),
	})
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "sms_call", body)
}

func TestHTTPForwarder_Non2xxRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f, err := NewHTTPForwarder(srv.URL, time.Second)
	require.NoError(t, err)

	err = f.Invoke(context.Background(), "m", nil)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestHTTPForwarder_UnreachableRejects(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f, err := NewHTTPForwarder(url, 200*time.Millisecond)
	require.NoError(t, err)

	err = f.Invoke(context.Background(), "m", nil)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestHTTPForwarder_UnixSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "consumer.sock")
	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)

	got := make(chan string, 1)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.URL.Path
		w.WriteHeader(http.StatusOK)
	})}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	f, err := NewHTTPForwarder("unix://"+socket, time.Second)
	require.NoError(t, err)

	require.NoError(t, f.Invoke(context.Background(), "onNotificationReceived", map[string]any{}))
	assert.Equal(t, "/calls", <-got)
}
