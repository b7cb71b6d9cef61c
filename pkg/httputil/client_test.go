package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/modcat/pkg/cache"
)

var fastBackoff = Backoff{Attempts: 3, Delay: time.Millisecond}

func newTestClient(t *testing.T, server *httptest.Server, headers map[string]string) *Client {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return NewClient(c, "test:", time.Hour, headers).
		WithHTTPClient(server.Client()).
		WithBackoff(fastBackoff)
}

func TestNewClientNilCache(t *testing.T) {
	client := NewClient(nil, "", 0, nil)
	if client.cache == nil {
		t.Fatal("NewClient(nil cache) should fall back to a null cache")
	}
	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.backoff != DefaultBackoff {
		t.Errorf("backoff = %+v, want default", client.backoff)
	}
}

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Write([]byte(`{"message":"hello"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)

	body, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(body) != `{"message":"hello"}` {
		t.Errorf("Get() body = %q", body)
	}
}

func TestClientGetWithHeadersOverridesDefaults(t *testing.T) {
	var got, def string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Override")
		def = r.Header.Get("X-Default")
	}))
	defer server.Close()

	client := newTestClient(t, server, map[string]string{"X-Override": "default", "X-Default": "yes"})
	if _, err := client.GetWithHeaders(context.Background(), server.URL, map[string]string{"X-Override": "overridden"}); err != nil {
		t.Fatalf("GetWithHeaders() error: %v", err)
	}
	if got != "overridden" {
		t.Errorf("header = %q, want %q", got, "overridden")
	}
	if def != "yes" {
		t.Errorf("default header = %q, want %q", def, "yes")
	}
}

func TestClientGet404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(t, server, nil).Get(context.Background(), server.URL)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestClientGet500(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(t, server, nil).Get(context.Background(), server.URL)
	if !IsRetryable(err) {
		t.Errorf("Get() error should be RetryableError, got %T", err)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Get() error = %v, want ErrNetwork", err)
	}
}

func TestClientCached(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	client := newTestClient(t, server, nil)
	ctx := context.Background()

	fetches := 0
	fetch := func() ([]byte, error) {
		fetches++
		return []byte("payload"), nil
	}

	for i := 0; i < 3; i++ {
		data, err := client.Cached(ctx, "key", false, fetch)
		if err != nil {
			t.Fatalf("Cached() error: %v", err)
		}
		if string(data) != "payload" {
			t.Errorf("Cached() = %q", data)
		}
	}
	if fetches != 1 {
		t.Errorf("fetch count = %d, want 1", fetches)
	}

	if _, err := client.Cached(ctx, "key", true, fetch); err != nil {
		t.Fatalf("Cached(refresh) error: %v", err)
	}
	if fetches != 2 {
		t.Errorf("refresh should bypass the cache: fetch count = %d", fetches)
	}
}

func TestClientCachedRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	ctx := context.Background()

	data, err := client.Cached(ctx, "retry", false, func() ([]byte, error) {
		return client.Get(ctx, server.URL)
	})
	if err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if string(data) != "ok" || hits.Load() != 3 {
		t.Errorf("data = %q after %d requests", data, hits.Load())
	}
}

func TestClientCachedFetchError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	client := newTestClient(t, server, nil)

	fetches := 0
	_, err := client.Cached(context.Background(), "missing", false, func() ([]byte, error) {
		fetches++
		return nil, ErrNotFound
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Cached() error = %v, want ErrNotFound", err)
	}
	if fetches != 1 {
		t.Errorf("non-retryable error should not be retried: %d", fetches)
	}

	// Failures are not cached.
	_, _ = client.Cached(context.Background(), "missing", false, func() ([]byte, error) {
		fetches++
		return []byte("later"), nil
	})
	if fetches != 2 {
		t.Errorf("fetch count = %d, want 2", fetches)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantErr   bool
		wantType  error
		retryable bool
	}{
		{name: "200 OK", code: 200},
		{name: "204 No Content", code: 204},
		{name: "404 Not Found", code: 404, wantErr: true, wantType: ErrNotFound},
		{name: "429 Too Many Requests", code: 429, wantErr: true, retryable: true},
		{name: "500 Internal Server Error", code: 500, wantErr: true, retryable: true},
		{name: "503 Service Unavailable", code: 503, wantErr: true, retryable: true},
		{name: "400 Bad Request", code: 400, wantErr: true, wantType: ErrNetwork},
		{name: "403 Forbidden", code: 403, wantErr: true, wantType: ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStatus(tt.code)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkStatus(%d) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			if tt.wantType != nil && !errors.Is(err, tt.wantType) {
				t.Errorf("checkStatus() error = %v, want %v", err, tt.wantType)
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("checkStatus(%d) retryable = %v, want %v", tt.code, IsRetryable(err), tt.retryable)
			}
		})
	}
}
