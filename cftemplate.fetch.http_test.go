package cftemplate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFormServer serves one form and one publication the way the public
// form service does
func newTestFormServer(t *testing.T, form *Form) (*httptest.Server, string) {
	t.Helper()

	digest, err := form.Digest()
	require.NoError(t, err)
	body, err := form.CanonicalJSON()
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/forms/"+digest, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, HTTPContentTypeJSON, r.Header.Get(HTTPHeaderAccept))
		assert.Equal(t, HTTPDefaultUserAgent, r.Header.Get(HTTPHeaderUserAgent))
		w.Header().Set("Content-Type", HTTPContentTypeJSON)
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/publishers/test/projects/test-form/publications/1e", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", HTTPContentTypeJSON)
		_, _ = w.Write([]byte(`{"publisher":"test","project":"test-form","edition":"1e","digest":"` + digest + `"}`))
	})
	mux.HandleFunc("/publishers/test/projects/broken/publications/1e", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	mux.HandleFunc("/forms/"+testDigest, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, digest
}

func TestNewHTTPFetcher(t *testing.T) {
	tests := []struct {
		name     string
		config   HTTPConfig
		expected string
	}{
		{"defaults", HTTPConfig{}, "https://api.commonform.org"},
		{"bare host", HTTPConfig{Host: "forms.example.com"}, "https://forms.example.com"},
		{"scheme override", HTTPConfig{Host: "localhost:8080", Scheme: "http"}, "http://localhost:8080"},
		{"full url", HTTPConfig{Host: "http://127.0.0.1:9000/api/"}, "http://127.0.0.1:9000/api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher, err := NewHTTPFetcher(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fetcher.BaseURL())
		})
	}

	t.Run("rejects unusable host", func(t *testing.T) {
		_, err := NewHTTPFetcher(HTTPConfig{Host: "http://"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgInvalidSource)
	})
}

func TestHTTPFetcher_FetchForm(t *testing.T) {
	form := nestedTestForm()
	server, digest := newTestFormServer(t, form)

	fetcher, err := NewHTTPFetcher(HTTPConfig{Host: server.URL})
	require.NoError(t, err)
	defer fetcher.Close()

	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		fetched, err := fetcher.FetchForm(ctx, digest)
		require.NoError(t, err)
		assert.Equal(t, form, fetched)
	})

	t.Run("not found", func(t *testing.T) {
		other := "0000000000000000000000000000000000000000000000000000000000000000"
		_, err := fetcher.FetchForm(ctx, other)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgFormNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := fetcher.FetchForm(ctx, testDigest)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgUnexpectedStatus)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("malformed digest is never sent", func(t *testing.T) {
		_, err := fetcher.FetchForm(ctx, "../publishers")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgInvalidDigest)
	})
}

func TestHTTPFetcher_FetchPublication(t *testing.T) {
	server, digest := newTestFormServer(t, nestedTestForm())

	fetcher, err := NewHTTPFetcher(HTTPConfig{Host: server.URL})
	require.NoError(t, err)
	defer fetcher.Close()

	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		pub, err := fetcher.FetchPublication(ctx, "test", "test-form", "1e")
		require.NoError(t, err)
		assert.Equal(t, digest, pub.Digest)
		assert.Equal(t, "test/test-form@1e", pub.Ref().String())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := fetcher.FetchPublication(ctx, "test", "missing", "1e")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgPublicationNotFound)
	})

	t.Run("invalid body", func(t *testing.T) {
		_, err := fetcher.FetchPublication(ctx, "test", "broken", "1e")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgInvalidResponse)
	})
}

func TestHTTPFetcher_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	fetcher, err := NewHTTPFetcher(HTTPConfig{Host: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = fetcher.FetchForm(context.Background(), testDigest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgFetchFailed)
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	fetcher, err := NewHTTPFetcher(HTTPConfig{Host: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = fetcher.FetchForm(ctx, testDigest)
	require.Error(t, err)
	assert.Zero(t, hits.Load())
}

func TestHTTPFetcher_Engine(t *testing.T) {
	form := &Form{Content: []Element{Text("Fetched over HTTP.")}}
	server, digest := newTestFormServer(t, form)

	engine, err := New(WithFetcher(openTestFetcher(t, FetcherDriverHTTP, server.URL)))
	require.NoError(t, err)

	out, err := engine.Execute(context.Background(), "A: (( "+digest+" ))", ".", nil)
	require.NoError(t, err)
	assert.Equal(t, "A: Fetched over HTTP.", out)
}

// openTestFetcher opens a fetcher through the registry and closes it
// when the test ends
func openTestFetcher(t *testing.T, driver, source string) FetcherCloser {
	t.Helper()
	fetcher, err := OpenFetcher(driver, source)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fetcher.Close() })
	return fetcher
}
