package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "example.com", want: "https://example.com"},
		{in: "  example.com/path?q=1 ", want: "https://example.com/path?q=1"},
		{in: "http://example.com", want: "http://example.com"},
		{in: "HTTPS://Example.com/a", want: "https://Example.com/a"},
		{in: "//cdn.example.com/x", want: "https://cdn.example.com/x"},
		{in: "", wantErr: true},
		{in: "ftp://example.com", wantErr: true},
		{in: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				var fe *FetchError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, KindInvalidURL, fe.Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetch_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><title>Hello</title></html>"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "TestAgent/1.0"}, nil)
	snap, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "TestAgent/1.0", gotUA)
	assert.Equal(t, http.StatusOK, snap.StatusCode)
	assert.Contains(t, snap.RawHTML, "<title>Hello</title>")
	assert.False(t, snap.FetchedAt.IsZero())
	assert.Equal(t, len("<html><title>Hello</title></html>"), snap.Size)
	assert.Positive(t, snap.LoadTime)
}

func TestFetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 101)))
	}))
	defer srv.Close()

	_, err := New(Config{MaxBodyBytes: 100}, nil).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindBody, fe.Kind)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.Equal(t, "the page is too large to analyze", fe.Reason())

	snap, err := New(Config{MaxBodyBytes: 101}, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 101, snap.Size)
}

func TestFetch_DecodesDeclaredCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<p>caf\xe9</p>"))
	}))
	defer srv.Close()

	snap, err := New(Config{}, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>café</p>", snap.RawHTML)
}

func TestFetch_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	snap, err := New(Config{}, nil).Fetch(context.Background(), srv.URL)
	assert.Nil(t, snap)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindHTTPStatus, fe.Kind)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Contains(t, fe.Reason(), "404")
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	_, err := New(Config{Timeout: 50 * time.Millisecond}, nil).Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTimeout, fe.Kind)
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(Config{}, nil).Fetch(context.Background(), addr)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindConnection, fe.Kind)
}

func TestFetch_TooManyRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/loop", http.StatusFound)
	}))
	defer srv.Close()

	_, err := New(Config{MaxRedirects: 2}, nil).Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindRedirects, fe.Kind)
	assert.True(t, errors.Is(err, ErrTooManyRedirects))
}

func TestFetch_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<h1>moved</h1>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	snap, err := New(Config{}, nil).Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/old", snap.URL)
	assert.Equal(t, srv.URL+"/new", snap.FinalURL)
}
