package shortener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShorten(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "simple", r.URL.Query().Get("format"))
		assert.Equal(t, "https://eval.example.edu/?teacher=X&exp=1", r.URL.Query().Get("url"))
		_, _ = w.Write([]byte("https://is.gd/Ab12\n"))
	}))
	defer srv.Close()

	short, err := NewIsGd(srv.URL, time.Second).Shorten(context.Background(), "https://eval.example.edu/?teacher=X&exp=1")
	require.NoError(t, err)
	assert.Equal(t, "https://is.gd/Ab12", short)
}

func TestShortenErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"error body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("Error: Please enter a valid URL to shorten"))
		},
		"bad status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusBadGateway)
		},
	}
	for name, h := range cases {
		srv := httptest.NewServer(h)
		_, err := NewIsGd(srv.URL, time.Second).Shorten(context.Background(), "x")
		srv.Close()
		assert.Error(t, err, name)
	}
}
