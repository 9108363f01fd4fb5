// Package shortener wraps the is.gd link shortening API.
package shortener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soaringjerry/teacheval/internal/metrics"
)

const DefaultEndpoint = "https://is.gd/create.php"

// IsGd calls create.php with format=simple, which answers with the short URL
// as plain text or with an "Error: ..." line.
type IsGd struct {
	endpoint string
	http     *http.Client
}

func NewIsGd(endpoint string, timeout time.Duration) *IsGd {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IsGd{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

func (s *IsGd) Shorten(ctx context.Context, longURL string) (string, error) {
	short, err := s.shorten(ctx, longURL)
	metrics.ObserveStore("shorten", err)
	return short, err
}

func (s *IsGd) shorten(ctx context.Context, longURL string) (string, error) {
	q := url.Values{}
	q.Set("format", "simple")
	q.Set("url", longURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("is.gd: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if err != nil {
		return "", fmt.Errorf("is.gd: read body: %w", err)
	}
	body := strings.TrimSpace(string(b))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("is.gd: status %d: %s", resp.StatusCode, body)
	}
	if body == "" || strings.Contains(body, "Error") {
		return "", fmt.Errorf("is.gd: %s", body)
	}
	return body, nil
}
