package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes bounds responses read by HTTPRequester.
const maxBodyBytes = 1 << 20

// Requester is the network primitive the feed depends on.
type Requester interface {
	Request(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, url string, timeout time.Duration) ([]byte, error)

func (f RequesterFunc) Request(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	return f(ctx, url, timeout)
}

// HTTPRequester performs GET requests with net/http.
type HTTPRequester struct {
	Client    *http.Client
	UserAgent string
}

func (h HTTPRequester) Request(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if url == "" {
		return nil, errors.New("no url configured")
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
