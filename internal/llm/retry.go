package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	maxRetries     = 3
	retryBaseDelay = 100 * time.Millisecond
)

// shouldRetry reports whether a request should be retried. Mirrors
// clients.DefaultShouldRetry: network errors, 5xx server errors, and 429.
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil || resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// doWithRetry executes an HTTP request with exponential backoff, rebuilding
// the request via newReq for each attempt. It performs up to maxRetries
// retries after the initial attempt.
func doWithRetry(ctx context.Context, client *http.Client, newReq func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	delay := retryBaseDelay
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if !shouldRetry(resp, err) {
			return resp, nil
		}
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = fmt.Errorf("unexpected status %s", resp.Status)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}
