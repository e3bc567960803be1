package spotify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// DefaultRetries is the default number of retry attempts per request.
const DefaultRetries = 4

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

// apiRequest describes one upstream call. The body is held as bytes so
// retries can replay it.
type apiRequest struct {
	op          string
	method      string
	url         string
	body        []byte
	contentType string
}

// do executes a request under the governor with retries.
//
// Every attempt first waits for the governor, then observes the response
// back into it, so a 429 on any request holds all subsequent ones.
// Transient failures (5xx, network errors) retry with exponential backoff;
// rate limits retry after the governor's hold; other 4xx fail immediately.
func (c *Client) do(ctx context.Context, r apiRequest) ([]byte, error) {
	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + c.retries

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, newAPIError(ErrTransient, r.op, r.url, 0, err)
		}

		// Exponential backoff before retries (not before first attempt).
		// Rate-limit holds are waited out by the governor instead.
		if i > 0 && !errors.Is(lastErr, ErrRateLimited) {
			backoff := time.Duration(1<<uint(i-1)) * retryBaseDelay
			if backoff > retryMaxDelay {
				backoff = retryMaxDelay
			}
			backoff += time.Duration(rand.Int63n(int64(100 * time.Millisecond)))
			select {
			case <-ctx.Done():
				return nil, newAPIError(ErrTransient, r.op, r.url, 0, ctx.Err())
			case <-time.After(backoff):
			}
		}

		if err := c.governor.Wait(ctx); err != nil {
			return nil, newAPIError(ErrTransient, r.op, r.url, 0, err)
		}

		var body []byte
		body, lastErr = c.attempt(ctx, r)
		if lastErr == nil {
			return body, nil
		}
		if !Retriable(lastErr) {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("%s: failed after %d attempts: %w", r.op, attempts, lastErr)
}

// attempt performs a single HTTP exchange and classifies the outcome.
func (c *Client) attempt(ctx context.Context, r apiRequest) ([]byte, error) {
	var reader io.Reader
	if r.body != nil {
		reader = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, reader)
	if err != nil {
		return nil, newAPIError(ErrPermanent, r.op, r.url, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newAPIError(ErrTransient, r.op, r.url, 0, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	c.governor.Observe(resp.StatusCode, resp.Header)
	if c.metrics != nil {
		c.metrics.RecordRequest(resp.StatusCode)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, newAPIError(ErrTransient, r.op, r.url, resp.StatusCode, err)
		}
		return body, nil
	}

	kind := classifyStatus(resp.StatusCode)
	return nil, newAPIError(kind, r.op, r.url, resp.StatusCode,
		fmt.Errorf("unexpected status %d", resp.StatusCode))
}
