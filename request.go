package gcontacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// StatusError is returned when the API answers with a status code outside
// [200, 300). The response body is discarded.
type StatusError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d, %s", http.StatusText(e.StatusCode), e.StatusCode, ErrStatus)
}

// Unwrap makes [ErrStatus] and, for 429 responses, [ErrRateLimit] matchable
// with [errors.Is].
func (e *StatusError) Unwrap() []error {
	if e.StatusCode == http.StatusTooManyRequests {
		return []error{ErrStatus, ErrRateLimit}
	}
	return []error{ErrStatus}
}

// resolve turns an absolute path, optionally carrying a query, into a URL
// on the given base.
func resolve(base *url.URL, path string) (*url.URL, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}

	return base.ResolveReference(rel), nil
}

// newRequest creates a new HTTP request.
func (c *Client) newRequest(
	ctx context.Context,
	method string,
	u *url.URL,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

// authorize attaches the current bearer token to the request.
func (c *Client) authorize(req *http.Request) error {
	c.auth.Lock()
	token := c.auth.token
	c.auth.Unlock()

	if token == "" {
		return ErrNoAccessToken
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// doJSON executes the request and decodes the buffered JSON response.
func (c *Client) doJSON(req *http.Request, v any) error {
	body, err := c.do(req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w, %w", err, ErrDecode)
	}

	return nil
}

// do executes the request and returns the full response body.
// Failed requests are never retried.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		if err := c.handleRetryAfter(resp.Header.Get("Retry-After")); err != nil {
			c.logger.Warn("rate limited without usable retry hint", zap.Error(err))
		} else {
			c.logger.Warn("rate limited", zap.Time("retry_after", c.retryAfterTime()))
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return body, nil
}

// wait checks if the client is currently rate-limited.
// If so, it blocks until the reset time or until the context is canceled.
func (c *Client) wait(ctx context.Context) error {
	waitUntil := c.retryAfterTime()

	if time.Now().After(waitUntil) {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Until(waitUntil)):
		return nil
	}
}

func (c *Client) retryAfterTime() time.Time {
	c.retryAfterMU.Lock()
	defer c.retryAfterMU.Unlock()

	return c.retryAfter
}

// handleRetryAfter updates the client's retry-after timestamp based on the
// value of a Retry-After header, given either as delay seconds or as an
// HTTP date.
func (c *Client) handleRetryAfter(header string) error {
	if header == "" {
		return fmt.Errorf("missing Retry-After header")
	}

	var t time.Time
	if secs, err := strconv.ParseInt(header, 10, 64); err == nil {
		if secs < 0 {
			return fmt.Errorf("invalid Retry-After header %q: negative delay", header)
		}
		t = time.Now().Add(time.Duration(secs) * time.Second)
	} else {
		t, err = http.ParseTime(header)
		if err != nil {
			return fmt.Errorf("invalid Retry-After header %q: %w", header, err)
		}
	}

	c.retryAfterMU.Lock()
	defer c.retryAfterMU.Unlock()

	if t.After(c.retryAfter) {
		c.retryAfter = t
	}

	return nil
}
