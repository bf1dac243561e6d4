// Package httpclient is the single HTTP client used for every outbound call.
// It applies one retry policy: fixed attempts, constant backoff, transient
// failures only.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxAttempts    int
	Backoff        time.Duration
	Timeout        time.Duration
	ConnectTimeout time.Duration
}

type Client struct {
	httpClient *http.Client
	policy     Policy
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError is returned for any non-2xx response after retries are spent.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed: %d - %s", e.StatusCode, e.Body)
}

func New(policy Policy) *Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	dialer := &net.Dialer{Timeout: policy.ConnectTimeout}
	return &Client{
		httpClient: &http.Client{
			Timeout: policy.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: policy.ConnectTimeout,
				MaxIdleConnsPerHost: 4,
			},
		},
		policy: policy,
	}
}

// Do sends the request, retrying transport errors, 429 and 5xx responses.
// Other 4xx responses fail immediately.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	var out *Response

	op := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("failed to make request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return serr
			}
			return backoff.Permanent(serr)
		}

		out = &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.policy.Backoff), uint64(c.policy.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return out, nil
}

// Pause waits d between calls, returning early if ctx is done.
func Pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
