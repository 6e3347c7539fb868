package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// The classic NVP endpoint wants this exact content type; sending
// x-www-form-urlencoded makes PayPal re-decode the unescaped payload.
const contentType = "text/namevalue; charset=utf-8"

// Error is a transport-level failure: the processor could not be reached or
// answered outside the success range. It is always fatal to the current call.
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("paypal unreachable: %v", e.Err)
	}
	return fmt.Sprintf("paypal returned HTTP %d", e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Response is the outcome of one round trip. Elapsed is recorded whether or
// not the call succeeded so the ledger can always store a latency.
type Response struct {
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}

// Client issues one blocking POST per gateway operation. It performs no
// retries; retry policy belongs to callers. One Client is shared across
// buyer sessions, so Post must not mutate it.
type Client struct {
	URL  string
	HTTP *http.Client
}

// NewClient returns a Client with the default 30s timeout.
func NewClient(url string) *Client {
	return &Client{URL: url, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) Post(ctx context.Context, body []byte) (Response, error) {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return Response{}, &Error{Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	res, err := httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Response{Elapsed: elapsed}, &Error{Err: err}
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	elapsed = time.Since(start)
	if err != nil {
		return Response{StatusCode: res.StatusCode, Elapsed: elapsed}, &Error{Err: err}
	}

	out := Response{StatusCode: res.StatusCode, Body: respBody, Elapsed: elapsed}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return out, &Error{StatusCode: res.StatusCode}
	}
	return out, nil
}
