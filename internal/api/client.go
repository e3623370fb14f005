// Package api is the typed client for the admin-suite REST API. It
// owns the wire contract only; transition legality is decided by the
// status package before anything is sent.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TokenSource supplies the bearer credential per request, so a
// re-login mid-session is picked up without rebuilding the client.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed-string TokenSource, used before a session
// exists (login) and in tests.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// Client is a thin HTTP client for the admin-suite API. It handles
// Bearer authentication, the JSON response envelope, and rate-limit
// backoff on idempotent reads. Mutating calls are never retried:
// transition operations are not safely idempotent across partial
// failures, so retries are the caller's decision.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. https://admin.corp.example.com/api).
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

// get performs a GET and unmarshals the envelope data, retrying on 429.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result, true)
}

// post performs a POST with an optional JSON body, single attempt.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result, false)
}

// patch performs a PATCH with a JSON body, single attempt.
func (c *Client) patch(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPatch, path, body, result, false)
}

// do builds the request, handles auth, the response envelope, and
// error classification. result, when non-nil, receives the envelope's
// data field.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
	retriable bool,
) error {
	url := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	attempts := 1
	if retriable {
		attempts = c.maxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		if c.tokens != nil {
			if token := c.tokens.Token(); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests && retriable {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = &Error{
				Kind:       KindTransport,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("rate limited on %s %s", method, path),
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return errorFromResponse(resp.StatusCode, respBody, method, path)
		}

		var env envelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}
		if env.Code != 0 {
			return &Error{
				Kind:       KindValidation,
				StatusCode: resp.StatusCode,
				Message:    env.Message,
			}
		}

		if result == nil {
			return nil
		}
		// Most endpoints wrap their payload in the envelope's data
		// field; /auth/login replies with a bare object. An empty data
		// field falls back to decoding the body directly.
		if len(env.Data) == 0 || string(env.Data) == "null" {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
			}
			return nil
		}
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("unmarshaling data from %s %s: %w", method, path, err)
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// errorFromResponse builds a classified *Error from a non-2xx response,
// preferring the envelope's message when the body parses.
func errorFromResponse(statusCode int, body []byte, method, path string) error {
	message := fmt.Sprintf("unexpected status on %s %s", method, path)

	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		message = env.Message
		if len(env.Errors) > 0 {
			message += ": " + strings.Join(env.Errors, "; ")
		}
	}

	return &Error{
		Kind:       kindForStatus(statusCode),
		StatusCode: statusCode,
		Message:    message,
	}
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
