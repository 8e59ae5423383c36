// Package transport issues the JSON requests the message board API expects
// and normalizes every failure into an error carrying display text.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// GenericFailure is shown when neither the server nor the network gave us a
// usable message.
const GenericFailure = "Something went wrong, please try again."

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrUnreachable wraps network-level failures (DNS, refused connections,
// timeouts, undecodable bodies).
var ErrUnreachable = errors.New("transport: request did not complete")

// Request describes one call against the API. Path is relative to the
// client's base URL. Body, when non-nil, is encoded as JSON.
type Request struct {
	Method string
	Path   string
	Body   any
	Token  string
}

// Response is a completed 2xx exchange.
type Response struct {
	StatusCode int
	Body       []byte
	RequestID  string
}

// StatusError is returned for non-2xx responses. Message is the body's
// "message" field when present, otherwise GenericFailure.
type StatusError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Message returns the human-readable text for err, suitable for an error
// banner.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return GenericFailure
}

// Client talks to the API rooted at a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Tests use it to stub
// the round tripper.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New returns a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "msgkit",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req. It returns a *StatusError for non-2xx responses and an
// error wrapping ErrUnreachable when no response was received.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	endpoint, err := url.JoinPath(c.baseURL, req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url: %v", ErrUnreachable, err)
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := sonic.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	log.Debug("sending request", "method", req.Method, "url", endpoint, "request_id", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("request failed", "method", req.Method, "url", endpoint, "request_id", requestID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}

	log.Debug("received response", "status", resp.StatusCode, "request_id", requestID, "bytes", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
			RequestID:  requestID,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		RequestID:  requestID,
	}, nil
}

// errorMessage pulls the "message" string out of a failure body.
func errorMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return GenericFailure
	}
	msg := gjson.GetBytes(body, "message")
	if msg.Type != gjson.String || msg.String() == "" {
		return GenericFailure
	}
	return msg.String()
}
