// Package transport sends authenticated requests to the DAM API and normalizes its errors.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzhttp"
)

const (
	defaultUserAgent = "go-damclient"

	// RequestIDHeader is set on every outgoing request.
	RequestIDHeader = "X-Request-ID"
)

// Doer is implemented by Client. Components depend on it so they can be tested without a server.
type Doer interface {
	Do(ctx context.Context, r *Request) (*Response, error)
}

// Params ...
type Params struct {
	BaseURL string
	// HTTPClient is the authenticated client requests are sent with.
	// If nil, an unauthenticated default client is used.
	HTTPClient *http.Client
	UserAgent  string
	// RetryMax overrides the retry count of the underlying retryable client when positive.
	RetryMax int
	// RetryWaitMax overrides the maximum backoff between retries when positive.
	RetryWaitMax time.Duration
}

// Client ...
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    *url.URL
	userAgent  string
	logger     log.Logger
}

// NewClient ...
func NewClient(params Params, logger log.Logger) (*Client, error) {
	if params.BaseURL == "" {
		return nil, fmt.Errorf("base URL is empty")
	}

	baseURL, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %s", params.BaseURL)
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}

	retryableClient := retryhttp.NewClient(logger)
	retryableClient.CheckRetry = createCustomRetryFunction(logger)
	// Keep the last response so non-2xx statuses survive exhausted retries.
	retryableClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryableClient.HTTPClient = decompressingClient(params.HTTPClient)
	if params.RetryMax > 0 {
		retryableClient.RetryMax = params.RetryMax
	}
	if params.RetryWaitMax > 0 {
		retryableClient.RetryWaitMax = params.RetryWaitMax
	}

	userAgent := params.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		httpClient: retryableClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		logger:     logger,
	}, nil
}

// Do sends the request and returns the fully read response.
// Any failure, including non-2xx statuses, is returned as *Error.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	endpoint := c.resolve(r.Path, r.Query)

	body, contentType, err := r.encodeBody()
	if err != nil {
		return nil, err
	}

	if r.NoRetry {
		ctx = withoutRetry(ctx)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, r.Method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, values := range r.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())

	c.logger.Debugf("%s %s", r.Method, redact(endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			c.closeBody(resp.Body)
		}
		return nil, &Error{Message: err.Error(), Err: err}
	}
	defer c.closeBody(resp.Body)

	data, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: readErr.Error(), Err: readErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, unwrapError(resp.StatusCode, data)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// StandardClient returns a plain *http.Client sharing the retry policy and authentication.
func (c *Client) StandardClient() *http.Client {
	return c.httpClient.StandardClient()
}

// BaseURL ...
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) resolve(path string, query url.Values) string {
	path = strings.TrimPrefix(path, "/")
	ref := &url.URL{Path: path}
	// Paths may carry escaped segments, e.g. ids containing a slash.
	if unescaped, err := url.PathUnescape(path); err == nil && unescaped != path {
		ref = &url.URL{Path: unescaped, RawPath: path}
	}
	u := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		q := u.Query()
		for k, values := range query {
			for _, v := range values {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Printf(err.Error())
	}
}

func decompressingClient(client *http.Client) *http.Client {
	var c http.Client
	if client != nil {
		c = *client
	}
	parent := c.Transport
	if parent == nil {
		parent = http.DefaultTransport
	}
	c.Transport = gzhttp.Transport(parent)
	return &c
}

func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	if u.RawQuery == "" {
		return u.String()
	}
	u.RawQuery = "..."
	return u.String()
}
