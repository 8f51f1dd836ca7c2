// Package client is the entry point of the DAM API: it wires authentication, the transport and
// the chunked uploader, and exposes the resource endpoints as methods.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/damkit/go-damclient/auth"
	"github.com/damkit/go-damclient/transport"
	"github.com/damkit/go-damclient/upload"
	"github.com/damkit/go-damclient/upload/chunkuploader"
)

// ErrMissingParameter is wrapped by the *upload.ValidationError returned when a required argument is empty.
var ErrMissingParameter = errors.New("parameter is required")

// Object is a JSON object returned by endpoints without a fixed schema.
type Object map[string]interface{}

// Config ...
type Config struct {
	// BaseURL is the API root of the portal, e.g. https://portal.example.com/api/.
	BaseURL string
	// Auth holds the credentials. Its BaseURL defaults to BaseURL.
	Auth auth.Config
	// HTTPClient is the base client requests are sent with. Authentication is added on top of it.
	HTTPClient *http.Client
	UserAgent  string

	RetryMax     int
	RetryWaitMax time.Duration

	Upload chunkuploader.Config
	// Observer receives upload and chunk outcomes. Optional.
	Observer upload.Observer
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		HTTPClient:   &http.Client{Timeout: 5 * time.Minute},
		RetryMax:     3,
		RetryWaitMax: 30 * time.Second,
		Upload:       chunkuploader.DefaultConfig(),
	}
}

// Client is safe for concurrent use.
type Client struct {
	auth     *auth.Authenticator
	api      *transport.Client
	uploader *upload.Uploader
	download *http.Client
	logger   log.Logger
}

// New ...
func New(config Config, logger log.Logger) (*Client, error) {
	if config.Auth.BaseURL == "" {
		config.Auth.BaseURL = config.BaseURL
	}

	authenticator, err := auth.NewAuthenticator(config.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("configure authentication: %w", err)
	}

	api, err := transport.NewClient(transport.Params{
		BaseURL:      config.BaseURL,
		HTTPClient:   authenticator.HTTPClient(config.HTTPClient),
		UserAgent:    config.UserAgent,
		RetryMax:     config.RetryMax,
		RetryWaitMax: config.RetryWaitMax,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("configure transport: %w", err)
	}

	// Download URLs are pre-signed and must not carry the API credentials.
	downloadClient := retryhttp.NewClient(logger)
	if config.HTTPClient != nil {
		downloadClient.HTTPClient = config.HTTPClient
	}

	return &Client{
		auth:     authenticator,
		api:      api,
		uploader: upload.NewUploader(api, config.Upload, logger, config.Observer),
		download: downloadClient.StandardClient(),
		logger:   logger,
	}, nil
}

// Auth returns the authenticator, used to run the OAuth2 authorization code flow.
func (c *Client) Auth() *auth.Authenticator {
	return c.auth
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.api.Do(ctx, &transport.Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return resp.DecodeJSON(out)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	if form == nil {
		form = url.Values{}
	}
	resp, err := c.api.Do(ctx, &transport.Request{Method: http.MethodPost, Path: path, Form: form})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.DecodeJSON(out)
}

func (c *Client) delete(ctx context.Context, path string, query url.Values) error {
	_, err := c.api.Do(ctx, &transport.Request{Method: http.MethodDelete, Path: path, Query: query})
	return err
}

func required(params ...string) error {
	for i := 0; i+1 < len(params); i += 2 {
		if params[i+1] == "" {
			return &upload.ValidationError{Field: params[i], Err: ErrMissingParameter}
		}
	}
	return nil
}

func cloneValues(values url.Values) url.Values {
	clone := url.Values{}
	for k, v := range values {
		clone[k] = append([]string(nil), v...)
	}
	return clone
}

// jsonField encodes v into the "data" form field some endpoints expect their payload in.
func jsonField(v interface{}) (url.Values, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}
	return url.Values{"data": {string(data)}}, nil
}
