package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeForm   = "application/x-www-form-urlencoded"
	contentTypeBinary = "application/octet-stream"
)

// Request describes a single call against the API. Path is relative to the client's base URL.
// At most one of Form, JSON and Body is used as the request body, in that order.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	JSON   interface{}
	Body   []byte
	Header http.Header

	// NoRetry disables the transport level retry policy for this request.
	// Used where the caller implements its own attempt accounting.
	NoRetry bool
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v interface{}) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (r *Request) encodeBody() (io.Reader, string, error) {
	switch {
	case r.Form != nil:
		return strings.NewReader(r.Form.Encode()), contentTypeForm, nil
	case r.JSON != nil:
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode request: %w", err)
		}
		return bytes.NewReader(data), contentTypeJSON, nil
	case r.Body != nil:
		return bytes.NewReader(r.Body), contentTypeBinary, nil
	}
	return nil, "", nil
}
