package transport

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error is returned for network level failures (StatusCode 0) and non-2xx responses.
type Error struct {
	StatusCode int
	Message    string
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// errorBody covers the error shapes returned by the different API versions.
type errorBody struct {
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func unwrapError(statusCode int, body []byte) error {
	message := strings.TrimSpace(string(body))

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			message = parsed.Message
		case parsed.ErrorDescription != "":
			message = parsed.ErrorDescription
		case parsed.Error != "":
			message = parsed.Error
		}
	}

	return &Error{
		StatusCode: statusCode,
		Message:    message,
		Body:       body,
	}
}
