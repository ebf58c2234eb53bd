package apigee

import (
	"encoding/json"
	"fmt"
)

// TransportError reports a request that never produced an HTTP response.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError reports a response with an unexpected status code. Body holds the
// decoded JSON payload, the raw text when it was not JSON, or nil when empty.
type APIError struct {
	Operation  string
	StatusCode int
	Body       any
}

func (e *APIError) Error() string {
	payload, err := json.Marshal(struct {
		StatusCode int `json:"statusCode"`
		Body       any `json:"body,omitempty"`
	}{e.StatusCode, e.Body})
	if err != nil {
		return fmt.Sprintf("%s: API returned status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: API returned %s", e.Operation, payload)
}

// decodeBody parses a response payload for error reporting.
func decodeBody(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	return v
}
