package notionapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is an error response from the API.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error (status %d, code %s): %s", e.Status, e.Code, e.Message)
}

// IsRetryable reports whether the request may succeed when sent again.
func (e *APIError) IsRetryable() bool {
	return e.Status == http.StatusTooManyRequests ||
		e.Status == http.StatusConflict ||
		e.Status >= 500
}

// IsNotFound reports whether err is an API error for a missing object.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// decodeAPIError builds an APIError from an error response. Bodies that are
// not in the API's error shape are kept as the message.
func decodeAPIError(status int, requestID string, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr = &APIError{Message: string(body)}
	}
	apiErr.Status = status
	if apiErr.RequestID == "" {
		apiErr.RequestID = requestID
	}
	return apiErr
}
