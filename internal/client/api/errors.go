package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError is returned when no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: no response from server: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthError is returned for 4xx responses. A 401 means the presented token
// is invalid or expired, anything else means the request itself was rejected.
type AuthError struct {
	Op     string
	Status int
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: request rejected with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: request rejected with status %d: %s", e.Op, e.Status, e.Detail)
}

func (e *AuthError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// ServerError is returned for 5xx and any other unexpected status.
type ServerError struct {
	Op     string
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: server failed with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: server failed with status %d: %s", e.Op, e.Status, e.Detail)
}

func IsUnauthorized(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Unauthorized()
}

func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

const maxDetail = 200

// errorDetail extracts a human readable message from an error body. The
// backend answers either {"detail": "..."} or field errors such as
// {"non_field_errors": ["..."]}.
func errorDetail(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		var detail string
		if raw, ok := obj["detail"]; ok && json.Unmarshal(raw, &detail) == nil {
			return detail
		}
		var list []string
		if raw, ok := obj["non_field_errors"]; ok && json.Unmarshal(raw, &list) == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxDetail {
		text = text[:maxDetail] + "..."
	}
	return text
}
