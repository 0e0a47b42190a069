package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSessionExpired is returned when a 401 could not be cured by refreshing
// the access token. The stored session has been cleared.
var ErrSessionExpired = errors.New("session expired, please login again")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string { return e.Message }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// ErrorMessage turns an error body into one readable line. A string detail
// wins, then a list of field errors rendered "loc.path: msg", then any other
// detail as JSON, then a message field, then the whole body as JSON.
func ErrorMessage(status int, body []byte) string {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Sprintf("Request failed with status %d", status)
	}
	switch b := v.(type) {
	case string:
		return b
	case map[string]interface{}:
		if d, ok := b["detail"]; ok && truthy(d) {
			return detailMessage(d)
		}
		if m, ok := b["message"]; ok && truthy(m) {
			if s, ok := m.(string); ok {
				return s
			}
			return compact(m)
		}
	}
	return compact(v)
}

func detailMessage(d interface{}) string {
	switch dt := d.(type) {
	case string:
		return dt
	case []interface{}:
		parts := make([]string, 0, len(dt))
		for _, item := range dt {
			parts = append(parts, fieldError(item))
		}
		return strings.Join(parts, ", ")
	}
	return compact(d)
}

func fieldError(item interface{}) string {
	field, msg := "unknown", "validation error"
	m, ok := item.(map[string]interface{})
	if !ok {
		return field + ": " + msg
	}
	if loc, ok := m["loc"].([]interface{}); ok {
		segs := make([]string, len(loc))
		for i, s := range loc {
			segs[i] = fmt.Sprint(s)
		}
		field = strings.Join(segs, ".")
	}
	if s, ok := m["msg"].(string); ok && s != "" {
		msg = s
	}
	return field + ": " + msg
}

// truthy mirrors how a JSON consumer tests a field for presence.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	}
	return true
}

func compact(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
