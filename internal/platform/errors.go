package platform

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ValidationError signals malformed caller input (missing credential fields,
// bad payloads). Maps to a 4xx at the API boundary.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError creates a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError signals a missing local entity (client, credential). Vendor
// 404s are NOT errors; adapters normalize those to an absent return value.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// PlatformError is any vendor call failure other than a rate limit.
type PlatformError struct {
	Platform   string
	Operation  string
	Message    string
	StatusCode int
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Platform, e.Operation, e.Message)
}

// NewPlatformError creates a PlatformError without a transport status.
func NewPlatformError(platform, operation, message string) *PlatformError {
	return &PlatformError{Platform: platform, Operation: operation, Message: message}
}

// RateLimitError is a vendor 429. RetryAfter is the vendor's hint in seconds,
// 0 when the vendor gave none.
type RateLimitError struct {
	Platform   string
	Operation  string
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s %s rate limited, retry after %ds", e.Platform, e.Operation, e.RetryAfter)
	}
	return fmt.Sprintf("%s %s rate limited", e.Platform, e.Operation)
}

// ClassifyResponse turns a non-2xx vendor response into the right error:
// 429 becomes *RateLimitError carrying the Retry-After hint, everything else
// becomes *PlatformError with a message extracted from whatever shape the
// vendor's error body takes.
func ClassifyResponse(platform, operation string, resp *http.Response, body []byte) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Platform:   platform,
			Operation:  operation,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return &PlatformError{
		Platform:   platform,
		Operation:  operation,
		Message:    extractErrorMessage(body, resp.StatusCode),
		StatusCode: resp.StatusCode,
	}
}

func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs >= 0 {
		return secs
	}
	return 0
}

// extractErrorMessage digs a human-readable message out of a vendor error
// body. Vendors disagree on shape: {"error": "..."}, {"message": "..."},
// {"detail": "..."}, {"title": "..."}, {"errors": [{"message"|"detail": ...}]}
// all occur. Falls back to the raw body, truncated.
func extractErrorMessage(body []byte, statusCode int) string {
	var envelope map[string]interface{}
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, key := range []string{"error", "message", "detail", "title"} {
			if s, ok := envelope[key].(string); ok && s != "" {
				return s
			}
		}
		if errs, ok := envelope["errors"].([]interface{}); ok && len(errs) > 0 {
			switch first := errs[0].(type) {
			case string:
				return first
			case map[string]interface{}:
				for _, key := range []string{"message", "detail", "error", "title"} {
					if s, ok := first[key].(string); ok && s != "" {
						return s
					}
				}
			}
		}
		// {"error": {"message": "..."}} nesting
		if inner, ok := envelope["error"].(map[string]interface{}); ok {
			if s, ok := inner["message"].(string); ok && s != "" {
				return s
			}
		}
	}

	raw := strings.TrimSpace(string(body))
	if len(raw) > 200 {
		raw = raw[:200]
	}
	if raw == "" {
		return fmt.Sprintf("HTTP %d", statusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", statusCode, raw)
}
