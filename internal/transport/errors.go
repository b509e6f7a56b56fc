package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
)

// HTTPError is returned for any non-2xx response. Detail carries the
// structured validation list when the server sent one; Message carries a
// plain-text detail or a generic status description.
type HTTPError struct {
	Status  int
	Detail  []model.ValidationIssue
	Message string
}

func (e *HTTPError) Error() string {
	if len(e.Detail) > 0 {
		return fmt.Sprintf("http %d: %s", e.Status, e.Detail[0].String())
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// FirstMessage returns the first structured message, falling back to the
// plain-text detail. It returns "" when the server gave neither.
func (e *HTTPError) FirstMessage() string {
	if len(e.Detail) > 0 {
		return e.Detail[0].Msg
	}
	if e.Message != http.StatusText(e.Status) {
		return e.Message
	}
	return ""
}

// NetworkError is returned when the request never produced a response:
// connection failures, timeouts and cancellation.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// errorBody covers both error shapes the API produces:
// {"detail": [...]} for validation and {"detail": "text"} otherwise.
// {"error": "text"} is accepted for proxies in front of the API.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}

func parseHTTPError(status int, body []byte) *HTTPError {
	he := &HTTPError{Status: status, Message: http.StatusText(status)}
	if he.Message == "" {
		he.Message = fmt.Sprintf("status %d", status)
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return he
	}
	detail := strings.TrimSpace(string(eb.Detail))
	switch {
	case strings.HasPrefix(detail, "["):
		var issues []model.ValidationIssue
		if err := json.Unmarshal(eb.Detail, &issues); err == nil {
			he.Detail = issues
		}
	case strings.HasPrefix(detail, `"`):
		var msg string
		if err := json.Unmarshal(eb.Detail, &msg); err == nil && msg != "" {
			he.Message = msg
		}
	case eb.Error != "":
		he.Message = eb.Error
	}
	return he
}
