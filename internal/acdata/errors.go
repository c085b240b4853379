package acdata

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrNoSession is returned by callers when sign-in succeeded without setting
// the session cookie.
var ErrNoSession = errors.New("acdata: sign-in response did not include a session cookie")

// AuthenticationError reports a sign-in attempt that did not return 201.
type AuthenticationError struct {
	Status  int
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("unexpected response to login: %d %s", e.Status, e.Message)
}

// APIError reports an authorized call that returned an unexpected status.
type APIError struct {
	Status   int
	Message  string
	Endpoint string
	Body     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("unexpected response to %s: %d %s", e.Endpoint, e.Status, e.Message)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsUnauthorized reports whether err is an APIError caused by a rejected or
// expired session.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

const maxErrorBody = 512

func statusMessage(resp *http.Response) string {
	msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}

func errorBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return text
}
