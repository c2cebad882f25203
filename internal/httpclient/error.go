package httpclient

import (
	goerrors "errors"
	"fmt"
	"net/http"

	"github.com/flexprice/staffdesk/internal/errors"
)

// Error represents an HTTP client error
type Error struct {
	*errors.InternalError
	StatusCode int
	Response   []byte
}

func (e *Error) Unwrap() error {
	return e.InternalError.Unwrap()
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.InternalError.Code, e.StatusCode, truncate(e.Response, 256))
}

// NewError creates a new HTTP client error
func NewError(statusCode int, response []byte) *Error {
	return &Error{
		InternalError: errors.New(errors.ErrCodeTransport, "http client error"),
		StatusCode:    statusCode,
		Response:      response,
	}
}

// IsHTTPError checks if an error is an HTTP client error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if goerrors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is an HTTP 401 response
func IsUnauthorized(err error) bool {
	httpErr, ok := IsHTTPError(err)
	return ok && httpErr.StatusCode == http.StatusUnauthorized
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
