package session

import "errors"

// CodeLoginRequired is the provider error code for "no active session".
const CodeLoginRequired = "login_required"

var (
	ErrNoProvider        = errors.New("session: provider is required")
	ErrProviderFactory   = errors.New("session: build provider")
	ErrInvalidProperties = errors.New("session: invalid properties")
	ErrEmptyResult       = errors.New("session: provider returned no result")
)

// coder is implemented by provider errors that carry an OAuth error code.
type coder interface {
	ErrorCode() string
}

// ErrorCode returns the OAuth error code carried by err, or "" when the
// error chain has none.
func ErrorCode(err error) string {
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// IsLoginRequired reports whether err is the provider's "login_required"
// outcome.
func IsLoginRequired(err error) bool {
	return ErrorCode(err) == CodeLoginRequired
}
