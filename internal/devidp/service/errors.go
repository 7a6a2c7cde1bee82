package service

import "errors"

var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrRedirectURIMismatch     = errors.New("redirect_uri_mismatch")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrInvalidAudience         = errors.New("invalid_audience")
	ErrInvalidCredentials      = errors.New("invalid_credentials")
	ErrLoginRequired           = errors.New("login_required")
)

// RedirectError is an authorize failure that may be reported to the client
// through its redirect URI, which has already been validated.
type RedirectError struct {
	Err         error
	RedirectURI string
	State       string
}

func (e *RedirectError) Error() string { return e.Err.Error() }
func (e *RedirectError) Unwrap() error { return e.Err }
