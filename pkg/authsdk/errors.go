package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/authsession/pkg/httpx"
)

// ============================================================================
// OAuth2 / OIDC Error Codes
// ============================================================================

const (
	// RFC 6749
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeUnauthorizedClient      = "unauthorized_client"
	ErrorCodeAccessDenied            = "access_denied"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeServerError             = "server_error"

	// RFC 6750
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeInsufficientScope = "insufficient_scope"

	// OpenID Connect Core, section 3.1.2.6
	ErrorCodeLoginRequired       = "login_required"
	ErrorCodeConsentRequired     = "consent_required"
	ErrorCodeInteractionRequired = "interaction_required"

	// Client-side outcomes that never come from the provider.
	ErrorCodeInvalidHash     = "invalid_hash"
	ErrorCodeInvalidResponse = "invalid_response"
)

// ============================================================================
// OAuth2Error
// ============================================================================

// OAuth2Error is an OAuth2 error response. The provider writes it with
// WriteError and the client turns responses and fragments back into it.
type OAuth2Error struct {
	// StatusCode is the HTTP status, or 0 when the error came from a fragment.
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// ErrorCode reports the machine-readable code. session.IsLoginRequired
// relies on it.
func (e *OAuth2Error) ErrorCode() string { return e.Code }

// Is matches any OAuth2Error with the same code, so
// errors.Is(err, ErrLoginRequired) works for server-built errors too.
func (e *OAuth2Error) Is(target error) bool {
	t, ok := target.(*OAuth2Error)
	return ok && t.Code == e.Code
}

// WriteError writes e as a JSON response.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	status := e.StatusCode
	if status == 0 {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	ErrInvalidRequest = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrUnauthorizedClient = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnauthorizedClient,
		Description: "the client is not allowed to use this redirect uri",
	}

	ErrUnsupportedResponseType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedResponseType,
		Description: "response type not supported",
	}

	ErrAccessDenied = &OAuth2Error{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "access denied",
	}

	ErrServerError = &OAuth2Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	ErrInvalidToken = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is missing, invalid or expired",
	}

	// ErrLoginRequired is what a silent check yields when the user has no
	// provider session.
	ErrLoginRequired = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeLoginRequired,
		Description: "login required",
	}

	ErrInvalidHash = &OAuth2Error{
		Code:        ErrorCodeInvalidHash,
		Description: "the callback fragment does not contain an authentication result",
	}
)

// NewOAuth2Error creates an OAuth2Error with a custom description.
func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

func invalidHash(description string) *OAuth2Error {
	return NewOAuth2Error(0, ErrorCodeInvalidHash, description)
}

func invalidResponse(format string, args ...any) *OAuth2Error {
	return NewOAuth2Error(0, ErrorCodeInvalidResponse, fmt.Sprintf(format, args...))
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into an *OAuth2Error. It returns
// nil for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// RFC 6750 puts the error in the challenge when the body is empty.
	if code, desc := parseBearerChallenge(resp.Header.Get("WWW-Authenticate")); code != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        code,
			Description: desc,
		}
	}

	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
