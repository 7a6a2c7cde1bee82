package authsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// ErrNoNavigator is returned by Authorize and Logout when the client was built
// without WithNavigator.
var ErrNoNavigator = errors.New("authsdk: no navigator configured")

// Navigator performs the full-page redirect of a browser: it takes the user
// to url and returns once the hand-off has happened.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Navigate(ctx context.Context, url string) error { return f(ctx, url) }

type noNavigator struct{}

func (noNavigator) Navigate(context.Context, string) error { return ErrNoNavigator }

// WriterNavigator prints the URL for the user to open.
type WriterNavigator struct {
	W io.Writer
}

func (n WriterNavigator) Navigate(_ context.Context, url string) error {
	_, err := fmt.Fprintln(n.W, url)
	return err
}

// NewSessionClient returns an HTTP client with its own cookie jar, which
// holds the provider session between calls. Share it between a WebAuth and
// an HTTPNavigator so a headless login is visible to CheckSession.
func NewSessionClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}, nil
}

// HTTPNavigator drives the hosted login without a browser. It requests the
// URL, submits Username and Password when the provider answers with its
// login form, and stores the fragment of the final redirect in Callback.
// Redirects without a fragment end the navigation.
type HTTPNavigator struct {
	Client   *http.Client
	Callback *Callback

	Username string
	Password string
}

func (n *HTTPNavigator) Navigate(ctx context.Context, rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse navigation URL: %w", err)
	}

	resp, err := n.send(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	done, err := n.capture(resp)
	if done || err != nil {
		return err
	}

	// A 200 on an authorize URL is the login form.
	if !target.Query().Has("response_type") {
		return nil
	}
	if n.Username == "" {
		return NewOAuth2Error(http.StatusUnauthorized, ErrorCodeLoginRequired,
			"the provider asked for credentials and none were configured")
	}

	form := target.Query()
	form.Set("username", n.Username)
	form.Set("password", n.Password)
	target.RawQuery = ""
	target.Fragment = ""

	resp, err = n.send(ctx, http.MethodPost, target.String(), form)
	if err != nil {
		return err
	}
	done, err = n.capture(resp)
	if err != nil {
		return err
	}
	if !done {
		return invalidResponse("login form submission did not redirect")
	}
	return nil
}

func (n *HTTPNavigator) send(ctx context.Context, method, rawURL string, form url.Values) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := n.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// capture consumes resp. It reports done for any redirect, storing its
// fragment when there is one, and converts error statuses into errors.
func (n *HTTPNavigator) capture(resp *http.Response) (bool, error) {
	body, err := readBody(resp)
	if err != nil {
		return false, err
	}

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Header.Get("Location")
		if location == "" {
			return true, invalidResponse("redirect response missing Location header")
		}
		if strings.Contains(location, "#") && n.Callback != nil {
			n.Callback.Set(location)
		}
		return true, nil
	case resp.StatusCode >= 400:
		return false, parseErrorResponse(resp, body)
	default:
		return false, nil
	}
}

func (n *HTTPNavigator) client() *http.Client {
	base := n.Client
	if base == nil {
		base = http.DefaultClient
	}
	return &http.Client{
		Transport: base.Transport,
		Jar:       base.Jar,
		Timeout:   base.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
