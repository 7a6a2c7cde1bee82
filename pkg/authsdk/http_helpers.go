package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBodySize bounds every response body the client reads.
const maxBodySize = 1 << 20

// doRequest performs a request with the WebAuth's HTTP client. rawURL is an
// absolute endpoint URL.
func (w *WebAuth) doRequest(
	ctx context.Context,
	client *http.Client,
	method, rawURL string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// noRedirectClient shares the cookie jar and transport of w.HTTPClient but
// hands 3xx responses back to the caller.
func (w *WebAuth) noRedirectClient() *http.Client {
	return &http.Client{
		Transport: w.HTTPClient.Transport,
		Jar:       w.HTTPClient.Jar,
		Timeout:   w.HTTPClient.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// readBody reads and closes resp.Body.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return b, nil
}

// decodeJSON decodes a JSON response into target. Any status other than
// expectedStatus is returned as an *OAuth2Error.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	bodyBytes, err := readBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode != expectedStatus {
		if err := parseErrorResponse(resp, bodyBytes); err != nil {
			return err
		}
		return invalidResponse("unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// parseBearerChallenge extracts error and error_description from a
// WWW-Authenticate: Bearer header.
func parseBearerChallenge(h string) (code, desc string) {
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", ""
	}
	for _, part := range strings.Split(h[7:], ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		v = strings.Trim(v, `"`)
		switch k {
		case "error":
			code = v
		case "error_description":
			desc = v
		}
	}
	return code, desc
}
