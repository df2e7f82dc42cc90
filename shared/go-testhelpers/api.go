package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"

	"github.com/stretchr/testify/require"
)

// BuildAuthRequest builds a JSON request carrying jwtString as a bearer
// token. An empty jwtString sends the request anonymously.
func (h *TestHelper) BuildAuthRequest(method, reqURL, jwtString string, body any) *http.Request {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.T, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, reqURL, reader)
	require.NoError(h.T, err)
	if jwtString != "" {
		req.Header.Set("Authorization", "Bearer "+jwtString)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// NewHTTPClient creates an HTTP client with a cookie jar that does not
// follow redirects, so redirect targets can be asserted.
func (h *TestHelper) NewHTTPClient() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(h.T, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// DoRequest performs an HTTP request and asserts that no network-level error occurred.
func (h *TestHelper) DoRequest(req *http.Request, client *http.Client) *http.Response {
	resp, err := client.Do(req)
	require.NoError(h.T, err, "HTTP request failed")
	h.T.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ReadBody reads the response body and restores it for later reads.
func (h *TestHelper) ReadBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return "<nil response or body>"
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	require.NoError(h.T, err, "Failed to read response body")
	return string(bodyBytes)
}

// DecodeJSON asserts the status code and decodes the body into out.
func (h *TestHelper) DecodeJSON(resp *http.Response, wantStatus int, out any) {
	body := h.ReadBody(resp)
	require.Equal(h.T, wantStatus, resp.StatusCode, "unexpected status, body=%s", body)
	if out != nil {
		require.NoError(h.T, json.Unmarshal([]byte(body), out), "body=%s", body)
	}
}
