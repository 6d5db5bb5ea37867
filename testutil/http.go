package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

var DefaultClient = &http.Client{
	Transport: &http.Transport{MaxIdleConnsPerHost: 1},
	Timeout:   10 * time.Second,
}

// Get fetches url and decodes the JSON reply into R, failing the test on a
// non-2xx status.
func Get[R any](t *testing.T, url string) R {
	t.Helper()
	return expectJSON[R](t, http.MethodGet, url, nil)
}

// Post sends req as JSON and decodes the reply into R, failing the test on a
// non-2xx status.
func Post[R any](t *testing.T, url string, req any) R {
	t.Helper()
	return expectJSON[R](t, http.MethodPost, url, req)
}

func Delete(t *testing.T, url string) {
	t.Helper()
	code, body := Do(t, http.MethodDelete, url, nil)
	requireSuccess(t, http.MethodDelete, url, code, body)
}

// Do sends req as JSON when it is non-nil and returns the status code and
// body whatever the status, for asserting error replies.
func Do(t *testing.T, method string, url string, req any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if req != nil {
		reqJSON, err := json.Marshal(req)
		require.NoError(t, err)
		body = bytes.NewReader(reqJSON)
	}

	httpReq, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if req != nil {
		httpReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	httpRes, err := DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer httpRes.Body.Close()

	resBody, err := io.ReadAll(httpRes.Body)
	require.NoError(t, err)
	return httpRes.StatusCode, resBody
}

func expectJSON[R any](t *testing.T, method string, url string, req any) R {
	t.Helper()
	code, body := Do(t, method, url, req)
	requireSuccess(t, method, url, code, body)

	var res R
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func requireSuccess(t *testing.T, method string, url string, code int, body []byte) {
	t.Helper()
	if code < 200 || code >= 300 {
		require.Failf(t, "http error", "%s %s\nStatus: %d %s\nBody: %s",
			method, url, code, http.StatusText(code), string(body))
	}
}
