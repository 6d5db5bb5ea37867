package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cohesivestack/valgo"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshjon/cryptkit/errtag"
	"github.com/joshjon/cryptkit/log"
	"github.com/joshjon/cryptkit/testutil"
)

func TestServer_NewServer(t *testing.T) {
	srv, err := NewServer(testutil.GetFreePort(t),
		WithLogger(log.NewLogger(log.WithNop())),
		WithCORS("localhost:9999"),
		WithRequestTimeout(time.Second),
		WithBodyLimit("2K"),
	)
	require.NoError(t, err)

	go srv.Start()
	defer srv.Stop(context.Background())
	err = srv.WaitHealthy(20, 10*time.Millisecond)
	require.NoError(t, err)
}

func TestServer_TLS(t *testing.T) {
	certFile, keyFile := writeSelfSignedCert(t)
	srv, err := NewServer(testutil.GetFreePort(t),
		WithLogger(log.NewLogger(log.WithNop())),
		WithTLS(certFile, keyFile, ""),
	)
	require.NoError(t, err)

	go srv.Start()
	defer srv.Stop(context.Background())
	require.NoError(t, srv.WaitHealthy(20, 10*time.Millisecond))

	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				// Using self signed certs so InsecureSkipVerify=true
				InsecureSkipVerify: true,
			},
		},
	}

	httpRes, err := client.Get(srv.Address() + "/healthz")
	require.NoError(t, err)
	defer httpRes.Body.Close()
	assert.Equal(t, http.StatusOK, httpRes.StatusCode)
}

func TestNewServer_invalidOptions(t *testing.T) {
	_, err := NewServer(0, WithRequestTimeout(0))
	assert.Error(t, err)

	_, err = NewServer(0, WithTLS("cert.pem", "", ""))
	assert.Error(t, err)
}

func TestServer_bodyLimit(t *testing.T) {
	srv, err := NewServer(0, WithLogger(log.NewLogger(log.WithNop())), WithBodyLimit("1K"))
	require.NoError(t, err)
	srv.Register("/test", testHandler{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test/echo", strings.NewReader(strings.Repeat("a", 2048)))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/test/echo", strings.NewReader("small"))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type testHandler struct{}

func (testHandler) Register(g *echo.Group) {
	g.GET("/not-found", func(echo.Context) error {
		return errtag.NewTagged[errtag.NotFound]("key missing", errtag.WithMsg("key not found"))
	})
	g.GET("/invalid", func(echo.Context) error {
		return valgo.Is(valgo.String("", "algorithm").Not().Blank()).Error()
	})
	g.GET("/internal", func(echo.Context) error {
		return errors.New("database exploded")
	})
	g.GET("/timeout", func(echo.Context) error {
		return context.DeadlineExceeded
	})
	g.GET("/ok", func(c echo.Context) error {
		return SetResponse(c, http.StatusOK, "fine")
	})
	g.POST("/echo", func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		return SetResponse(c, http.StatusOK, string(body))
	})
}

func TestServer_errorResponses(t *testing.T) {
	srv, err := NewServer(0, WithLogger(log.NewLogger(log.WithNop())))
	require.NoError(t, err)
	srv.Register("/test", testHandler{})

	tests := []struct {
		name        string
		path        string
		wantCode    int
		wantMessage string
		wantDetails bool
	}{
		{name: "tagged", path: "/test/not-found", wantCode: http.StatusNotFound, wantMessage: "key not found"},
		{name: "validation", path: "/test/invalid", wantCode: http.StatusBadRequest, wantMessage: "invalid request", wantDetails: true},
		{name: "untagged", path: "/test/internal", wantCode: http.StatusInternalServerError},
		{name: "timeout", path: "/test/timeout", wantCode: http.StatusServiceUnavailable, wantMessage: "request timed out"},
		{name: "unknown route", path: "/nope", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, rec.Code)

			var res ResponseError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.NotEmpty(t, res.Error.Message)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, res.Error.Message)
			}
			if tt.wantDetails {
				assert.NotEmpty(t, res.Error.Details)
			}
			assert.NotContains(t, rec.Body.String(), "database exploded")
		})
	}

	t.Run("success", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test/ok/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

		var res Response[string]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "fine", res.Data)
	})
}

func TestSetResponseList(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, SetResponseList(c, http.StatusOK, []int{1, 2}, "a2V5XzAx"))

	var res ResponseList[int]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []int{1, 2}, res.Data)
	require.NotNil(t, res.NextPageCursor)
	assert.Equal(t, "a2V5XzAx", *res.NextPageCursor)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, SetResponseList(c, http.StatusOK, []int{3}, ""))
	assert.NotContains(t, rec.Body.String(), "next_page_cursor")
}

func writeSelfSignedCert(t *testing.T) (string, string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP(testutil.LocalIP)},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile := filepath.Join(dir, "server-cert.pem")
	keyFile := filepath.Join(dir, "server-key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}
