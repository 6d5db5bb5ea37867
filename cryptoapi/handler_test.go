package cryptoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshjon/cryptkit/encrypt"
	"github.com/joshjon/cryptkit/id"
	"github.com/joshjon/cryptkit/keystore"
	"github.com/joshjon/cryptkit/log"
	"github.com/joshjon/cryptkit/server"
	"github.com/joshjon/cryptkit/testutil"
)

func newTestAPI(t *testing.T) string {
	t.Helper()
	logger := log.NewLogger(log.WithNop())
	srv, err := server.NewServer(0, server.WithLogger(logger))
	require.NoError(t, err)
	srv.Register("/v1", NewHandler(keystore.NewMemoryStore(), logger))

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts.URL + "/v1"
}

func createKey(t *testing.T, baseURL string, algorithm string) Key {
	t.Helper()
	res := testutil.Post[server.Response[Key]](t, baseURL+"/keys", CreateKeyRequest{Algorithm: algorithm})
	return res.Data
}

func TestHandler_encryptDecrypt(t *testing.T) {
	baseURL := newTestAPI(t)

	tests := []struct {
		algorithm string
	}{
		{algorithm: "aes-128-ecb"},
		{algorithm: "aes-256-gcm"},
		{algorithm: "rsa-1024-pkcs1"},
		{algorithm: "rsa-1024-oaep-sha256"},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			key := createKey(t, baseURL, tt.algorithm)
			text := testutil.RandString(32)

			enc := testutil.Post[server.Response[EncryptResponse]](t, baseURL+"/encrypt", EncryptRequest{
				KeyID: key.ID,
				Text:  text,
			})
			require.NotEmpty(t, enc.Data.Ciphertext)

			dec := testutil.Post[server.Response[DecryptResponse]](t, baseURL+"/decrypt", DecryptRequest{
				KeyID:      key.ID,
				Ciphertext: enc.Data.Ciphertext,
			})
			assert.Equal(t, text, dec.Data.Text)
		})
	}
}

func TestHandler_correspondent(t *testing.T) {
	baseURL := newTestAPI(t)
	alice := createKey(t, baseURL, "rsa-1024-oaep-sha1")
	bob := createKey(t, baseURL, "rsa-1024-oaep-sha1")
	secret := createKey(t, baseURL, "aes-128-gcm")

	enc := testutil.Post[server.Response[EncryptResponse]](t, baseURL+"/encrypt", EncryptRequest{
		KeyID:              alice.ID,
		CorrespondentKeyID: bob.ID,
		Text:               "for bob",
	})
	dec := testutil.Post[server.Response[DecryptResponse]](t, baseURL+"/decrypt", DecryptRequest{
		KeyID:      bob.ID,
		Ciphertext: enc.Data.Ciphertext,
	})
	assert.Equal(t, "for bob", dec.Data.Text)

	code, _ := testutil.Do(t, http.MethodPost, baseURL+"/decrypt", DecryptRequest{
		KeyID:      alice.ID,
		Ciphertext: enc.Data.Ciphertext,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = testutil.Do(t, http.MethodPost, baseURL+"/encrypt", EncryptRequest{
		KeyID:              alice.ID,
		CorrespondentKeyID: secret.ID,
		Text:               "mismatch",
	})
	assert.Equal(t, http.StatusConflict, code)
}

func TestHandler_keys(t *testing.T) {
	baseURL := newTestAPI(t)

	sym := createKey(t, baseURL, "aes-192-ecb")
	assert.Equal(t, "AES/ECB/PKCS5Padding", sym.Transform)
	assert.Equal(t, 192, sym.KeySize)
	assert.Empty(t, sym.PublicKey)

	asym := createKey(t, baseURL, "rsa-1024-pkcs1")
	assert.Equal(t, "RSA/ECB/PKCS1Padding", asym.Transform)
	assert.Contains(t, asym.PublicKey, "BEGIN PUBLIC KEY")

	got := testutil.Get[server.Response[Key]](t, baseURL+"/keys/"+sym.ID)
	assert.Equal(t, sym.ID, got.Data.ID)

	page := testutil.Get[server.ResponseList[Key]](t, baseURL+"/keys?page_size=1")
	require.Len(t, page.Data, 1)
	assert.Equal(t, sym.ID, page.Data[0].ID)
	require.NotNil(t, page.NextPageCursor)

	page = testutil.Get[server.ResponseList[Key]](t, baseURL+"/keys?page_size=1&page_cursor="+*page.NextPageCursor)
	require.Len(t, page.Data, 1)
	assert.Equal(t, asym.ID, page.Data[0].ID)

	filtered := testutil.Get[server.ResponseList[Key]](t, baseURL+"/keys?algorithm=rsa-1024-pkcs1")
	require.Len(t, filtered.Data, 1)
	assert.Equal(t, asym.ID, filtered.Data[0].ID)
	assert.Nil(t, filtered.NextPageCursor)

	testutil.Delete(t, baseURL+"/keys/"+sym.ID)
	code, _ := testutil.Do(t, http.MethodGet, baseURL+"/keys/"+sym.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	algs := testutil.Get[server.Response[[]Algorithm]](t, baseURL+"/algorithms")
	assert.Len(t, algs.Data, len(encrypt.Algorithms()))
	assert.Contains(t, algs.Data, Algorithm{ID: "aes-256-gcm", Transform: "AES/GCM/NoPadding", KeySize: 256})
	assert.Contains(t, algs.Data, Algorithm{ID: "rsa-3072-oaep-sha256", Transform: "RSA/ECB/OAEPWithSHA-256AndMGF1Padding", KeySize: 3072})
	assert.Contains(t, algs.Data, Algorithm{ID: "aes-128-ecb", Transform: "AES/ECB/PKCS5Padding", KeySize: 128})
}

func TestHandler_errors(t *testing.T) {
	baseURL := newTestAPI(t)
	key := createKey(t, baseURL, "aes-256-ecb")
	missing := id.NewKeyID().String()

	tests := []struct {
		name     string
		method   string
		path     string
		req      any
		wantCode int
	}{
		{
			name:     "unsupported algorithm",
			method:   http.MethodPost,
			path:     "/keys",
			req:      CreateKeyRequest{Algorithm: "des-56-cbc"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown key",
			method:   http.MethodPost,
			path:     "/encrypt",
			req:      EncryptRequest{KeyID: missing, Text: "x"},
			wantCode: http.StatusNotFound,
		},
		{
			name:     "get unknown key",
			method:   http.MethodGet,
			path:     "/keys/" + missing,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "malformed key id",
			method:   http.MethodDelete,
			path:     "/keys/not-an-id",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing key id",
			method:   http.MethodPost,
			path:     "/encrypt",
			req:      EncryptRequest{Text: "x"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "ciphertext not base64",
			method:   http.MethodPost,
			path:     "/decrypt",
			req:      DecryptRequest{KeyID: key.ID, Ciphertext: "!!!"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "ciphertext not a block multiple",
			method:   http.MethodPost,
			path:     "/decrypt",
			req:      DecryptRequest{KeyID: key.ID, Ciphertext: "AAAA"},
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := testutil.Do(t, tt.method, baseURL+tt.path, tt.req)
			assert.Equal(t, tt.wantCode, code, string(body))

			var res server.ResponseError
			require.NoError(t, json.Unmarshal(body, &res), string(body))
			assert.NotEmpty(t, res.Error.Message, fmt.Sprintf("%s %s", tt.method, tt.path))
		})
	}
}

func TestHandler_defaultAlgorithm(t *testing.T) {
	logger := log.NewLogger(log.WithNop())
	srv, err := server.NewServer(0, server.WithLogger(logger))
	require.NoError(t, err)
	srv.Register("/v1", NewHandler(keystore.NewMemoryStore(), logger, WithDefaultAlgorithm(encrypt.AES256GCM)))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	key := createKey(t, ts.URL+"/v1", "")
	assert.Equal(t, "aes-256-gcm", key.Algorithm)

	code, _ := testutil.Do(t, http.MethodPost, newTestAPI(t)+"/keys", CreateKeyRequest{})
	assert.Equal(t, http.StatusBadRequest, code)
}
