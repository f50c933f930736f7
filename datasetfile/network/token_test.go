package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoginServer(t *testing.T, logins *int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)

		var req loginRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Email != "me@example.com" || req.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail":"bad credentials"}`)
			return
		}

		n := atomic.AddInt32(logins, 1)
		fmt.Fprintf(w, `{"bearer_token":"token-%d","expires_in":3600}`, n)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTokenService_Token(t *testing.T) {
	var logins int32
	server := newLoginServer(t, &logins)
	logger := log.NewLogger()
	cachePath := filepath.Join(t.TempDir(), "nested", "token_cache")

	credentials := Credentials{Email: "me@example.com", Password: "hunter2"}
	service := NewTokenService(NewHTTPClient(logger), server.URL, credentials, cachePath, logger)

	token, err := service.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	token, err = service.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))

	// A new service picks the token up from the cache file.
	other := NewTokenService(NewHTTPClient(logger), server.URL, credentials, cachePath, logger)
	token, err = other.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))

	require.NoError(t, other.ClearCache())
	_, err = os.Stat(cachePath)
	assert.True(t, os.IsNotExist(err))

	token, err = other.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
}

func TestTokenService_Expired(t *testing.T) {
	var logins int32
	server := newLoginServer(t, &logins)
	logger := log.NewLogger()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	service := NewTokenService(NewHTTPClient(logger), server.URL, Credentials{Email: "me@example.com", Password: "hunter2"}, "", logger)
	service.now = func() time.Time { return now }

	_, err := service.Token(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	token, err := service.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
}

func TestTokenService_BadCredentials(t *testing.T) {
	var logins int32
	server := newLoginServer(t, &logins)
	logger := log.NewLogger()

	service := NewTokenService(NewHTTPClient(logger), server.URL, Credentials{Email: "me@example.com", Password: "wrong"}, "", logger)
	_, err := service.Token(context.Background())
	require.EqualError(t, err, `Bad response from API: HTTP 401: {"detail":"bad credentials"}`)
}

func TestDefaultTokenCachePath(t *testing.T) {
	envRepo := env.NewRepository()
	dir := t.TempDir()
	require.NoError(t, envRepo.Set(TokenCacheDirEnvKey, dir))
	defer func() {
		require.NoError(t, envRepo.Unset(TokenCacheDirEnvKey))
	}()

	path, err := DefaultTokenCachePath(envRepo)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "token_cache"), path)
}

func TestSecret_String(t *testing.T) {
	assert.Equal(t, "*****", fmt.Sprintf("%s", Secret("hunter2")))
	assert.Equal(t, "", Secret("").String())
}
