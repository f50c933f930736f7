package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// TokenCacheDirEnvKey overrides the directory of the token cache.
	TokenCacheDirEnvKey = "AID_TOKEN_CACHE_DIR"

	tokenCacheApp     = "aidentified_match"
	tokenCacheVersion = "1.0"
	tokenCacheFile    = "token_cache"

	// Tokens this close to expiry are refreshed.
	expiryMargin = 30 * time.Second
)

// Secret is a string that is not printed in logs or help output.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "*****"
}

// Credentials of an account of the matching API.
type Credentials struct {
	Email    string
	Password Secret
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	BearerToken string `json:"bearer_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type cachedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenService logs in with Credentials and caches the bearer token on disk.
type TokenService struct {
	httpClient  *retryablehttp.Client
	baseURL     string
	credentials Credentials
	cachePath   string
	logger      log.Logger
	now         func() time.Time

	mu     sync.Mutex
	cached *cachedToken
}

// DefaultTokenCachePath returns the token cache file below the user cache directory,
// or below $AID_TOKEN_CACHE_DIR when set.
func DefaultTokenCachePath(envRepo env.Repository) (string, error) {
	dir := envRepo.Get(TokenCacheDirEnvKey)
	if dir == "" {
		userCacheDir, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("locate user cache dir: %w", err)
		}
		dir = filepath.Join(userCacheDir, tokenCacheApp, tokenCacheVersion)
	}
	return filepath.Join(dir, tokenCacheFile), nil
}

// NewTokenService ...
func NewTokenService(httpClient *retryablehttp.Client, baseURL string, credentials Credentials, cachePath string, logger log.Logger) *TokenService {
	return &TokenService{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		credentials: credentials,
		cachePath:   cachePath,
		logger:      logger,
		now:         time.Now,
	}
}

// Token returns a valid bearer token, logging in when the cached one is missing or expired.
func (s *TokenService) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil {
		s.cached = s.readCache()
	}
	if s.cached != nil && s.now().Add(expiryMargin).Before(s.cached.ExpiresAt) {
		return s.cached.Token, nil
	}

	token, err := s.login(ctx)
	if err != nil {
		return "", err
	}
	s.cached = token
	s.writeCache(token)

	return token.Token, nil
}

// ClearCache forgets the cached token.
func (s *TokenService) ClearCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	if s.cachePath == "" {
		return nil
	}
	if err := os.Remove(s.cachePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token cache: %w", err)
	}
	return nil
}

func (s *TokenService) login(ctx context.Context) (*cachedToken, error) {
	if s.credentials.Email == "" || s.credentials.Password == "" {
		return nil, errors.New("email and password are required to log in")
	}

	body, err := json.Marshal(loginRequest{
		Email:    s.credentials.Email,
		Password: string(s.credentials.Password),
	})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/login", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Debugf("Logging in as %s", s.credentials.Email)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Unable to connect to API: %w", err)
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			s.logger.Printf(err.Error())
		}
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Unable to connect to API: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Bad response from API: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var response loginResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if response.BearerToken == "" {
		return nil, errors.New("Bad response from API: no bearer token")
	}

	return &cachedToken{
		Token:     response.BearerToken,
		ExpiresAt: s.now().Add(time.Duration(response.ExpiresIn) * time.Second),
	}, nil
}

func (s *TokenService) readCache() *cachedToken {
	if s.cachePath == "" {
		return nil
	}
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warnf("Failed to read token cache: %s", err)
		}
		return nil
	}

	var token cachedToken
	if err := json.Unmarshal(data, &token); err != nil {
		s.logger.Warnf("Ignoring malformed token cache: %s", err)
		return nil
	}
	return &token
}

func (s *TokenService) writeCache(token *cachedToken) {
	if s.cachePath == "" {
		return
	}
	data, err := json.Marshal(token)
	if err != nil {
		s.logger.Warnf("Failed to encode token cache: %s", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0700); err != nil {
		s.logger.Warnf("Failed to create token cache dir: %s", err)
		return
	}
	if err := os.WriteFile(s.cachePath, data, 0600); err != nil {
		s.logger.Warnf("Failed to write token cache: %s", err)
	}
}
