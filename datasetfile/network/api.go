package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the production matching API.
const DefaultBaseURL = "https://enterprise-matching-api.aidentified.com"

// APIError is returned for non-2xx API responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Unable to make API call: %d %s", e.StatusCode, e.Body)
}

// TokenSource provides bearer tokens for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is an authenticated JSON client of the matching API.
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    string
	tokens     TokenSource
	logger     log.Logger
}

// NewHTTPClient returns the retryablehttp client used for API calls. Retries are
// disabled and failed responses are handed back to the caller.
func NewHTTPClient(logger log.Logger) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	client.RetryMax = 0
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// NewClient ...
func NewClient(httpClient *retryablehttp.Client, baseURL string, tokens TokenSource, logger log.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		logger:     logger,
	}
}

// Call sends body as JSON to path and decodes the response into result.
// Either of body and result may be nil.
func (c *Client) Call(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.do(ctx, method, path, nil, body, result)
}

// Get is Call with query parameters and no request body.
func (c *Client) Get(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

type page struct {
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

// Paginated collects the results of every page of a list endpoint.
func (c *Client) Paginated(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	var results []json.RawMessage
	for {
		var p page
		if err := c.Get(ctx, path, query, &p); err != nil {
			return nil, err
		}
		results = append(results, p.Results...)

		if p.Next == nil || *p.Next == "" {
			return results, nil
		}
		next, err := url.Parse(*p.Next)
		if err != nil {
			return nil, fmt.Errorf("parse next page url: %w", err)
		}
		query = next.Query()
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, result interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload interface{}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	dump, err := httputil.DumpRequest(req.Request, false)
	if err != nil {
		c.logger.Warnf("error while dumping request: %s", err)
	}
	c.logger.Debugf("API request dump: %s", string(dump))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Unable to make API call: %w", err)
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			c.logger.Printf(err.Error())
		}
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("Unable to make API call: %w", err)
	}
	c.logger.Debugf("API response: %s %s -> %d", method, path, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if result == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decode response of %s %s: %w", method, path, err)
	}
	return nil
}
