package notionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/request"
)

// Client is an HTTP client for the block API.
type Client struct {
	config  *Config
	client  *http.Client
	limiter *rate.Limiter
	logger  hclog.Logger
}

// Compile-time checks.
var (
	_ request.Transport   = (*Client)(nil)
	_ request.ChildLister = (*Client)(nil)
)

// NewClient creates a client. Unset config fields take their defaults.
func NewClient(cfg *Config, logger hclog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid API client config: %w", err)
	}

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		config:  cfg,
		client:  cfg.NewHTTPClient(),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("notionapi"),
	}, nil
}

// CreatePage creates a page and returns the page object.
func (c *Client) CreatePage(ctx context.Context, page *request.PagePayload) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/pages", nil, page)
}

// RetrievePage returns the page object for id.
func (c *Client) RetrievePage(ctx context.Context, id string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/pages/"+url.PathEscape(id), nil, nil)
}

// AppendChildren appends children to the block or page parentID, after the
// sibling after when it is set. The response lists the appended blocks.
func (c *Client) AppendChildren(ctx context.Context, parentID string, children []*block.Block, after string) (json.RawMessage, error) {
	body := struct {
		Children []*block.Block `json:"children"`
		After    string         `json:"after,omitempty"`
	}{
		Children: children,
		After:    after,
	}
	return c.doRequest(ctx, http.MethodPatch, "/v1/blocks/"+url.PathEscape(parentID)+"/children", nil, body)
}

// ListChildren returns the direct children of a block, across all pages of
// the listing.
func (c *Client) ListChildren(ctx context.Context, blockID string) ([]request.Result, error) {
	path := "/v1/blocks/" + url.PathEscape(blockID) + "/children"

	return Paginate[request.Result](ctx, func(ctx context.Context, cursor string) (*Page[request.Result], error) {
		query := url.Values{"page_size": {strconv.Itoa(MaxPageSize)}}
		if cursor != "" {
			query.Set("start_cursor", cursor)
		}

		resp, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return nil, err
		}

		var page Page[request.Result]
		if err := json.Unmarshal(resp, &page); err != nil {
			return nil, fmt.Errorf("failed to decode children of %s: %w", blockID, err)
		}
		return &page, nil
	})
}

// QueryDatabase returns every page of a database matching filter. A nil
// filter matches all pages.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter map[string]any) ([]json.RawMessage, error) {
	path := "/v1/databases/" + url.PathEscape(databaseID) + "/query"

	return Paginate[json.RawMessage](ctx, func(ctx context.Context, cursor string) (*Page[json.RawMessage], error) {
		body := map[string]any{"page_size": MaxPageSize}
		if filter != nil {
			body["filter"] = filter
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		resp, err := c.doRequest(ctx, http.MethodPost, path, nil, body)
		if err != nil {
			return nil, err
		}

		var page Page[json.RawMessage]
		if err := json.Unmarshal(resp, &page); err != nil {
			return nil, fmt.Errorf("failed to decode query of %s: %w", databaseID, err)
		}
		return &page, nil
	})
}

// newBackOff returns the retry schedule for one request.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.RetryDelay
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.config.MaxRetries)), ctx)
}

// doRequest executes a request with rate limiting, retries and error
// handling, and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var (
		result  json.RawMessage
		attempt int
	)
	operation := func() error {
		attempt++

		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
		req.Header.Set("Notion-Version", c.config.Version)
		req.Header.Set("Accept", "application/json")
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		c.logger.Debug("request complete",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"attempt", attempt,
			"duration", time.Since(start),
		)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := decodeAPIError(resp.StatusCode, resp.Header.Get("X-Request-Id"), respBody)
			if !apiErr.IsRetryable() {
				return backoff.Permanent(apiErr)
			}
			return apiErr
		}

		result = respBody
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying request",
			"method", method,
			"path", path,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify); err != nil {
		var apiErr *APIError
		if attempt > 1 && !errors.As(err, &apiErr) {
			return nil, fmt.Errorf("request failed after %d attempts: %w", attempt, err)
		}
		return nil, err
	}

	return result, nil
}
