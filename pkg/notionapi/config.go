package notionapi

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.notion.com"

	// DefaultVersion is the API version sent in the Notion-Version header.
	DefaultVersion = "2022-06-28"
)

// Config contains configuration for the API client.
//
// Example configuration (HCL):
//
//	notion {
//	  auth_token          = env("NOTION_TOKEN")
//	  timeout             = "30s"
//	  requests_per_second = 3
//	}
type Config struct {
	// BaseURL is the API endpoint, without the /v1 suffix.
	// Default: https://api.notion.com
	BaseURL string `json:"baseUrl"`

	// AuthToken is the integration token sent as a Bearer token.
	AuthToken string `json:"-"`

	// Version is sent in the Notion-Version header.
	// Default: 2022-06-28
	Version string `json:"version,omitempty"`

	// TLSVerify controls TLS certificate verification.
	TLSVerify *bool `json:"tlsVerify,omitempty"`

	// Timeout for a single HTTP request.
	// Default: 30 seconds
	Timeout time.Duration `json:"timeout,omitempty"`

	// MaxRetries for failed requests. Rate limited, conflicting and server
	// errors are retried; other client errors are not.
	// Default: 3
	MaxRetries int `json:"maxRetries,omitempty"`

	// RetryDelay is the initial backoff interval. It doubles on every retry.
	// Default: 1 second
	RetryDelay time.Duration `json:"retryDelay,omitempty"`

	// RequestsPerSecond caps the request rate across the client.
	// Default: 3
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty"`
}

// DefaultConfig returns a Config with the defaults filled in. AuthToken is
// left empty.
func DefaultConfig() *Config {
	tlsVerify := true
	return &Config{
		BaseURL:           DefaultBaseURL,
		Version:           DefaultVersion,
		TLSVerify:         &tlsVerify,
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryDelay:        1 * time.Second,
		RequestsPerSecond: 3,
	}
}

// applyDefaults fills unset fields from DefaultConfig.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.TLSVerify == nil {
		c.TLSVerify = d.TLSVerify
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = d.RequestsPerSecond
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https scheme, got: %s", parsedURL.Scheme)
	}

	if c.AuthToken == "" {
		return fmt.Errorf("auth_token is required")
	}
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %v", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got: %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be non-negative, got: %v", c.RetryDelay)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative, got: %v", c.RequestsPerSecond)
	}

	return nil
}

// NewHTTPClient creates a configured HTTP client.
func (c *Config) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if c.TLSVerify != nil && !*c.TLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
	}
}
