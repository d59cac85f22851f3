// Package config loads the pagewright HCL configuration file.
//
//	log_level = "info"
//
//	notion {
//	  auth_token          = env("NOTION_TOKEN")
//	  timeout             = "30s"
//	  max_retries         = 3
//	  requests_per_second = 3
//	}
//
//	limits {
//	  max_slice_count        = 100
//	  required_child_reserve = 100
//	}
//
// Every block and attribute is optional. Unset values take the defaults of
// notionapi.DefaultConfig and limits.Default.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/hashicorp-forge/pagewright/pkg/limits"
	"github.com/hashicorp-forge/pagewright/pkg/notionapi"
)

// Config is the top-level configuration.
type Config struct {
	LogLevel string `hcl:"log_level,optional"`

	Notion *Notion        `hcl:"notion,block"`
	Limits *limits.Policy `hcl:"limits,block"`
}

// Notion configures the API client. Durations are written as Go duration
// strings ("30s", "500ms").
type Notion struct {
	BaseURL           string   `hcl:"base_url,optional"`
	AuthToken         string   `hcl:"auth_token,optional"`
	Version           string   `hcl:"version,optional"`
	TLSVerify         *bool    `hcl:"tls_verify,optional"`
	Timeout           string   `hcl:"timeout,optional"`
	MaxRetries        *int     `hcl:"max_retries,optional"`
	RetryDelay        string   `hcl:"retry_delay,optional"`
	RequestsPerSecond *float64 `hcl:"requests_per_second,optional"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{LogLevel: "info"}
}

// Load decodes the configuration file at path. An empty path returns
// Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	cfg := Default()
	if err := hclsimple.DecodeFile(path, evalContext(), cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration source. The filename's extension selects
// native HCL (.hcl) or JSON (.json) syntax.
func Parse(filename string, src []byte) (*Config, error) {
	cfg := Default()
	if err := hclsimple.Decode(filename, src, evalContext(), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the log level, the durations and the limit policy. All
// problems are reported together.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.LogLevel != "" && hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("log_level %q is not a valid level", c.LogLevel))
	}

	if c.Notion != nil {
		if _, err := parseDuration("notion.timeout", c.Notion.Timeout); err != nil {
			result = multierror.Append(result, err)
		}
		if _, err := parseDuration("notion.retry_delay", c.Notion.RetryDelay); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := c.Policy().Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("limits: %w", err))
	}

	return result.ErrorOrNil()
}

// Level returns the configured log level, Info when unset.
func (c *Config) Level() hclog.Level {
	if level := hclog.LevelFromString(c.LogLevel); level != hclog.NoLevel {
		return level
	}
	return hclog.Info
}

// Policy returns the limit policy with unset fields defaulted.
func (c *Config) Policy() limits.Policy {
	if c.Limits == nil {
		return limits.Default()
	}
	return c.Limits.WithDefaults()
}

// NotionConfig converts the notion block into a client configuration,
// starting from notionapi.DefaultConfig. The result is not validated; the
// auth token may still be missing.
func (c *Config) NotionConfig() (*notionapi.Config, error) {
	cfg := notionapi.DefaultConfig()
	n := c.Notion
	if n == nil {
		return cfg, nil
	}

	if n.BaseURL != "" {
		cfg.BaseURL = n.BaseURL
	}
	if n.AuthToken != "" {
		cfg.AuthToken = n.AuthToken
	}
	if n.Version != "" {
		cfg.Version = n.Version
	}
	if n.TLSVerify != nil {
		cfg.TLSVerify = n.TLSVerify
	}
	if n.MaxRetries != nil {
		cfg.MaxRetries = *n.MaxRetries
	}
	if n.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *n.RequestsPerSecond
	}

	timeout, err := parseDuration("notion.timeout", n.Timeout)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}

	delay, err := parseDuration("notion.retry_delay", n.RetryDelay)
	if err != nil {
		return nil, err
	}
	if delay > 0 {
		cfg.RetryDelay = delay
	}

	return cfg, nil
}

func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}
}

// envFunc implements env(name) and env(name, fallback).
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	VarParam: &function.Parameter{Name: "fallback", Type: cty.String},
	Type:     function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if len(args) > 2 {
			return cty.NilVal, fmt.Errorf("env takes a name and at most one fallback")
		}
		if v, ok := os.LookupEnv(args[0].AsString()); ok {
			return cty.StringVal(v), nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return cty.StringVal(""), nil
	},
})
