package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/pagewright/pkg/limits"
	"github.com/hashicorp-forge/pagewright/pkg/notionapi"
)

const fullConfig = `
log_level = "debug"

notion {
  base_url            = "http://localhost:8080"
  auth_token          = env("PAGEWRIGHT_TEST_TOKEN")
  version             = "2022-06-28"
  tls_verify          = false
  timeout             = "5s"
  max_retries         = 0
  retry_delay         = "250ms"
  requests_per_second = 10
}

limits {
  max_slice_count        = 50
  required_child_reserve = 20
}
`

func TestParse(t *testing.T) {
	t.Setenv("PAGEWRIGHT_TEST_TOKEN", "secret")

	cfg, err := Parse("config.hcl", []byte(fullConfig))
	require.NoError(t, err)
	assert.Equal(t, hclog.Debug, cfg.Level())

	policy := cfg.Policy()
	assert.Equal(t, 50, policy.MaxSliceCount)
	assert.Equal(t, 20, policy.RequiredChildReserve)
	assert.Equal(t, limits.MaxCallNodeTotal, policy.MaxCallNodeTotal)
	assert.Equal(t, limits.MaxDepth, policy.MaxDepth)

	nc, err := cfg.NotionConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", nc.BaseURL)
	assert.Equal(t, "secret", nc.AuthToken)
	require.NotNil(t, nc.TLSVerify)
	assert.False(t, *nc.TLSVerify)
	assert.Equal(t, 5*time.Second, nc.Timeout)
	assert.Equal(t, 0, nc.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, nc.RetryDelay)
	assert.Equal(t, 10.0, nc.RequestsPerSecond)
	assert.NoError(t, nc.Validate())
}

func TestParse_EnvFallback(t *testing.T) {
	src := `
notion {
  auth_token = env("PAGEWRIGHT_TEST_UNSET_TOKEN", "fallback")
}
`
	cfg, err := Parse("config.hcl", []byte(src))
	require.NoError(t, err)

	nc, err := cfg.NotionConfig()
	require.NoError(t, err)
	assert.Equal(t, "fallback", nc.AuthToken)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse("config.hcl", []byte(""))
	require.NoError(t, err)

	assert.Equal(t, hclog.Info, cfg.Level())
	assert.Equal(t, limits.Default(), cfg.Policy())

	nc, err := cfg.NotionConfig()
	require.NoError(t, err)
	assert.Equal(t, notionapi.DefaultConfig(), nc)
}

func TestParse_JSON(t *testing.T) {
	src := `{"log_level": "warn", "notion": {"timeout": "10s"}}`

	cfg, err := Parse("config.json", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, hclog.Warn, cfg.Level())

	nc, err := cfg.NotionConfig()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, nc.Timeout)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		errorMsg string
	}{
		{
			name:     "unknown attribute",
			src:      `bogus = 1`,
			errorMsg: "failed to parse configuration",
		},
		{
			name:     "bad log level",
			src:      `log_level = "loud"`,
			errorMsg: `log_level "loud" is not a valid level`,
		},
		{
			name:     "bad duration",
			src:      "notion {\n  timeout = \"soon\"\n}",
			errorMsg: "notion.timeout",
		},
		{
			name:     "negative delay",
			src:      "notion {\n  retry_delay = \"-1s\"\n}",
			errorMsg: "notion.retry_delay must not be negative",
		},
		{
			name:     "slice larger than call",
			src:      "limits {\n  max_slice_count = 2000\n}",
			errorMsg: "limits:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("config.hcl", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		LogLevel: "loud",
		Notion:   &Notion{Timeout: "soon", RetryDelay: "later"},
	}

	err := cfg.Validate()
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 3)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "pagewright.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "error"`), 0o600))

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, hclog.Error, cfg.Level())

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.ErrorContains(t, err, "failed to load configuration")
}
