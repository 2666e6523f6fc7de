package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"--query", "q.hcl",
		"--log-level", "debug",
		"--log-format", "text",
		"--emit-url", "http://localhost:3000/socket.io",
		"--emit-timeout", "5s",
	}, &out)
	require.NoError(t, err)
	assert.False(t, exit)
	require.NotNil(t, cfg)
	assert.Equal(t, "q.hcl", cfg.QueryPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "http://localhost:3000/socket.io", cfg.EmitURL)
	assert.Equal(t, 5*time.Second, cfg.EmitTimeout)
}

func TestParsePositionalQueryPath(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"my-query.hcl"}, &out)
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, "my-query.hcl", cfg.QueryPath)
}

func TestParseShorthand(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{"-q", "short.hcl"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "short.hcl", cfg.QueryPath)
}

func TestParseMissingQueryPath(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse(nil, &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseHelp(t *testing.T) {
	var out bytes.Buffer
	_, exit, err := Parse([]string{"--help"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out.String(), "tsquery")
}
