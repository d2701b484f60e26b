package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-travel/types"
)

func writeConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: cli-test\nserver:\n  http:\n    port: 9090\n"), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckCmd(t *testing.T) {
	out, err := run(t, "check", "-c", writeConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, "cli-test 0.1.0: configuration ok (listen 0.0.0.0:9090")
}

func TestConfigGetCmd(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "config", "get", "providers.safety_a.follow_redirects", "-c", path)
	require.NoError(t, err)
	assert.Equal(t, "true", strings.TrimSpace(out))

	out, err = run(t, "config", "get", "server.http.port", "-c", path)
	require.NoError(t, err)
	assert.Equal(t, "9090", strings.TrimSpace(out))

	_, err = run(t, "config", "get", "providers.nowhere", "-c", path)
	assert.ErrorIs(t, err, types.ErrConfigNotFound)
}

func TestConfigPathsCmd(t *testing.T) {
	out, err := run(t, "config", "paths", "-c", writeConfig(t))
	require.NoError(t, err)

	paths := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, paths, "server.http.port")
	assert.Contains(t, paths, "providers.news_rss.follow_redirects")
}

func TestCheckCmd_MissingFile(t *testing.T) {
	_, err := run(t, "check", "-c", filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
