package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[node]
scheme = "https"
host = "node.example"
port = 443
prefix = ""

block_page_size = 50
block_operations_concurrency_level = 8
account_concurrency_level = 8
follow_fork = true
get_response_entity_timeout_seconds = 10
post_response_entity_timeout_seconds = 10
rate_limit_per_second = 20
rate_limit_burst = 20
max_idle_conns = 50
max_idle_conns_per_host = 10
idle_conn_timeout_seconds = 90
`

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "conseil.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 50, c.BlockPageSize)
	require.True(t, c.FollowFork)
	require.Equal(t, "node.example", c.Node.Host)
}

func TestLoadRejectsNonPositivePageSize(t *testing.T) {
	path := writeTempConfig(t, `
block_page_size = 0
block_operations_concurrency_level = 8
account_concurrency_level = 8
get_response_entity_timeout_seconds = 10
post_response_entity_timeout_seconds = 10
`)
	_, err := Load(path)
	require.Error(t, err)
}
