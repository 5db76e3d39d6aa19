package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipscand/ipscand/internal/config"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`version: "1"
listen: ":9090"
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 20, cfg.Scan.MaxChildren)
	assert.Equal(t, 20, cfg.Scan.MaxUDPChildren)
	assert.Greater(t, cfg.Scan.TCPTimeout.Duration().Seconds(), 0.0)
	assert.Greater(t, cfg.Store.DeleteTimeout.Duration().Seconds(), 0.0)
}

func TestParseRejectsInvalidTunables(t *testing.T) {
	_, err := config.Parse([]byte(`
listen: ":8080"
scan:
  max_children: 0
`))
	require.Error(t, err)
}

func TestParseHonorsExplicitValues(t *testing.T) {
	cfg, err := config.Parse([]byte(`
listen: ":8080"
scan:
  max_children: 5
  max_udp_children: 5
  tcp_timeout: 1s
  udp_timeout: 1s
  icmpv6_timeout: 1s
  max_ports_per_child: 2
  max_udp_ports_per_child: 2
  num_user_def_ports: 4
  max_queries: 10
  max_query_str_len: 32
store:
  delete_timeout: 30s
  teststate_complete_sleep: 1s
`))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Scan.MaxChildren)
	assert.Equal(t, 4, cfg.Scan.NumUserDefPorts)
}

func TestDefaultReturnsValidConfig(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
}

func TestParseSize(t *testing.T) {
	n, err := config.ParseSize("100MB")
	require.NoError(t, err)
	assert.Equal(t, int64(100*1024*1024), n)

	_, err = config.ParseSize("not-a-size")
	assert.Error(t, err)
}
