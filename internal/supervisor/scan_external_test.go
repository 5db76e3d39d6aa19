package supervisor_test

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/probe"
	"github.com/ipscand/ipscand/internal/resultcode"
	"github.com/ipscand/ipscand/internal/session"
	"github.com/ipscand/ipscand/internal/store"
	"github.com/ipscand/ipscand/internal/supervisor"
)

func TestRunTCPWritesOneRowPerPort(t *testing.T) {
	ln, err := net.Listen("tcp6", "[::1]:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	key, err := session.NewKey(netip.MustParseAddr("::1"), 1700000000, 1)
	require.NoError(t, err)

	s := store.NewMemStore()
	defer s.Close()

	ports := []portcatalog.Port{{PortNum: 65000}, {PortNum: 65001}}
	p := probe.NewTCPProbe(200 * time.Millisecond)

	errs := supervisor.RunTCP(context.Background(), "::1", key, ports, p, s, supervisor.Limits{FanOutMax: 2, ChunkSize: 1})
	assert.Empty(t, errs)

	dump, err := s.Dump(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, dump, 2)
	for _, row := range dump {
		assert.Equal(t, resultcode.PortRefused, row.Code)
	}
}

func TestRunUDPWritesOneRowPerPort(t *testing.T) {
	key, err := session.NewKey(netip.MustParseAddr("::1"), 1700000000, 2)
	require.NoError(t, err)

	s := store.NewMemStore()
	defer s.Close()

	ports := []portcatalog.Port{{PortNum: 65002}}
	p := probe.NewUDPProbe(50 * time.Millisecond)

	errs := supervisor.RunUDP(context.Background(), "::1", key, ports, p, s, supervisor.Limits{FanOutMax: 1, ChunkSize: 1})
	assert.Empty(t, errs)

	dump, err := s.Dump(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, dump, 1)
}
