package probe_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/probe"
	"github.com/ipscand/ipscand/internal/resultcode"
)

func listenerPort(t *testing.T, ln net.Listener) uint16 {
	t.Helper()
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return uint16(port)
}

func TestTCPProbeOpenPort(t *testing.T) {
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

	port := listenerPort(t, ln)

	p := probe.NewTCPProbe(time.Second)
	code := p.Probe(context.Background(), "::1", portcatalog.Port{PortNum: port})
	assert.Equal(t, resultcode.PortOpen, code)
}

func TestTCPProbeRefused(t *testing.T) {
	ln, err := net.Listen("tcp6", "[::1]:0")
	require.NoError(t, err)
	port := listenerPort(t, ln)
	ln.Close() // free the port so the connect is refused

	p := probe.NewTCPProbe(time.Second)
	code := p.Probe(context.Background(), "::1", portcatalog.Port{PortNum: port})
	assert.Equal(t, resultcode.PortRefused, code)
}
