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

func TestUDPProbeOpenRespondsToAnyDatagram(t *testing.T) {
	conn, err := net.ListenPacket("udp6", "[::1]:0")
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		buf := make([]byte, 1500)
		_, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		_, _ = conn.WriteTo([]byte("pong"), peer)
	}()

	_, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	p := probe.NewUDPProbe(time.Second)
	code := p.Probe(context.Background(), "::1", portcatalog.Port{PortNum: uint16(port), Description: "test"})
	assert.Equal(t, resultcode.UDPOpen, code)
}

func TestUDPProbeStealthOnSilence(t *testing.T) {
	conn, err := net.ListenPacket("udp6", "[::1]:0")
	require.NoError(t, err)
	defer conn.Close()

	_, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	p := probe.NewUDPProbe(30 * time.Millisecond)
	code := p.Probe(context.Background(), "::1", portcatalog.Port{PortNum: uint16(port)})
	assert.Equal(t, resultcode.UDPStealth, code)
}
