package portcatalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipscand/ipscand/internal/portcatalog"
)

func TestEncodeDecodePortKeyRoundTrip(t *testing.T) {
	key := portcatalog.EncodePortKey(8080, 3, portcatalog.ProtocolUDP)
	port, special, proto := portcatalog.DecodePortKey(key)

	assert.Equal(t, uint16(8080), port)
	assert.Equal(t, uint8(3), special)
	assert.Equal(t, portcatalog.ProtocolUDP, proto)
}

func TestEncodePortKeyInjective(t *testing.T) {
	seen := make(map[uint32]bool)
	for _, proto := range []portcatalog.Protocol{portcatalog.ProtocolTCP, portcatalog.ProtocolUDP, portcatalog.ProtocolICMPv6} {
		for port := uint16(1); port < 40; port++ {
			for special := uint8(0); special < 4; special++ {
				key := portcatalog.EncodePortKey(port, special, proto)
				assert.False(t, seen[key], "collision at port=%d special=%d proto=%d", port, special, proto)
				seen[key] = true
			}
		}
	}
}

func TestTestStateKeyIsWellKnown(t *testing.T) {
	port, special, proto := portcatalog.DecodePortKey(portcatalog.TestStateKey())
	assert.Equal(t, uint16(0), port)
	assert.Equal(t, uint8(0), special)
	assert.Equal(t, portcatalog.ProtocolTestState, proto)
}

func TestMergeAppend(t *testing.T) {
	custom := []portcatalog.Port{{PortNum: 9999, Description: "custom"}}
	merged, err := portcatalog.Merge(portcatalog.DefaultTCPPorts, custom, portcatalog.IncludeExistingAppend, 8)
	require.NoError(t, err)
	assert.Equal(t, len(portcatalog.DefaultTCPPorts)+1, len(merged))
}

func TestMergeReplace(t *testing.T) {
	custom := []portcatalog.Port{{PortNum: 9999}}
	merged, err := portcatalog.Merge(portcatalog.DefaultTCPPorts, custom, portcatalog.IncludeExistingReplace, 8)
	require.NoError(t, err)
	assert.Equal(t, custom, merged)
}

func TestMergeRejectsDuplicate(t *testing.T) {
	dup := portcatalog.DefaultTCPPorts[0]
	_, err := portcatalog.Merge(portcatalog.DefaultTCPPorts, []portcatalog.Port{dup}, portcatalog.IncludeExistingAppend, 8)
	assert.Error(t, err)
}

func TestMergeRejectsTooManyCustomPorts(t *testing.T) {
	custom := make([]portcatalog.Port, 5)
	for i := range custom {
		custom[i].PortNum = uint16(20000 + i)
	}
	_, err := portcatalog.Merge(portcatalog.DefaultTCPPorts, custom, portcatalog.IncludeExistingAppend, 2)
	assert.Error(t, err)
}

func TestMergeRejectsOutOfRangePort(t *testing.T) {
	_, err := portcatalog.Merge(nil, []portcatalog.Port{{PortNum: 0}}, portcatalog.IncludeExistingAppend, 8)
	assert.Error(t, err)
}
