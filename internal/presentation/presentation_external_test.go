package presentation_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/presentation"
	"github.com/ipscand/ipscand/internal/resultcode"
	"github.com/ipscand/ipscand/internal/store"
)

func TestWriteJSONDumpShape(t *testing.T) {
	rows := []store.Row{
		{PortKey: portcatalog.EncodePortKey(80, 0, portcatalog.ProtocolTCP), Code: resultcode.PortOpen},
		{PortKey: portcatalog.EncodePortKey(0, 0, portcatalog.ProtocolICMPv6), Code: resultcode.Indirect(resultcode.EchoReply), IndirectHost: "2001:db8::1"},
	}

	var buf bytes.Buffer
	require.NoError(t, presentation.WriteJSONDump(&buf, rows))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	assert.EqualValues(t, 80, decoded[0]["port_num"])
	assert.EqualValues(t, resultcode.PortOpen, decoded[0]["result_code"])
	assert.NotContains(t, decoded[0], "indirect_host")

	assert.EqualValues(t, resultcode.EchoReply, decoded[1]["result_code"])
	assert.Equal(t, "2001:db8::1", decoded[1]["indirect_host"])
}

func TestRenderIntroFormProducesHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, presentation.RenderIntroForm(&buf))
	assert.Contains(t, buf.String(), "termsaccepted")
}

func TestRenderQueryTooLongProducesDistinctPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, presentation.RenderQueryTooLong(&buf))
	assert.Contains(t, buf.String(), "longer than my allocated buffer")
	assert.NotContains(t, buf.String(), "termsaccepted")
}

func TestRenderResultsPageListsRows(t *testing.T) {
	rows := []store.Row{
		{PortKey: portcatalog.EncodePortKey(22, 0, portcatalog.ProtocolTCP), Code: resultcode.PortRefused},
	}
	var buf bytes.Buffer
	require.NoError(t, presentation.RenderResultsPage(&buf, rows))
	assert.Contains(t, buf.String(), "RFSD")
}
