// Package presentation renders the HTML pages and JSON dumps the
// dispatcher returns to the browser-side controller. The HTML templates are
// inline string literals; the JSON field names are the one piece of this
// layer the spec constrains directly: the polling client's JSON shape.
package presentation

import (
	"encoding/json"
	"io"

	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/resultcode"
	"github.com/ipscand/ipscand/internal/store"
)

// dumpRow is the wire shape of one JSON dump entry, matching the polling
// client's contract: port_num, special, protocol, result_code and, only
// when non-empty, indirect_host.
type dumpRow struct {
	PortNum      uint16 `json:"port_num"`
	Special      uint8  `json:"special"`
	Protocol     uint32 `json:"protocol"`
	ResultCode   int32  `json:"result_code"`
	IndirectHost string `json:"indirect_host,omitempty"`
}

// WriteJSONDump encodes rows as a JSON array in their natural store order
// and writes it to w with the JSON content-type header already expected to
// have been set by the caller.
func WriteJSONDump(w io.Writer, rows []store.Row) error {
	out := make([]dumpRow, 0, len(rows))
	for _, row := range rows {
		port, special, protocol := portcatalog.DecodePortKey(row.PortKey)
		out = append(out, dumpRow{
			PortNum:      port,
			Special:      special,
			Protocol:     uint32(protocol),
			ResultCode:   int32(resultcode.BaseCode(row.Code)),
			IndirectHost: row.IndirectHost,
		})
	}
	return json.NewEncoder(w).Encode(out)
}
