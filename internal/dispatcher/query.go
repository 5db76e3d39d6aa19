// Package dispatcher implements the HTTP request dispatcher: it parses the
// query string into a bounded set of recognized parameters, selects one of
// the scan/fetch/report modes, and orchestrates the probe supervisor and
// result store to produce a response.
package dispatcher

import (
	"strconv"
	"strings"
)

// queryParam is one parsed "name=value" pair. Valid is false when the
// value did not parse as a signed 64-bit integer (the original scanner's
// "valid-flag" bookkeeping): an invalid value still counts toward the
// per-name slot accounting (e.g. a malformed customport slot), it just
// never satisfies a mode's required-parameter check.
type queryParam struct {
	Name  string
	Value int64
	Valid bool
}

// queryLimits bounds query parsing, mirroring MAXQUERIES/MAXQUERYNAMELEN/
// MAXQUERYVALLEN.
type queryLimits struct {
	MaxQueries     int
	MaxNameLen     int
	MaxValLen      int
	MaxQueryStrLen int
}

// queryDrop describes one parameter parseQuery refused to keep, so the
// caller can log it (spec.md §7's "log+ignore on overrun", the original's
// ATTACK? marker on suspiciously oversized input).
type queryDrop struct {
	Name   string // lowercased name, truncated defensively by the caller if huge
	Reason string
}

// parseQuery parses raw (an http.Request's RawQuery) into a capped list of
// queryParam. Names are lowercased. An overlong raw query aborts the whole
// parse (overlong reports that case via the third return value so the
// caller can render a distinct error page, per spec.md §4.7's "an overlong
// full query aborts with an error page"). An overlong individual name or
// value drops just that entry, reported via drops so the caller can log it.
func parseQuery(raw string, limits queryLimits) (params []queryParam, drops []queryDrop, overlong bool) {
	if limits.MaxQueryStrLen > 0 && len(raw) > limits.MaxQueryStrLen {
		return nil, nil, true
	}

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" || len(params) >= limits.MaxQueries {
			continue
		}
		name, value, hasValue := strings.Cut(pair, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if limits.MaxNameLen > 0 && len(name) > limits.MaxNameLen {
			drops = append(drops, queryDrop{Name: name, Reason: "name_too_long"})
			continue
		}
		if limits.MaxValLen > 0 && len(value) > limits.MaxValLen {
			drops = append(drops, queryDrop{Name: name, Reason: "value_too_long"})
			continue
		}

		p := queryParam{Name: name}
		if hasValue {
			n, err := strconv.ParseInt(value, 10, 64)
			p.Value = n
			p.Valid = err == nil
		}
		params = append(params, p)

		if len(params) >= limits.MaxQueries {
			break
		}
	}
	return params, drops, false
}

// parsedQuery indexes parseQuery's output by name for the mode-selection
// logic, and collects customport0..N-1 slots in order.
type parsedQuery struct {
	byName      map[string]queryParam
	customPorts []queryParam // in customportN order, including invalid slots
	customFound []bool       // whether customportN was present at all, valid or not
}

func indexQuery(params []queryParam, numUserDefPorts int) parsedQuery {
	pq := parsedQuery{byName: make(map[string]queryParam, len(params))}
	pq.customPorts = make([]queryParam, numUserDefPorts)
	pq.customFound = make([]bool, numUserDefPorts)

	for _, p := range params {
		pq.byName[p.Name] = p
		if n, ok := customPortIndex(p.Name); ok && n < numUserDefPorts {
			pq.customPorts[n] = p
			pq.customFound[n] = true
		}
	}
	return pq
}

// allCustomPortsPresent reports whether every customport0..N-1 slot was
// present in the request, regardless of whether its value parsed as a
// valid in-range port (spec.md §4.7: "their presence, valid or not,
// counts"). Text mode requires the full set before attempting a scan.
func (q parsedQuery) allCustomPortsPresent() bool {
	for _, found := range q.customFound {
		if !found {
			return false
		}
	}
	return true
}

func customPortIndex(name string) (int, bool) {
	const prefix = "customport"
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(name[len(prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (q parsedQuery) int64(name string) (int64, bool) {
	p, ok := q.byName[name]
	if !ok || !p.Valid {
		return 0, false
	}
	return p.Value, true
}

func (q parsedQuery) has(name string) bool {
	_, ok := q.byName[name]
	return ok
}
