package dispatcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"time"

	"github.com/ipscand/ipscand/internal/config"
	"github.com/ipscand/ipscand/internal/logging"
	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/presentation"
	"github.com/ipscand/ipscand/internal/probe"
	"github.com/ipscand/ipscand/internal/resultcode"
	"github.com/ipscand/ipscand/internal/session"
	"github.com/ipscand/ipscand/internal/store"
	"github.com/ipscand/ipscand/internal/supervisor"
)

// magicBegin is the beginscan value that selects scan-initiation mode
// (IPSCAN_MAGIC_BEGIN).
const magicBegin = 1

// successfulCompletionThreshold is IPSCAN_SUCCESSFUL_COMPLETION: wire
// fetchnum values below it are plain incremental-poll counters with no
// semantic content beyond "still polling"; at or above it, fetchnum minus
// the threshold indexes session.FetchCode (0 is a clean completion, the
// rest are client-observed failure modes).
const successfulCompletionThreshold int64 = 100

// Dispatcher implements spec.md §4.7/§6: it parses a request's query
// string, selects one of the eight recognized modes, and orchestrates the
// probe supervisor and result store to produce a response. It holds no
// per-request state; one Dispatcher serves every request concurrently.
type Dispatcher struct {
	Store     store.Store
	Logger    logging.Logger
	Scan      config.ScanConfig
	Lifecycle config.StoreConfig

	TCPProbe    *probe.TCPProbe
	UDPProbe    *probe.UDPProbe
	ICMPv6Probe *probe.ICMPv6Probe // nil disables the echo probe entirely

	TCPPorts []portcatalog.Port
	UDPPorts []portcatalog.Port
}

func (d *Dispatcher) queryLimits() queryLimits {
	return queryLimits{
		MaxQueries:     d.Scan.MaxQueries,
		MaxNameLen:     d.Scan.MaxQueryNameLen,
		MaxValLen:      d.Scan.MaxQueryValLen,
		MaxQueryStrLen: d.Scan.MaxQueryStrLen,
	}
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer func() {
		if n, err := d.Store.Tidy(ctx, d.Lifecycle.DeleteTimeout.Duration()); err != nil {
			d.Logger.Warn("dispatcher", "tidy_failed", err.Error(), nil)
		} else if n > 0 {
			d.Logger.Info("dispatcher", "tidy", "reclaimed expired sessions", map[string]any{"count": n})
		}
	}()

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "This endpoint only accepts GET and HEAD requests.")
		return
	}

	params, drops, overlong := parseQuery(r.URL.RawQuery, d.queryLimits())
	if overlong {
		d.Logger.Warn("dispatcher", "query_too_long", "QUERY_STRING exceeded the configured maximum", map[string]any{
			"remote_addr": r.RemoteAddr,
			"length":      len(r.URL.RawQuery),
			"attack":      true,
		})
		d.renderHTML(w, presentation.RenderQueryTooLong)
		return
	}
	for _, drop := range drops {
		d.Logger.Warn("dispatcher", "param_dropped", "query parameter exceeded its configured length cap", map[string]any{
			"remote_addr": r.RemoteAddr,
			"name":        drop.Name,
			"reason":      drop.Reason,
			"attack":      true,
		})
	}
	if len(params) == 0 {
		d.renderHTML(w, presentation.RenderIntroForm)
		return
	}

	q := indexQuery(params, d.Scan.NumUserDefPorts)

	termsAccepted, _ := q.int64("termsaccepted")
	if termsAccepted != 1 {
		d.renderHTML(w, presentation.RenderTerms)
		return
	}

	fetch, hasFetch := q.int64("fetch")
	fetchNum, hasFetchNum := q.int64("fetchnum")
	key, hasKey := d.sessionKey(q, r)

	if hasFetch && fetch == 1 && hasFetchNum && fetchNum >= successfulCompletionThreshold {
		d.handleCompletionReport(ctx, w, key, hasKey, session.FetchCode(fetchNum-successfulCompletionThreshold))
		return
	}

	if hasFetch && fetch == 1 && hasKey {
		d.handleFetchDump(ctx, w, key)
		return
	}

	beginScan, hasBeginScan := q.int64("beginscan")
	if hasBeginScan && beginScan == magicBegin && hasKey {
		d.handleBeginScan(ctx, w, key, q)
		return
	}

	// Mode 6: the javascript client has a full session tuple and is asking
	// for the polling page itself, distinct from the AJAX call (mode 5)
	// that actually kicks the scan off.
	if hasKey && !hasFetch && !hasBeginScan {
		d.renderHTML(w, func(w io.Writer) error {
			return presentation.RenderStartPage(w, key.StartTime, key.SessionID)
		})
		return
	}

	// Mode 7: text mode. A client with no JavaScript never generates its
	// own starttime/session (spec.md's session-tuple definition: session_id
	// is "client-generated, or in text mode, server-generated"), so the
	// absence of a usable session tuple plus a complete customport set is
	// the signal to fall back to a synchronous, server-minted scan.
	if !hasKey && q.allCustomPortsPresent() {
		d.handleTextModeScan(ctx, w, r, q)
		return
	}

	d.Logger.Warn("dispatcher", "nothing_useful", "request carried no actionable mode", map[string]any{
		"remote_addr": r.RemoteAddr,
		"query":       r.URL.RawQuery,
	})
	d.renderHTML(w, presentation.RenderNothingUseful)
}

// renderHTML is a shim so RenderStartPage (which takes extra args) and the
// zero-arg renderers share one response-writing path.
func (d *Dispatcher) renderHTML(w http.ResponseWriter, render func(w io.Writer) error) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render(w); err != nil {
		d.Logger.Error("dispatcher", "render_failed", err.Error(), nil)
	}
	return nil
}

// sessionKey derives the session tuple from the request's remote address and
// the starttime/session query parameters. hasKey is false if the address
// could not be parsed as IPv6 or starttime/session are missing or negative.
func (d *Dispatcher) sessionKey(q parsedQuery, r *http.Request) (session.Key, bool) {
	startTime, ok := q.int64("starttime")
	if !ok || startTime < 0 {
		return session.Key{}, false
	}
	sessionID, ok := q.int64("session")
	if !ok || sessionID < 0 {
		return session.Key{}, false
	}

	addr, err := remoteIP(r.RemoteAddr)
	if err != nil {
		return session.Key{}, false
	}

	key, err := session.NewKey(addr, uint64(startTime), uint64(sessionID))
	if err != nil {
		return session.Key{}, false
	}
	return key, true
}

// remoteIP extracts and parses the caller's IPv6 address from an
// http.Request's RemoteAddr ("[addr]:port" or bare "addr").
func remoteIP(remoteAddr string) (netip.Addr, error) {
	host := remoteAddr
	if addrPort, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return addrPort.Addr(), nil
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("dispatcher: unparseable remote address %q: %w", remoteAddr, err)
	}
	return addr, nil
}

// handleCompletionReport implements spec.md §4.8: fold a client-reported
// fetch code into the stored test-state bitfield.
func (d *Dispatcher) handleCompletionReport(ctx context.Context, w http.ResponseWriter, key session.Key, hasKey bool, fetch session.FetchCode) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if !hasKey {
		fmt.Fprint(w, "[]")
		return
	}

	if fetch > session.FetchUnexpectedChange {
		d.Logger.Warn("dispatcher", "unrecognized_fetchnum", "client reported an unrecognized completion code", map[string]any{
			"session": key.String(),
			"fetch":   int(fetch),
		})
	}

	row, ok, err := d.Store.Read(ctx, key, portcatalog.TestStateKey())
	databaseError := err != nil || !ok
	if err != nil {
		d.Logger.Warn("dispatcher", "read_failed", err.Error(), map[string]any{"session": key.String()})
	}

	var current session.TestState
	if ok {
		current = session.TestState(row.Code)
	}
	next := current.Apply(fetch, databaseError)

	if err := d.Store.Update(ctx, key, store.Row{PortKey: portcatalog.TestStateKey(), Code: resultcode.Code(next)}); err != nil {
		d.Logger.Error("dispatcher", "update_failed", err.Error(), map[string]any{"session": key.String()})
	}

	fmt.Fprint(w, "[]")
}

// handleFetchDump implements the JSON polling endpoint: every row currently
// stored for key, in the store's natural order.
func (d *Dispatcher) handleFetchDump(ctx context.Context, w http.ResponseWriter, key session.Key) {
	rows, err := d.Store.Dump(ctx, key)
	if err != nil {
		d.Logger.Error("dispatcher", "dump_failed", err.Error(), map[string]any{"session": key.String()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := presentation.WriteJSONDump(w, rows); err != nil {
		d.Logger.Error("dispatcher", "encode_failed", err.Error(), nil)
	}
}

// handleBeginScan initiates a new asynchronous (javascript-mode) scan: it
// writes the RUNNING test-state row, launches the probe supervisors in the
// background (outliving this request), and acknowledges immediately so the
// caller's AJAX call returns without waiting for the scan. The polling
// client already has the start page (mode 6); this call is fire-and-forget.
func (d *Dispatcher) handleBeginScan(ctx context.Context, w http.ResponseWriter, key session.Key, q parsedQuery) {
	ports, err := d.resolvePorts(q)
	if err != nil {
		d.Logger.Warn("dispatcher", "bad_ports", err.Error(), map[string]any{"session": key.String()})
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		fmt.Fprint(w, `{"started":false}`)
		return
	}

	if err := d.Store.Write(ctx, key, store.Row{PortKey: portcatalog.TestStateKey(), Code: resultcode.Code(session.Running)}); err != nil {
		d.Logger.Error("dispatcher", "write_running_failed", err.Error(), map[string]any{"session": key.String()})
	}

	go d.runScanAndWait(context.WithoutCancel(ctx), key, ports)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprint(w, `{"started":true}`)
}

// handleTextModeScan implements the synchronous (no-javascript) path: mint
// a server-side session tuple (there is no JS client to generate one), run
// the full scan to completion inline, render the single results page, then
// delete the session's rows immediately (spec.md §4.7 mode 7; DESIGN NOTES
// §9 treats text mode as strictly single-shot).
func (d *Dispatcher) handleTextModeScan(ctx context.Context, w http.ResponseWriter, r *http.Request, q parsedQuery) {
	addr, err := remoteIP(r.RemoteAddr)
	if err != nil {
		d.Logger.Warn("dispatcher", "unparseable_remote_addr", err.Error(), map[string]any{"remote_addr": r.RemoteAddr})
		d.renderHTML(w, presentation.RenderNothingUseful)
		return
	}
	sessionID, err := session.NewSessionID()
	if err != nil {
		d.Logger.Error("dispatcher", "session_id_failed", err.Error(), nil)
		d.renderHTML(w, presentation.RenderNothingUseful)
		return
	}
	key, err := session.NewKey(addr, uint64(time.Now().Unix()), sessionID)
	if err != nil {
		d.Logger.Error("dispatcher", "session_key_failed", err.Error(), nil)
		d.renderHTML(w, presentation.RenderNothingUseful)
		return
	}

	ports, err := d.resolvePorts(q)
	if err != nil {
		d.Logger.Warn("dispatcher", "bad_ports", err.Error(), map[string]any{"session": key.String()})
		d.renderHTML(w, presentation.RenderNothingUseful)
		return
	}

	d.runScan(ctx, key, ports)

	rows, err := d.Store.Dump(ctx, key)
	if err != nil {
		d.Logger.Error("dispatcher", "dump_failed", err.Error(), map[string]any{"session": key.String()})
	}

	d.renderHTML(w, func(w io.Writer) error {
		return presentation.RenderResultsPage(w, rows)
	})

	if err := d.Store.Delete(ctx, key); err != nil {
		d.Logger.Error("dispatcher", "delete_failed", err.Error(), map[string]any{"session": key.String()})
	}
}

// resolvePorts merges the configured default TCP port list with any
// customportN values present in q, per includeexisting's ±1 semantics
// (spec.md §4.7). Custom ports are always scanned as TCP, matching the
// original scanner's customport handling.
func (d *Dispatcher) resolvePorts(q parsedQuery) ([]portcatalog.Port, error) {
	includeExisting := portcatalog.IncludeExistingAppend
	if v, ok := q.int64("includeexisting"); ok && v == int64(portcatalog.IncludeExistingReplace) {
		includeExisting = portcatalog.IncludeExistingReplace
	}

	var custom []portcatalog.Port
	for _, p := range q.customPorts {
		if !p.Valid {
			continue
		}
		if p.Value < portcatalog.MinValidPort || p.Value > portcatalog.MaxValidPort {
			continue
		}
		custom = append(custom, portcatalog.Port{PortNum: uint16(p.Value), Description: "custom"})
	}

	return portcatalog.Merge(d.TCPPorts, custom, includeExisting, d.Scan.NumUserDefPorts)
}

// runScan runs the TCP, UDP, and (if enabled) ICMPv6 probes for key against
// its own address, writing every outcome to the store. It does not touch
// test-state; callers decide when and how to mark completion.
func (d *Dispatcher) runScan(ctx context.Context, key session.Key, tcpPorts []portcatalog.Port) {
	target := key.Addr().String()
	limits := supervisor.Limits{FanOutMax: d.Scan.MaxChildren, ChunkSize: d.Scan.MaxPortsPerChild}
	udpLimits := supervisor.Limits{FanOutMax: d.Scan.MaxUDPChildren, ChunkSize: d.Scan.MaxUDPPortsPerChild}

	for _, err := range supervisor.RunTCP(ctx, target, key, tcpPorts, d.TCPProbe, d.Store, limits) {
		d.Logger.Warn("supervisor.tcp", "probe_error", err.Error(), map[string]any{"session": key.String()})
	}
	for _, err := range supervisor.RunUDP(ctx, target, key, d.UDPPorts, d.UDPProbe, d.Store, udpLimits) {
		d.Logger.Warn("supervisor.udp", "probe_error", err.Error(), map[string]any{"session": key.String()})
	}

	if d.ICMPv6Probe != nil {
		if err := supervisor.RunICMPv6(ctx, target, key, d.ICMPv6Probe, d.Store); err != nil {
			d.Logger.Warn("supervisor.icmpv6", "probe_error", err.Error(), map[string]any{"session": key.String()})
		}
	}
}

// runScanAndWait runs the scan, waits for the client to report a terminal
// test-state (or for the delete timeout to pass), and reclaims its rows,
// implementing the server-side completion-wait fallback. It never writes the
// test-state row itself: after a timeout the row keeps whatever the client
// last reported. It is launched in
// its own goroutine by handleBeginScan and outlives the originating request.
func (d *Dispatcher) runScanAndWait(ctx context.Context, key session.Key, tcpPorts []portcatalog.Port) {
	d.runScan(ctx, key, tcpPorts)

	fetch := func(ctx context.Context) (session.TestState, error) {
		row, ok, err := d.Store.Read(ctx, key, portcatalog.TestStateKey())
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		return session.TestState(row.Code), nil
	}
	del := func(ctx context.Context) error {
		return d.Store.Delete(ctx, key)
	}

	_, err := session.WaitThenDelete(ctx,
		d.Lifecycle.DeleteTimeout.Duration(),
		d.Lifecycle.TestStateCompleteSleep.Duration(),
		d.Lifecycle.DeleteWaitPeriod.Duration(),
		fetch, del)
	if err != nil {
		d.Logger.Warn("dispatcher", "wait_then_delete_failed", err.Error(), map[string]any{"session": key.String()})
	}
}
