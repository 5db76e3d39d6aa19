package dispatcher_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipscand/ipscand/internal/config"
	"github.com/ipscand/ipscand/internal/dispatcher"
	"github.com/ipscand/ipscand/internal/logging"
	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/probe"
	"github.com/ipscand/ipscand/internal/store"
)

func newTestDispatcher(t *testing.T) (*dispatcher.Dispatcher, store.Store) {
	t.Helper()
	s := store.NewMemStore()
	t.Cleanup(func() { _ = s.Close() })

	return &dispatcher.Dispatcher{
		Store:  s,
		Logger: logging.New(logging.LevelError),
		Scan: config.ScanConfig{
			MaxChildren:         4,
			MaxUDPChildren:      4,
			MaxPortsPerChild:    2,
			MaxUDPPortsPerChild: 2,
			NumUserDefPorts:     0,
			MaxQueries:          64,
			MaxQueryStrLen:      256,
			MaxQueryNameLen:     20,
			MaxQueryValLen:      32,
		},
		Lifecycle: config.StoreConfig{
			DeleteTimeout:          config.Duration(200 * time.Millisecond),
			TestStateCompleteSleep: config.Duration(20 * time.Millisecond),
			DeleteWaitPeriod:       config.Duration(20 * time.Millisecond),
		},
		TCPProbe: probe.NewTCPProbe(20 * time.Millisecond),
		UDPProbe: probe.NewUDPProbe(20 * time.Millisecond),
		TCPPorts: []portcatalog.Port{{PortNum: 65001, Description: "test"}},
		UDPPorts: []portcatalog.Port{{PortNum: 65002, Description: "test"}},
	}, s
}

// capturingWriter is a minimal logging.EventWriter that records every event
// it receives, letting tests assert on the "attack" metadata flag without
// parsing a formatted log line.
type capturingWriter struct {
	events []logging.LogEvent
}

func (c *capturingWriter) Write(event logging.LogEvent) error {
	c.events = append(c.events, event)
	return nil
}

func (c *capturingWriter) Close() error { return nil }

func doGet(d *dispatcher.Dispatcher, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", target, nil)
	req.RemoteAddr = "[::1]:54321"
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)
	return w
}

func TestModeEmptyQueryRendersIntroForm(t *testing.T) {
	d, _ := newTestDispatcher(t)
	w := doGet(d, "/")
	assert.Contains(t, w.Body.String(), "termsaccepted")
}

func TestModeOverlongQueryRendersDistinctAbortPage(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Scan.MaxQueryStrLen = 10
	w := doGet(d, "/?termsaccepted=1&includeexisting=1")
	assert.Contains(t, w.Body.String(), "longer than my allocated buffer")
	assert.NotContains(t, w.Body.String(), "termsaccepted")
}

func TestOverlongParamValueIsDroppedAndLoggedAsAttack(t *testing.T) {
	d, _ := newTestDispatcher(t)
	capture := &capturingWriter{}
	d.Logger = logging.New(logging.LevelWarn, capture)

	overlongValue := fmt.Sprintf("%041d", 0) // exceeds MaxQueryValLen (32)
	doGet(d, "/?termsaccepted=1&includeexisting=1&session="+overlongValue)

	var found bool
	for _, ev := range capture.events {
		if ev.EventType == "param_dropped" && ev.Metadata["attack"] == true {
			found = true
		}
	}
	assert.True(t, found, "expected a param_dropped event with attack=true")
}

func TestModeTermsNotAcceptedRendersTerms(t *testing.T) {
	d, _ := newTestDispatcher(t)
	w := doGet(d, "/?termsaccepted=0&includeexisting=1")
	assert.Contains(t, w.Body.String(), "Terms of Use")
}

func TestModeBeginScanThenFetchDumpThenCompletion(t *testing.T) {
	d, s := newTestDispatcher(t)
	qs := "termsaccepted=1&starttime=1700000000&session=42&beginscan=1&includeexisting=1"

	w := doGet(d, "/?"+qs)
	assert.Contains(t, w.Body.String(), `"started":true`)

	// Allow the background scan goroutine to make progress.
	time.Sleep(50 * time.Millisecond)

	fetchResp := doGet(d, fmt.Sprintf("/?%s&fetch=1&fetchnum=1", qs))
	assert.Contains(t, fetchResp.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, fetchResp.Body.String(), "[")

	completeResp := doGet(d, fmt.Sprintf("/?%s&fetch=1&fetchnum=100", qs))
	assert.Equal(t, "[]", completeResp.Body.String())

	_ = s // keep store reference for potential direct inspection
}

func TestModeStartPageRendersForBareSessionTuple(t *testing.T) {
	d, _ := newTestDispatcher(t)
	w := doGet(d, "/?termsaccepted=1&starttime=1700000000&session=42&includeexisting=1")
	assert.Contains(t, w.Body.String(), "data-session")
}

func TestModeTextScanRunsSynchronouslyAndDeletesRows(t *testing.T) {
	d, s := newTestDispatcher(t)
	w := doGet(d, "/?termsaccepted=1&includeexisting=1")
	assert.Contains(t, w.Body.String(), "Scan results")

	// A negative retention makes Tidy reclaim every session still stored, so
	// reclaiming none shows the text-mode scan already deleted its rows.
	n, err := s.Tidy(context.Background(), -time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestModeNothingUsefulWhenNoRecognizedModeMatches(t *testing.T) {
	d, _ := newTestDispatcher(t)
	// With NumUserDefPorts == 0 an empty customport set still counts as
	// "complete", so force a required slot that this request never supplies.
	d.Scan.NumUserDefPorts = 1
	w := doGet(d, "/?termsaccepted=1&unrelated=5")
	assert.Contains(t, w.Body.String(), "Nothing to do")
}

func TestHeadRequestReturnsHeadersOnly(t *testing.T) {
	d, _ := newTestDispatcher(t)
	req := httptest.NewRequest("HEAD", "/", nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestNonGetMethodReturnsPoliteText(t *testing.T) {
	d, _ := newTestDispatcher(t)
	req := httptest.NewRequest("POST", "/", nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "GET and HEAD")
}
