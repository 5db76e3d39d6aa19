package presentation

import (
	"html/template"
	"io"

	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/resultcode"
	"github.com/ipscand/ipscand/internal/store"
)

var introTemplate = template.Must(template.New("intro").Parse(`<!DOCTYPE html>
<html><head><title>IPv6 Port Scanner</title></head>
<body>
<h1>IPv6 Port Scanner</h1>
<p>This service probes your IPv6 address's TCP ports, UDP ports, and ICMPv6 echo reachability and reports which respond.</p>
<form method="get" action="">
<input type="hidden" name="termsaccepted" value="0">
<p><label><input type="checkbox" name="termsaccepted" value="1"> I accept the terms of use.</label></p>
<button type="submit">Continue</button>
</form>
</body></html>
`))

var termsTemplate = template.Must(template.New("terms").Parse(`<!DOCTYPE html>
<html><head><title>Terms of Use</title></head>
<body>
<h1>Terms of Use</h1>
<p>By continuing you accept that this service will attempt to connect to your IPv6 address from the public internet for diagnostic purposes only.</p>
<p>Please accept the terms on the previous page to proceed.</p>
</body></html>
`))

var nothingUsefulTemplate = template.Must(template.New("nothing").Parse(`<!DOCTYPE html>
<html><head><title>Nothing to do</title></head>
<body>
<h1>Nothing useful to do</h1>
<p>The request did not include enough information to start or continue a scan.</p>
</body></html>
`))

var queryTooLongTemplate = template.Must(template.New("querytoolong").Parse(`<!DOCTYPE html>
<html><head><title>IPv6 Port Scanner</title></head>
<body>
<p>I was called with a query string longer than my allocated buffer. That is very disappointing.</p>
</body></html>
`))

type startPageData struct {
	StartTime int64
	Session   uint64
}

var startTemplate = template.Must(template.New("start").Parse(`<!DOCTYPE html>
<html><head><title>Scan in progress</title></head>
<body>
<h1>Scan in progress</h1>
<p data-starttime="{{.StartTime}}" data-session="{{.Session}}">Your scan is running. This page polls for results as they arrive.</p>
<div id="results"></div>
</body></html>
`))

type resultRow struct {
	PortNum     uint16
	Label       string
	Color       string
	Description string
}

type resultsPageData struct {
	Rows []resultRow
}

var resultsTemplate = template.Must(template.New("results").Parse(`<!DOCTYPE html>
<html><head><title>Scan results</title></head>
<body>
<h1>Scan results</h1>
<table border="1">
<tr><th>Port</th><th>Result</th><th>Description</th></tr>
{{range .Rows}}<tr style="background-color:{{.Color}}"><td>{{.PortNum}}</td><td>{{.Label}}</td><td>{{.Description}}</td></tr>
{{end}}</table>
</body></html>
`))

// RenderIntroForm renders the introductory terms-acceptance form shown when
// the request carries no recognized query parameters.
func RenderIntroForm(w io.Writer) error { return introTemplate.Execute(w, nil) }

// RenderTerms renders the terms page shown when termsaccepted != 1.
func RenderTerms(w io.Writer) error { return termsTemplate.Execute(w, nil) }

// RenderNothingUseful renders the fallback page for a request with no mode
// the dispatcher recognizes.
func RenderNothingUseful(w io.Writer) error { return nothingUsefulTemplate.Execute(w, nil) }

// RenderQueryTooLong renders the distinct abort page for a query string
// longer than MAXQUERYSTRLEN, echoing the original scanner's own wording
// (ipscan.c's QUERY_STRING-overlong branch) rather than folding into the
// empty-query intro form.
func RenderQueryTooLong(w io.Writer) error { return queryTooLongTemplate.Execute(w, nil) }

// RenderStartPage renders the javascript-mode page that kicks off the
// browser-side polling loop against the given session tuple.
func RenderStartPage(w io.Writer, startTime, sessionID uint64) error {
	return startTemplate.Execute(w, startPageData{StartTime: int64(startTime), Session: sessionID})
}

// RenderResultsPage renders the synchronous, single-page results table used
// by the text-mode (no-javascript) path.
func RenderResultsPage(w io.Writer, rows []store.Row) error {
	data := resultsPageData{Rows: make([]resultRow, 0, len(rows))}
	for _, row := range rows {
		entry := resultcode.Lookup(row.Code)
		port, _, _ := portcatalog.DecodePortKey(row.PortKey)
		data.Rows = append(data.Rows, resultRow{
			PortNum:     port,
			Label:       entry.Label,
			Color:       entry.Color,
			Description: entry.Description,
		})
	}
	return resultsTemplate.Execute(w, data)
}
