package logging

import "time"

// FormatTimestamp renders t for a single log line. format is a Go
// reference-time layout string (e.g. time.RFC3339); an empty format falls
// back to time.RFC3339, the only timestamp shape ipscand's own log lines
// need — there is no downstream log-shipping pipeline here choosing between
// epoch and human-readable stamps, unlike the teacher's multi-service setup.
func FormatTimestamp(t time.Time, format string) string {
	if format == "" {
		format = time.RFC3339
	}
	return t.Format(format)
}
