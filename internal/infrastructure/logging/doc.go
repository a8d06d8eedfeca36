// Package logging builds the process-wide slog logger for docbind.
//
// Entries carry service=docbind and the build version. The config block
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// selects level, encoding and destination. Components derive children
// with With("component", ...), and the embedded *slog.Logger is what the
// database, driver and MQTT packages accept.
//
// Values logged under the keys password, secret or token are replaced
// with [REDACTED] at any group depth. Connection URIs are logged with the
// password masked (url.URL.Redacted).
package logging
