// Package logging configures structured logging for instrain commands.
//
// Commands log through slog. Interactive output goes to a console handler
// that renders compact human-readable lines; profile runs additionally
// attach a JSON file sink inside the profile's log directory that records
// every level down to debug. The run-statistics reader consumes those JSON
// lines to reconstruct checkpoint timings after the fact.
package logging
