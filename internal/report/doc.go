// Package report turns stored profile records into the output tables:
// tab-separated files under a profile's output directory and rendered
// tables for the console. Row builders return the header as row zero so
// writers and renderers stay generic.
package report
