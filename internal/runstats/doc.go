// Package runstats reads a profile's run log back and summarizes it:
// wall time per checkpoint span, record and warning counts, and the size
// of everything the run left on disk. It consumes the JSON lines the
// logging package writes, so the log file is the only input it needs.
package runstats
