// Package pipeline executes validated command requests. One Controller
// serves a whole process; its Execute method dispatches a request to the
// matching operation and runs it to completion. Operations that write a
// profile directory hold its lock for the duration, log checkpoints into
// the run log, and leave their tables under output/.
//
// Errors escape Execute as *Failure values carrying the underlying cause
// verbatim, so a failed write reports the filesystem's own words.
package pipeline
