// Package request defines the validated request types that commands hand
// to the pipeline controller.
//
// Command-line parsing lives in cmd/instrain; this package owns what a
// complete request means. Every type normalizes interacting defaults
// (database mode, derived output names, FDR floor) and then validates
// itself. A request that fails Validate never reaches the controller, so
// downstream code can assume fields are consistent.
package request
