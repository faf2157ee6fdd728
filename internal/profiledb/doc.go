// Package profiledb persists profiling results for one sample.
//
// A profile lives in a directory with a fixed layout: final tables under
// output/, the SQLite database under raw_data/, figure data under
// figures/, and run logs under log/. The database holds everything the
// downstream operations need, including per-position coverage and
// clonality arrays stored as compressed blobs, so genes, genome_wide,
// compare, and plot can run against a finished profile without touching
// the BAM again.
package profiledb
