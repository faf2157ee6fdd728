// Package samtools wraps the samtools command line for alignment access.
//
// instrain never parses BAM files directly. Every read of alignment data
// goes through a samtools subprocess: view for headers, records and
// expression-based filtering, sort and index for preparation, mpileup for
// per-position base counts, and idxstats for mapping summaries. The Client
// streams subprocess stdout line by line so multi-gigabyte outputs never
// accumulate in memory.
package samtools
