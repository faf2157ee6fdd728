// Package quickprofile estimates per-scaffold and per-genome coverage from
// the BAM index alone. It never walks the pileup: read counts come from
// samtools idxstats, read length from a small alignment sample, and breadth
// from the expected-breadth curve. The estimates land in CSV tables, not in
// a profile database.
package quickprofile
