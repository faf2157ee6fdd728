// Package snv calls nucleotide variants from per-position base counts and
// accumulates them into scaffold-level diversity metrics.
//
// A position's minimum variant count comes from a binomial null model of
// sequencing error: the smallest count whose probability of arising from
// errors alone, at the position's coverage, falls below the requested
// false discovery rate. Thresholds are cached per coverage because deep
// samples revisit the same coverages millions of times.
package snv
