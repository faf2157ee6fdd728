// Package compare measures strain-level identity between profiles of
// different samples mapped to the same reference set.
//
// Every sample pair is compared scaffold by scaffold over the positions
// both samples cover adequately. Consensus ANI counts positions where
// the two consensus bases disagree; population ANI only counts positions
// where the samples share no allele at all, which makes it robust to
// uneven coverage of mixed populations.
package compare
