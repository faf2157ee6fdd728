// Package genes computes gene-level metrics over a finished profile.
//
// Gene calls come from a prodigal nucleotide FASTA (prodigal -d). Each
// gene is mapped back onto its scaffold's stored coverage, clonality,
// and divergent sites, and every eligible site inside a gene is typed as
// synonymous or nonsynonymous by mutating the gene sequence and
// comparing translations.
package genes
