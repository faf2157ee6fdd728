// Package genomewide rolls scaffold-level profile metrics up to genomes.
//
// Scaffold-to-genome assignments come from stb files, two tab-separated
// columns of scaffold and genome name. Without an stb every scaffold
// falls into a single genome named all_scaffolds.
package genomewide
