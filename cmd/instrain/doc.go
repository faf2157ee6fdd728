// Command instrain analyzes co-occurring microbial populations in
// shotgun metagenomic read mappings: nucleotide diversity, SNV calling,
// genome-level summaries, and detailed pairwise sample comparison.
//
// The binary refuses to start on an unsupported runtime, translates
// arguments into typed requests, and hands them to a single pipeline
// controller. Exit codes: 0 success, 1 operation failure, 2 usage error,
// 3 unsupported runtime.
package main
