package genes

// Codon index order is TCAG per position, the classic translation-table
// layout. Stops are '*', codons with ambiguous bases translate to 'X'.
const codonAminoAcids = "FFLLSSSSYY**CC*WLLLLPPPPHHQQRRRRIIIMTTTTNNKKSSRRVVVVAAAADDEEGGGG"

func baseOrdinal(b byte) int {
	switch b {
	case 'T', 't':
		return 0
	case 'C', 'c':
		return 1
	case 'A', 'a':
		return 2
	case 'G', 'g':
		return 3
	default:
		return -1
	}
}

// TranslateCodon maps one codon to its amino acid.
func TranslateCodon(c1, c2, c3 byte) byte {
	o1, o2, o3 := baseOrdinal(c1), baseOrdinal(c2), baseOrdinal(c3)
	if o1 < 0 || o2 < 0 || o3 < 0 {
		return 'X'
	}
	return codonAminoAcids[o1*16+o2*4+o3]
}

// Translate converts a nucleotide sequence to amino acids, dropping any
// trailing partial codon.
func Translate(seq []byte) []byte {
	out := make([]byte, 0, len(seq)/3)
	for i := 0; i+2 < len(seq); i += 3 {
		out = append(out, TranslateCodon(seq[i], seq[i+1], seq[i+2]))
	}
	return out
}

// ReverseComplement returns the reverse complement of a nucleotide
// sequence. Ambiguous bases map to N.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = complementBase(b)
	}
	return out
}

func complementBase(b byte) byte {
	switch b {
	case 'A', 'a':
		return 'T'
	case 'T', 't':
		return 'A'
	case 'C', 'c':
		return 'G'
	case 'G', 'g':
		return 'C'
	default:
		return 'N'
	}
}
