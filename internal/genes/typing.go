package genes

import (
	"fmt"
	"strconv"
	"strings"
)

// SiteType classifies one divergent site against a scaffold's genes.
type SiteType struct {
	Gene string
	// MutationType is S (synonymous), N (nonsynonymous), I (intergenic),
	// or M (overlapping genes, ambiguous).
	MutationType string
	// Mutation spells the change, "S:<offset>" or "N:<old><offset><new>"
	// with the nucleotide offset inside the gene.
	Mutation string
}

// TypeSite determines how a substitution at pos changes the gene it lands
// in. The substituted base is varBase unless it matches the gene sequence,
// then conBase; a site inside overlapping genes cannot be attributed and
// comes back as M.
func TypeSite(scaffoldGenes []Gene, pos int, conBase, varBase byte) (SiteType, error) {
	var within []Gene
	for _, g := range scaffoldGenes {
		if g.Contains(pos) {
			within = append(within, g)
		}
	}
	switch len(within) {
	case 0:
		return SiteType{MutationType: "I"}, nil
	case 1:
	default:
		names := make([]string, len(within))
		for i, g := range within {
			names[i] = g.Name
		}
		return SiteType{MutationType: "M", Gene: strings.Join(names, ",")}, nil
	}

	gene := within[0]
	offset := pos - gene.Start
	if len(gene.Sequence) != gene.Length() {
		return SiteType{}, fmt.Errorf("gene %s: sequence length %d does not match span %d",
			gene.Name, len(gene.Sequence), gene.Length())
	}

	// Prodigal sequences are in coding orientation; mutate in genome
	// orientation, then translate both in coding orientation.
	genomic := gene.Sequence
	if gene.Direction < 0 {
		genomic = ReverseComplement(gene.Sequence)
	}
	mutated := append([]byte(nil), genomic...)
	mutated[offset] = varBase
	if mutated[offset] == genomic[offset] {
		mutated[offset] = conBase
	}

	oldCoding, newCoding := genomic, mutated
	if gene.Direction < 0 {
		oldCoding = ReverseComplement(genomic)
		newCoding = ReverseComplement(mutated)
	}
	oldAA := Translate(oldCoding)
	newAA := Translate(newCoding)

	for i := range oldAA {
		if newAA[i] != oldAA[i] {
			return SiteType{
				Gene:         gene.Name,
				MutationType: "N",
				Mutation:     "N:" + string(oldAA[i]) + strconv.Itoa(offset) + string(newAA[i]),
			}, nil
		}
	}
	return SiteType{
		Gene:         gene.Name,
		MutationType: "S",
		Mutation:     "S:" + strconv.Itoa(offset),
	}, nil
}
