package samtools

import (
	"context"
	"testing"
)

func TestParsePileupLine(t *testing.T) {
	line := "scaffold_1\t101\tA\t8\t..,,TTt^]G\tIIIIIIII"
	pileup, err := parsePileupLine(line)
	if err != nil {
		t.Fatalf("parsePileupLine: %v", err)
	}
	if pileup.Scaffold != "scaffold_1" || pileup.Pos != 101 || pileup.Ref != 'A' {
		t.Errorf("identity fields wrong: %+v", pileup)
	}
	if pileup.Counts[0] != 4 {
		t.Errorf("A count = %d, want 4 from reference matches", pileup.Counts[0])
	}
	if pileup.Counts[3] != 3 {
		t.Errorf("T count = %d, want 3", pileup.Counts[3])
	}
	if pileup.Counts[2] != 1 {
		t.Errorf("G count = %d, want 1 (read-start mapq byte must be skipped)", pileup.Counts[2])
	}
	if pileup.Coverage() != 8 {
		t.Errorf("Coverage = %d, want 8", pileup.Coverage())
	}
}

func TestDecodeBasesSkipsIndelRuns(t *testing.T) {
	// Two ref matches, then an insertion of 3 bases attached to the first
	// read, then a substitution.
	pileup := Pileup{Ref: 'C'}
	if err := decodeBases(".+3ACG,G", &pileup); err != nil {
		t.Fatalf("decodeBases: %v", err)
	}
	if pileup.Counts[1] != 2 {
		t.Errorf("C count = %d, want 2", pileup.Counts[1])
	}
	if pileup.Counts[2] != 1 {
		t.Errorf("G count = %d, want 1 (inserted bases must not count)", pileup.Counts[2])
	}
}

func TestDecodeBasesCountsDeletions(t *testing.T) {
	pileup := Pileup{Ref: 'G'}
	if err := decodeBases("..**,$", &pileup); err != nil {
		t.Fatalf("decodeBases: %v", err)
	}
	if pileup.Counts[2] != 3 {
		t.Errorf("G count = %d, want 3", pileup.Counts[2])
	}
	if pileup.Deletions != 2 {
		t.Errorf("Deletions = %d, want 2", pileup.Deletions)
	}
	if pileup.Coverage() != 3 {
		t.Errorf("Coverage = %d, want 3 (deletions excluded)", pileup.Coverage())
	}
}

func TestDecodeBasesRejectsBareIndelMarker(t *testing.T) {
	pileup := Pileup{Ref: 'A'}
	if err := decodeBases(".+X", &pileup); err == nil {
		t.Fatal("expected error for indel marker without length")
	}
}

func TestParsePileupRejectsShortRows(t *testing.T) {
	if _, err := parsePileupLine("scaffold\t1\tA"); err == nil {
		t.Fatal("expected error for truncated pileup row")
	}
}

func TestStreamPileupArgs(t *testing.T) {
	exec := &fakeExecutor{outputs: [][]string{{
		"scaffold_1\t5\tC\t3\t...\tIII",
	}}}
	client := newTestClient(t, exec)
	var got []Pileup
	err := client.StreamPileup(context.Background(), "in.bam", "ref.fasta", "scaffold_1", 30, func(p Pileup) error {
		got = append(got, p)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamPileup: %v", err)
	}
	if len(got) != 1 || got[0].Counts[1] != 3 {
		t.Errorf("stream results = %+v", got)
	}
	args := exec.calls[0]
	want := map[string]bool{"-f": false, "-r": false, "-Q": false, "-d": false}
	for _, arg := range args {
		if _, ok := want[arg]; ok {
			want[arg] = true
		}
	}
	for flag, seen := range want {
		if !seen {
			t.Errorf("mpileup args missing %s: %v", flag, args)
		}
	}
}
