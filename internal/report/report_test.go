package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liupfskygre/inStrain/internal/profiledb"
	"github.com/liupfskygre/inStrain/internal/snv"
)

func TestRenderShowsHeaderAndRows(t *testing.T) {
	out := Render([]string{"name", "count"}, [][]string{{"a", "1"}, {"b", "22"}}, []Alignment{AlignLeft, AlignRight})
	for _, want := range []string{"NAME", "COUNT", "a", "22"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptyHeaders(t *testing.T) {
	if out := Render(nil, nil, nil); out != "" {
		t.Errorf("empty table rendered %q", out)
	}
}

func TestWriteTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	rows := [][]string{{"scaffold", "length"}, {"s1", "100"}}
	if err := WriteTSV(path, rows); err != nil {
		t.Fatalf("WriteTSV failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got := string(data); got != "scaffold\tlength\ns1\t100\n" {
		t.Errorf("tsv content = %q", got)
	}
}

func TestScaffoldInfoRow(t *testing.T) {
	rows := ScaffoldInfo([]snv.Metrics{{
		Scaffold: "s1", Length: 100, Coverage: 8, CoverageMedian: 10,
		Breadth: 0.8, DivergentSites: 2, SNVCount: 1, SNSCount: 1,
		ConANIReference: 0.9875, PopANIReference: 0.9875,
	}})
	if len(rows) != 2 {
		t.Fatalf("row count = %d, want header + 1", len(rows))
	}
	if len(rows[0]) != len(rows[1]) {
		t.Fatalf("header has %d columns, row has %d", len(rows[0]), len(rows[1]))
	}
	if rows[1][0] != "s1" || rows[1][1] != "100" || rows[1][3] != "10" {
		t.Errorf("row = %v", rows[1])
	}
}

func TestGeneInfoEmptyDiversity(t *testing.T) {
	rows := GeneInfo([]profiledb.GeneRecord{{
		Gene: "s1_1", Scaffold: "s1", Start: 10, End: 21, Direction: 1,
		NuclDiversity: -1,
	}})
	idx := -1
	for i, col := range rows[0] {
		if col == "nucl_diversity" {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatal("nucl_diversity column missing")
	}
	if rows[1][idx] != "" {
		t.Errorf("unset diversity rendered %q, want empty", rows[1][idx])
	}
	if rows[1][5] != "12" {
		t.Errorf("gene_length = %q, want 12", rows[1][5])
	}
}

func TestSNVInfoColumnsMatch(t *testing.T) {
	rows := SNVInfo([]profiledb.CallRecord{{
		Scaffold: "s1",
		Call: snv.Call{Position: 9, RefBase: 'A', ConBase: 'C', VarBase: 'C',
			Counts: [4]int{0, 10, 0, 0}, Coverage: 10, AlleleCount: 1,
			VarFreq: 1, Class: snv.ClassSNS},
		Gene: "s1_1", MutationType: "N", Mutation: "N:K4T",
	}})
	if len(rows[0]) != len(rows[1]) {
		t.Fatalf("header has %d columns, row has %d", len(rows[0]), len(rows[1]))
	}
	row := rows[1]
	if row[2] != "A" || row[3] != "C" || row[len(row)-1] != "N:K4T" {
		t.Errorf("row = %v", row)
	}
}
