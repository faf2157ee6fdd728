package deps

import "testing"

func TestCheckBinariesFindsShell(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Shell", Command: "sh", Description: "test"}})
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if !results[0].Available {
		t.Errorf("sh reported unavailable: %s", results[0].Detail)
	}
	if results[0].Detail == "" {
		t.Error("expected resolved path in detail")
	}
}

func TestCheckBinariesMissing(t *testing.T) {
	results := CheckBinaries([]Requirement{
		{Name: "Ghost", Command: "definitely-not-a-real-binary-xyz"},
		{Name: "Empty", Command: "   "},
	})
	for _, status := range results {
		if status.Available {
			t.Errorf("%s reported available", status.Name)
		}
		if status.Detail == "" {
			t.Errorf("%s missing detail", status.Name)
		}
	}
}
