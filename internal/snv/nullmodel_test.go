package snv

import "testing"

func TestNullModelKnownThresholds(t *testing.T) {
	model := NewNullModel(1e-6)

	cases := []struct {
		coverage int
		want     int
	}{
		{coverage: 5, want: 3},
		{coverage: 10, want: 3},
		{coverage: 100, want: 5},
	}
	for _, tc := range cases {
		if got := model.MinCount(tc.coverage); got != tc.want {
			t.Errorf("MinCount(%d) = %d, want %d", tc.coverage, got, tc.want)
		}
	}
}

func TestNullModelMonotonic(t *testing.T) {
	model := NewNullModel(1e-6)

	prev := 0
	for coverage := 2; coverage <= 2000; coverage += 7 {
		got := model.MinCount(coverage)
		if got < prev {
			t.Fatalf("MinCount(%d) = %d, below previous threshold %d", coverage, got, prev)
		}
		prev = got
	}
}

func TestNullModelLooserFDRLowersThreshold(t *testing.T) {
	strict := NewNullModel(1e-6)
	loose := NewNullModel(0.05)

	if s, l := strict.MinCount(100), loose.MinCount(100); l > s {
		t.Errorf("fdr 0.05 threshold %d exceeds fdr 1e-6 threshold %d", l, s)
	}
	if got := loose.MinCount(100); got != 2 {
		t.Errorf("MinCount(100) at fdr 0.05 = %d, want 2", got)
	}
}

func TestNullModelCoverageCap(t *testing.T) {
	model := NewNullModel(1e-6)

	capped := model.MinCount(coverageCap)
	if got := model.MinCount(coverageCap + 5000); got != capped {
		t.Errorf("MinCount above cap = %d, want %d", got, capped)
	}
}

func TestNullModelCacheStable(t *testing.T) {
	model := NewNullModel(1e-6)

	first := model.MinCount(50)
	if second := model.MinCount(50); second != first {
		t.Errorf("cached MinCount(50) = %d, first call gave %d", second, first)
	}
}
