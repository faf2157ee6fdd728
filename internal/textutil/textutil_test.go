package textutil

import "testing"

func TestCount(t *testing.T) {
	cases := map[int64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		1234567:    "1,234,567",
		-42000:     "-42,000",
		1000000000: "1,000,000,000",
	}
	for n, want := range cases {
		if got := Count(n); got != want {
			t.Errorf("Count(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(934, 1000); got != "93.40%" {
		t.Errorf("Percent(934, 1000) = %q", got)
	}
	if got := Percent(1, 0); got != "0.00%" {
		t.Errorf("Percent with zero whole = %q", got)
	}
}
