package compare

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/liupfskygre/inStrain/internal/profiledb"
)

// Sample is one opened profile ready for comparison.
type Sample struct {
	Name  string
	Store *profiledb.Store
	RunID string
}

// OpenSamples opens each profile directory and resolves its latest
// finished profile run. The returned closer releases every store.
func OpenSamples(ctx context.Context, roots []string) ([]Sample, func(), error) {
	samples := make([]Sample, 0, len(roots))
	closer := func() {
		for _, s := range samples {
			_ = s.Store.Close()
		}
	}

	seen := make(map[string]int)
	for _, root := range roots {
		layout := profiledb.NewLayout(root)
		if !layout.Exists() {
			closer()
			return nil, nil, fmt.Errorf("%s is not a profile directory", root)
		}
		store, err := profiledb.Open(layout.DatabasePath())
		if err != nil {
			closer()
			return nil, nil, fmt.Errorf("open profile %s: %w", root, err)
		}
		run, err := store.LatestRun(ctx, "profile")
		if err != nil {
			_ = store.Close()
			closer()
			return nil, nil, fmt.Errorf("profile %s: %w", root, err)
		}

		name := filepath.Base(filepath.Clean(root))
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		samples = append(samples, Sample{Name: name, Store: store, RunID: run.ID})
	}
	return samples, closer, nil
}
