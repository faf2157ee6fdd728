package profiledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/liupfskygre/inStrain/internal/readfilter"
	"github.com/liupfskygre/inStrain/internal/snv"
)

// AddScaffoldMetrics stores the summary row for one scaffold.
func (s *Store) AddScaffoldMetrics(ctx context.Context, runID string, m snv.Metrics) error {
	err := s.execWithRetry(ctx,
		`INSERT INTO scaffolds (
            run_id, scaffold, length, coverage, coverage_median, coverage_sd,
            breadth, breadth_min_cov, breadth_expected, nucl_diversity,
            divergent_sites, snv_count, sns_count, con_ani_reference, pop_ani_reference
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, m.Scaffold, m.Length, m.Coverage, m.CoverageMedian, m.CoverageSD,
		m.Breadth, m.BreadthMinCov, m.BreadthExpected, m.NuclDiversity,
		m.DivergentSites, m.SNVCount, m.SNSCount, m.ConANIReference, m.PopANIReference,
	)
	if err != nil {
		return fmt.Errorf("insert scaffold %s: %w", m.Scaffold, err)
	}
	return nil
}

const scaffoldColumns = `scaffold, length, coverage, coverage_median, coverage_sd,
    breadth, breadth_min_cov, breadth_expected, nucl_diversity,
    divergent_sites, snv_count, sns_count, con_ani_reference, pop_ani_reference`

func scanScaffold(scanner interface{ Scan(dest ...any) error }) (snv.Metrics, error) {
	var m snv.Metrics
	err := scanner.Scan(
		&m.Scaffold, &m.Length, &m.Coverage, &m.CoverageMedian, &m.CoverageSD,
		&m.Breadth, &m.BreadthMinCov, &m.BreadthExpected, &m.NuclDiversity,
		&m.DivergentSites, &m.SNVCount, &m.SNSCount, &m.ConANIReference, &m.PopANIReference,
	)
	return m, err
}

// ScaffoldMetrics lists every scaffold summary for a run, ordered by
// scaffold name.
func (s *Store) ScaffoldMetrics(ctx context.Context, runID string) ([]snv.Metrics, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+scaffoldColumns+" FROM scaffolds WHERE run_id = ? ORDER BY scaffold", runID)
	if err != nil {
		return nil, fmt.Errorf("list scaffolds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []snv.Metrics
	for rows.Next() {
		m, err := scanScaffold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scaffold: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddWindowMetrics stores window summaries in one transaction.
func (s *Store) AddWindowMetrics(ctx context.Context, runID string, windows []snv.WindowMetrics) error {
	if len(windows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO windows (run_id, scaffold, start_pos, end_pos, coverage, breadth, nucl_diversity, divergent_sites)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare window insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, w := range windows {
			if _, err := stmt.ExecContext(ctx, runID, w.Scaffold, w.Start, w.End,
				w.Coverage, w.Breadth, w.NuclDiversity, w.DivergentSites); err != nil {
				return fmt.Errorf("insert window %s:%d: %w", w.Scaffold, w.Start, err)
			}
		}
		return nil
	})
}

// WindowMetrics lists window summaries for a run in scaffold, position order.
func (s *Store) WindowMetrics(ctx context.Context, runID string) ([]snv.WindowMetrics, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scaffold, start_pos, end_pos, coverage, breadth, nucl_diversity, divergent_sites
         FROM windows WHERE run_id = ? ORDER BY scaffold, start_pos`, runID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []snv.WindowMetrics
	for rows.Next() {
		var w snv.WindowMetrics
		if err := rows.Scan(&w.Scaffold, &w.Start, &w.End, &w.Coverage, &w.Breadth,
			&w.NuclDiversity, &w.DivergentSites); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AddCalls stores the divergent sites of one scaffold in one transaction.
func (s *Store) AddCalls(ctx context.Context, runID, scaffold string, calls []snv.Call) error {
	if len(calls) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO snvs (
                run_id, scaffold, position, ref_base, con_base, var_base,
                a_count, c_count, g_count, t_count, coverage, allele_count,
                var_freq, ref_freq, ref_is_allele, class
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare snv insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, call := range calls {
			refAllele := 0
			if call.RefIsAllele {
				refAllele = 1
			}
			if _, err := stmt.ExecContext(ctx,
				runID, scaffold, call.Position,
				string(call.RefBase), string(call.ConBase), string(call.VarBase),
				call.Counts[0], call.Counts[1], call.Counts[2], call.Counts[3],
				call.Coverage, call.AlleleCount, call.VarFreq, call.RefFreq,
				refAllele, string(call.Class),
			); err != nil {
				return fmt.Errorf("insert snv %s:%d: %w", scaffold, call.Position, err)
			}
		}
		return nil
	})
}

const callColumns = `scaffold, position, ref_base, con_base, var_base,
    a_count, c_count, g_count, t_count, coverage, allele_count,
    var_freq, ref_freq, ref_is_allele, class, gene, mutation_type, mutation`

func scanCall(scanner interface{ Scan(dest ...any) error }) (CallRecord, error) {
	var (
		rec          CallRecord
		refBase      string
		conBase      string
		varBase      string
		refIs        int
		class        string
		gene         sql.NullString
		mutationType sql.NullString
		mutation     sql.NullString
	)
	err := scanner.Scan(
		&rec.Scaffold, &rec.Call.Position, &refBase, &conBase, &varBase,
		&rec.Call.Counts[0], &rec.Call.Counts[1], &rec.Call.Counts[2], &rec.Call.Counts[3],
		&rec.Call.Coverage, &rec.Call.AlleleCount, &rec.Call.VarFreq, &rec.Call.RefFreq,
		&refIs, &class, &gene, &mutationType, &mutation,
	)
	if err != nil {
		return CallRecord{}, err
	}
	rec.Call.RefBase = firstByte(refBase)
	rec.Call.ConBase = firstByte(conBase)
	rec.Call.VarBase = firstByte(varBase)
	rec.Call.RefIsAllele = refIs != 0
	rec.Call.Class = snv.Class(class)
	rec.Gene = gene.String
	rec.MutationType = mutationType.String
	rec.Mutation = mutation.String
	return rec, nil
}

// Calls lists the divergent sites of one scaffold in position order.
func (s *Store) Calls(ctx context.Context, runID, scaffold string) ([]CallRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+callColumns+" FROM snvs WHERE run_id = ? AND scaffold = ? ORDER BY position",
		runID, scaffold)
	if err != nil {
		return nil, fmt.Errorf("list snvs: %w", err)
	}
	return collectCalls(rows)
}

// AllCalls lists every divergent site of a run in scaffold, position order.
func (s *Store) AllCalls(ctx context.Context, runID string) ([]CallRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+callColumns+" FROM snvs WHERE run_id = ? ORDER BY scaffold, position", runID)
	if err != nil {
		return nil, fmt.Errorf("list snvs: %w", err)
	}
	return collectCalls(rows)
}

func collectCalls(rows *sql.Rows) ([]CallRecord, error) {
	defer func() { _ = rows.Close() }()
	var out []CallRecord
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snv: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AnnotateCalls attaches gene context to stored sites in one transaction.
func (s *Store) AnnotateCalls(ctx context.Context, runID string, annotations []CallAnnotation) error {
	if len(annotations) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`UPDATE snvs SET gene = ?, mutation_type = ?, mutation = ?
             WHERE run_id = ? AND scaffold = ? AND position = ?`)
		if err != nil {
			return fmt.Errorf("prepare snv annotation: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, a := range annotations {
			if _, err := stmt.ExecContext(ctx, a.Gene, a.MutationType, a.Mutation,
				runID, a.Scaffold, a.Position); err != nil {
				return fmt.Errorf("annotate snv %s:%d: %w", a.Scaffold, a.Position, err)
			}
		}
		return nil
	})
}

// AddMappingReport stores per-scaffold read filtering tallies. The run
// totals live in meta under the filter.* keys.
func (s *Store) AddMappingReport(ctx context.Context, runID string, report readfilter.Report) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO mapping (run_id, scaffold, reads, pairs, filtered_pairs, mean_ani, mean_insert, mean_mapq)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare mapping insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, sc := range report.Scaffolds {
			if _, err := stmt.ExecContext(ctx, runID, sc.Scaffold, sc.Reads, sc.Pairs,
				sc.FilteredPairs, sc.MeanANI, sc.MeanInsert, sc.MeanMapQ); err != nil {
				return fmt.Errorf("insert mapping %s: %w", sc.Scaffold, err)
			}
		}
		return nil
	})
}

// MappingReports lists per-scaffold filtering tallies ordered by scaffold.
func (s *Store) MappingReports(ctx context.Context, runID string) ([]readfilter.ScaffoldReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scaffold, reads, pairs, filtered_pairs, mean_ani, mean_insert, mean_mapq
         FROM mapping WHERE run_id = ? ORDER BY scaffold`, runID)
	if err != nil {
		return nil, fmt.Errorf("list mapping: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []readfilter.ScaffoldReport
	for rows.Next() {
		var sc readfilter.ScaffoldReport
		if err := rows.Scan(&sc.Scaffold, &sc.Reads, &sc.Pairs, &sc.FilteredPairs,
			&sc.MeanANI, &sc.MeanInsert, &sc.MeanMapQ); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// SaveCoverage stores a scaffold's per-position depth array.
func (s *Store) SaveCoverage(ctx context.Context, runID, scaffold string, values []int32) error {
	blob, err := encodeInt32s(values)
	if err != nil {
		return err
	}
	return s.savePositionData(ctx, runID, scaffold, "coverage", len(values), blob)
}

// LoadCoverage restores a scaffold's per-position depth array.
func (s *Store) LoadCoverage(ctx context.Context, runID, scaffold string) ([]int32, error) {
	blob, length, err := s.loadPositionData(ctx, runID, scaffold, "coverage")
	if err != nil {
		return nil, err
	}
	return decodeInt32s(blob, length)
}

// SaveClonality stores a scaffold's per-position clonality array.
func (s *Store) SaveClonality(ctx context.Context, runID, scaffold string, values []float32) error {
	blob, err := encodeFloat32s(values)
	if err != nil {
		return err
	}
	return s.savePositionData(ctx, runID, scaffold, "clonality", len(values), blob)
}

// LoadClonality restores a scaffold's per-position clonality array.
func (s *Store) LoadClonality(ctx context.Context, runID, scaffold string) ([]float32, error) {
	blob, length, err := s.loadPositionData(ctx, runID, scaffold, "clonality")
	if err != nil {
		return nil, err
	}
	return decodeFloat32s(blob, length)
}

func (s *Store) savePositionData(ctx context.Context, runID, scaffold, kind string, length int, blob []byte) error {
	err := s.execWithRetry(ctx,
		`INSERT INTO position_data (run_id, scaffold, kind, length, data) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (run_id, scaffold, kind) DO UPDATE SET length = excluded.length, data = excluded.data`,
		runID, scaffold, kind, length, blob)
	if err != nil {
		return fmt.Errorf("save %s data for %s: %w", kind, scaffold, err)
	}
	return nil
}

func (s *Store) loadPositionData(ctx context.Context, runID, scaffold, kind string) ([]byte, int, error) {
	var (
		blob   []byte
		length int
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT data, length FROM position_data WHERE run_id = ? AND scaffold = ? AND kind = ?",
		runID, scaffold, kind).Scan(&blob, &length)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("%s data for %s: %w", kind, scaffold, ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load %s data for %s: %w", kind, scaffold, err)
	}
	return blob, length, nil
}

func firstByte(value string) byte {
	if value == "" {
		return 0
	}
	return value[0]
}
