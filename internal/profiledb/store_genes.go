package profiledb

import (
	"context"
	"database/sql"
	"fmt"
)

// AddGeneRecords stores gene summaries in one transaction.
func (s *Store) AddGeneRecords(ctx context.Context, runID string, records []GeneRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO genes (
                run_id, gene, scaffold, start_pos, end_pos, direction,
                coverage, breadth, nucl_diversity, snv_count, sns_count,
                n_mutations, s_mutations
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare gene insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, g := range records {
			if _, err := stmt.ExecContext(ctx,
				runID, g.Gene, g.Scaffold, g.Start, g.End, g.Direction,
				g.Coverage, g.Breadth, g.NuclDiversity, g.SNVCount, g.SNSCount,
				g.NMutations, g.SMutations,
			); err != nil {
				return fmt.Errorf("insert gene %s: %w", g.Gene, err)
			}
		}
		return nil
	})
}

// GeneRecords lists gene summaries ordered by scaffold then start.
func (s *Store) GeneRecords(ctx context.Context, runID string) ([]GeneRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT gene, scaffold, start_pos, end_pos, direction, coverage, breadth,
                nucl_diversity, snv_count, sns_count, n_mutations, s_mutations
         FROM genes WHERE run_id = ? ORDER BY scaffold, start_pos`, runID)
	if err != nil {
		return nil, fmt.Errorf("list genes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []GeneRecord
	for rows.Next() {
		var g GeneRecord
		if err := rows.Scan(&g.Gene, &g.Scaffold, &g.Start, &g.End, &g.Direction,
			&g.Coverage, &g.Breadth, &g.NuclDiversity, &g.SNVCount, &g.SNSCount,
			&g.NMutations, &g.SMutations); err != nil {
			return nil, fmt.Errorf("scan gene: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// AddGenomeRecords stores genome summaries in one transaction.
func (s *Store) AddGenomeRecords(ctx context.Context, runID string, records []GenomeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO genomes (
                run_id, genome, scaffolds, detected, length, coverage, breadth,
                breadth_min_cov, breadth_expected, nucl_diversity, divergent_sites,
                snv_count, sns_count, con_ani_reference, pop_ani_reference, filtered_pairs
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare genome insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, g := range records {
			if _, err := stmt.ExecContext(ctx,
				runID, g.Genome, g.Scaffolds, g.Detected, g.Length, g.Coverage, g.Breadth,
				g.BreadthMinCov, g.BreadthExpected, g.NuclDiversity, g.DivergentSites,
				g.SNVCount, g.SNSCount, g.ConANIReference, g.PopANIReference, g.FilteredPairs,
			); err != nil {
				return fmt.Errorf("insert genome %s: %w", g.Genome, err)
			}
		}
		return nil
	})
}

// GenomeRecords lists genome summaries ordered by name.
func (s *Store) GenomeRecords(ctx context.Context, runID string) ([]GenomeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT genome, scaffolds, detected, length, coverage, breadth, breadth_min_cov,
                breadth_expected, nucl_diversity, divergent_sites, snv_count, sns_count,
                con_ani_reference, pop_ani_reference, filtered_pairs
         FROM genomes WHERE run_id = ? ORDER BY genome`, runID)
	if err != nil {
		return nil, fmt.Errorf("list genomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []GenomeRecord
	for rows.Next() {
		var g GenomeRecord
		if err := rows.Scan(&g.Genome, &g.Scaffolds, &g.Detected, &g.Length, &g.Coverage,
			&g.Breadth, &g.BreadthMinCov, &g.BreadthExpected, &g.NuclDiversity,
			&g.DivergentSites, &g.SNVCount, &g.SNSCount, &g.ConANIReference,
			&g.PopANIReference, &g.FilteredPairs); err != nil {
			return nil, fmt.Errorf("scan genome: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
