package profiledb

import (
	"context"
	"errors"
	"fmt"

	"github.com/liupfskygre/inStrain/internal/version"
)

// ErrSchemaMismatch indicates the database was written by an incompatible
// release.
var ErrSchemaMismatch = errors.New("profile schema mismatch")

const schemaSQL = `
CREATE TABLE schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE runs (
    id            TEXT PRIMARY KEY,
    operation     TEXT NOT NULL,
    bam_path      TEXT,
    fasta_path    TEXT,
    started_at    TEXT NOT NULL,
    finished_at   TEXT,
    version       TEXT NOT NULL,
    settings_json TEXT NOT NULL
);

CREATE TABLE scaffolds (
    run_id            TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scaffold          TEXT NOT NULL,
    length            INTEGER NOT NULL,
    coverage          REAL NOT NULL,
    coverage_median   INTEGER NOT NULL,
    coverage_sd       REAL NOT NULL,
    breadth           REAL NOT NULL,
    breadth_min_cov   REAL NOT NULL,
    breadth_expected  REAL NOT NULL,
    nucl_diversity    REAL NOT NULL,
    divergent_sites   INTEGER NOT NULL,
    snv_count         INTEGER NOT NULL,
    sns_count         INTEGER NOT NULL,
    con_ani_reference REAL NOT NULL,
    pop_ani_reference REAL NOT NULL,
    PRIMARY KEY (run_id, scaffold)
);

CREATE TABLE windows (
    run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scaffold        TEXT NOT NULL,
    start_pos       INTEGER NOT NULL,
    end_pos         INTEGER NOT NULL,
    coverage        REAL NOT NULL,
    breadth         REAL NOT NULL,
    nucl_diversity  REAL NOT NULL,
    divergent_sites INTEGER NOT NULL,
    PRIMARY KEY (run_id, scaffold, start_pos)
);

CREATE TABLE snvs (
    run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scaffold      TEXT NOT NULL,
    position      INTEGER NOT NULL,
    ref_base      TEXT NOT NULL,
    con_base      TEXT NOT NULL,
    var_base      TEXT NOT NULL,
    a_count       INTEGER NOT NULL,
    c_count       INTEGER NOT NULL,
    g_count       INTEGER NOT NULL,
    t_count       INTEGER NOT NULL,
    coverage      INTEGER NOT NULL,
    allele_count  INTEGER NOT NULL,
    var_freq      REAL NOT NULL,
    ref_freq      REAL NOT NULL,
    ref_is_allele INTEGER NOT NULL,
    class         TEXT NOT NULL,
    gene          TEXT,
    mutation_type TEXT,
    mutation      TEXT,
    PRIMARY KEY (run_id, scaffold, position)
);

CREATE TABLE mapping (
    run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scaffold       TEXT NOT NULL,
    reads          INTEGER NOT NULL,
    pairs          INTEGER NOT NULL,
    filtered_pairs INTEGER NOT NULL,
    mean_ani       REAL NOT NULL,
    mean_insert    REAL NOT NULL,
    mean_mapq      REAL NOT NULL,
    PRIMARY KEY (run_id, scaffold)
);

CREATE TABLE genes (
    run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    gene           TEXT NOT NULL,
    scaffold       TEXT NOT NULL,
    start_pos      INTEGER NOT NULL,
    end_pos        INTEGER NOT NULL,
    direction      INTEGER NOT NULL,
    coverage       REAL NOT NULL,
    breadth        REAL NOT NULL,
    nucl_diversity REAL NOT NULL,
    snv_count      INTEGER NOT NULL,
    sns_count      INTEGER NOT NULL,
    n_mutations    INTEGER NOT NULL,
    s_mutations    INTEGER NOT NULL,
    PRIMARY KEY (run_id, gene)
);

CREATE TABLE genomes (
    run_id            TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    genome            TEXT NOT NULL,
    scaffolds         INTEGER NOT NULL,
    detected          INTEGER NOT NULL,
    length            INTEGER NOT NULL,
    coverage          REAL NOT NULL,
    breadth           REAL NOT NULL,
    breadth_min_cov   REAL NOT NULL,
    breadth_expected  REAL NOT NULL,
    nucl_diversity    REAL NOT NULL,
    divergent_sites   INTEGER NOT NULL,
    snv_count         INTEGER NOT NULL,
    sns_count         INTEGER NOT NULL,
    con_ani_reference REAL NOT NULL,
    pop_ani_reference REAL NOT NULL,
    filtered_pairs    INTEGER NOT NULL,
    PRIMARY KEY (run_id, genome)
);

CREATE TABLE position_data (
    run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scaffold TEXT NOT NULL,
    kind     TEXT NOT NULL,
    length   INTEGER NOT NULL,
    data     BLOB NOT NULL,
    PRIMARY KEY (run_id, scaffold, kind)
);

CREATE TABLE meta (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    key    TEXT NOT NULL,
    value  TEXT NOT NULL,
    PRIMARY KEY (run_id, key)
);
`

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var schema int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&schema)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if schema != version.SchemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the profile directory and re-run)",
			ErrSchemaMismatch, schema, version.SchemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", version.SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
