package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx operations the store needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// schema is the physical layout of the repository. Statement order
// matters: referenced tables come first.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS species (
		id INTEGER PRIMARY KEY,
		parent_id INTEGER REFERENCES species (id),
		rank VARCHAR(32) NOT NULL,
		unique_name TEXT,
		genbank_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS species_names (
		id INTEGER NOT NULL REFERENCES species (id),
		cat VARCHAR(32) NOT NULL,
		name TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS species_names_id_idx ON species_names (id)`,
	`CREATE TABLE IF NOT EXISTS genes (
		id BIGSERIAL PRIMARY KEY,
		species_id INTEGER NOT NULL,
		chromosome VARCHAR(32),
		location VARCHAR(64)
	)`,
	`CREATE TABLE IF NOT EXISTS proteins (
		id BIGSERIAL PRIMARY KEY,
		species_id INTEGER NOT NULL,
		length INTEGER,
		mass INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS gene_refs (
		namespace VARCHAR(8) NOT NULL,
		accession VARCHAR(64) NOT NULL,
		symbol VARCHAR(64),
		name TEXT,
		gene_id BIGINT REFERENCES genes (id),
		PRIMARY KEY (namespace, accession)
	)`,
	`CREATE INDEX IF NOT EXISTS gene_refs_gene_id_idx ON gene_refs (gene_id)`,
	`CREATE TABLE IF NOT EXISTS protein_refs (
		namespace VARCHAR(8) NOT NULL,
		accession VARCHAR(64) NOT NULL,
		symbol VARCHAR(64),
		name TEXT,
		protein_id BIGINT REFERENCES proteins (id),
		PRIMARY KEY (namespace, accession)
	)`,
	`CREATE INDEX IF NOT EXISTS protein_refs_protein_id_idx ON protein_refs (protein_id)`,
	`CREATE TABLE IF NOT EXISTS gene_strings (
		id BIGINT NOT NULL REFERENCES genes (id),
		cat VARCHAR(32) NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (id, cat, value)
	)`,
	`CREATE TABLE IF NOT EXISTS protein_strings (
		id BIGINT NOT NULL REFERENCES proteins (id),
		cat VARCHAR(32) NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (id, cat, value)
	)`,
	`CREATE TABLE IF NOT EXISTS genes2proteins (
		gene_id BIGINT NOT NULL REFERENCES genes (id),
		protein_id BIGINT NOT NULL REFERENCES proteins (id),
		PRIMARY KEY (gene_id, protein_id)
	)`,
}

// ApplySchema creates all repository tables and indexes. Every
// statement is idempotent, so re-running against an initialized
// database is safe.
func ApplySchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
