package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gnamed/gnamed/internal/record"
)

// PG is the PostgreSQL-backed store.
type PG struct {
	pool *pgxpool.Pool
}

// NewPG wraps a connection pool as a Store.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

// Begin opens a database transaction as a unit of work.
func (s *PG) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &PGTx{tx: tx}, nil
}

// PGTx is one database transaction. It also exposes the sequence and
// COPY operations the bulk appender needs.
type PGTx struct {
	tx pgx.Tx
}

var _ Tx = (*PGTx)(nil)

func (t *PGTx) FindCrossReferences(ctx context.Context, kind record.EntityKind, keys []record.DBRef) ([]*CrossReference, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	_, refTable, _, idCol := kindTables(kind)

	// One query for the whole batch. The two in-lists can over-match
	// (ns from one key with acc from another), so results are filtered
	// against the requested set.
	wanted := make(map[record.DBRef]bool, len(keys))
	nsList := make([]string, 0, len(keys))
	accList := make([]string, 0, len(keys))
	for _, key := range keys {
		wanted[key] = true
		nsList = append(nsList, key.Namespace)
		accList = append(accList, key.Accession)
	}

	query := fmt.Sprintf(
		`SELECT namespace, accession, COALESCE(symbol, ''), COALESCE(name, ''), COALESCE(%s, 0)
		 FROM %s WHERE namespace = ANY($1) AND accession = ANY($2)`,
		idCol, refTable,
	)
	rows, err := t.tx.Query(ctx, query, nsList, accList)
	if err != nil {
		return nil, fmt.Errorf("find %s cross-references: %w", kind, err)
	}
	defer rows.Close()

	var found []*CrossReference
	for rows.Next() {
		ref := &CrossReference{}
		if err := rows.Scan(&ref.Key.Namespace, &ref.Key.Accession, &ref.Symbol, &ref.Name, &ref.EntityID); err != nil {
			return nil, fmt.Errorf("scan cross-reference: %w", err)
		}
		if wanted[ref.Key] {
			found = append(found, ref)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cross-references: %w", err)
	}
	return found, nil
}

func (t *PGTx) GetEntity(ctx context.Context, kind record.EntityKind, id int64) (*Entity, error) {
	e := &Entity{}
	var err error
	if kind == record.Gene {
		err = t.tx.QueryRow(ctx,
			`SELECT id, species_id, COALESCE(chromosome, ''), COALESCE(location, '')
			 FROM genes WHERE id = $1`, id,
		).Scan(&e.ID, &e.SpeciesID, &e.Chromosome, &e.Location)
	} else {
		err = t.tx.QueryRow(ctx,
			`SELECT id, species_id, COALESCE(length, 0), COALESCE(mass, 0)
			 FROM proteins WHERE id = $1`, id,
		).Scan(&e.ID, &e.SpeciesID, &e.Length, &e.Mass)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return e, nil
}

func (t *PGTx) CreateEntity(ctx context.Context, kind record.EntityKind, e *Entity) error {
	var err error
	if kind == record.Gene {
		err = t.tx.QueryRow(ctx,
			`INSERT INTO genes (species_id, chromosome, location) VALUES ($1, $2, $3) RETURNING id`,
			e.SpeciesID, toPgText(e.Chromosome), toPgText(e.Location),
		).Scan(&e.ID)
	} else {
		err = t.tx.QueryRow(ctx,
			`INSERT INTO proteins (species_id, length, mass) VALUES ($1, $2, $3) RETURNING id`,
			e.SpeciesID, toPgInt4(e.Length), toPgInt4(e.Mass),
		).Scan(&e.ID)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", kind, err)
	}
	return nil
}

func (t *PGTx) UpdateEntityScalars(ctx context.Context, kind record.EntityKind, e *Entity) error {
	var err error
	if kind == record.Gene {
		_, err = t.tx.Exec(ctx,
			`UPDATE genes SET chromosome = $2, location = $3 WHERE id = $1`,
			e.ID, toPgText(e.Chromosome), toPgText(e.Location),
		)
	} else {
		_, err = t.tx.Exec(ctx,
			`UPDATE proteins SET length = $2, mass = $3 WHERE id = $1`,
			e.ID, toPgInt4(e.Length), toPgInt4(e.Mass),
		)
	}
	if err != nil {
		return fmt.Errorf("update %s %d: %w", kind, e.ID, err)
	}
	return nil
}

func (t *PGTx) CreateCrossReference(ctx context.Context, kind record.EntityKind, ref *CrossReference) error {
	_, refTable, _, idCol := kindTables(kind)
	query := fmt.Sprintf(
		`INSERT INTO %s (namespace, accession, symbol, name, %s) VALUES ($1, $2, $3, $4, $5)`,
		refTable, idCol,
	)
	_, err := t.tx.Exec(ctx, query,
		ref.Key.Namespace, ref.Key.Accession,
		toPgText(ref.Symbol), toPgText(ref.Name), toPgInt8(ref.EntityID),
	)
	if err != nil {
		return fmt.Errorf("create cross-reference %s: %w", ref.Key, err)
	}
	return nil
}

func (t *PGTx) SetCrossReferenceOwner(ctx context.Context, kind record.EntityKind, key record.DBRef, entityID int64) error {
	_, refTable, _, idCol := kindTables(kind)
	query := fmt.Sprintf(
		`UPDATE %s SET %s = $3 WHERE namespace = $1 AND accession = $2`,
		refTable, idCol,
	)
	if _, err := t.tx.Exec(ctx, query, key.Namespace, key.Accession, entityID); err != nil {
		return fmt.Errorf("set owner of %s: %w", key, err)
	}
	return nil
}

func (t *PGTx) SetCrossReferenceNames(ctx context.Context, kind record.EntityKind, key record.DBRef, symbol, name string) error {
	_, refTable, _, _ := kindTables(kind)
	query := fmt.Sprintf(
		`UPDATE %s SET symbol = $3, name = $4 WHERE namespace = $1 AND accession = $2`,
		refTable,
	)
	if _, err := t.tx.Exec(ctx, query, key.Namespace, key.Accession, toPgText(symbol), toPgText(name)); err != nil {
		return fmt.Errorf("set names of %s: %w", key, err)
	}
	return nil
}

func (t *PGTx) EntityStrings(ctx context.Context, kind record.EntityKind, entityID int64) (map[string]map[string]bool, error) {
	_, _, stringTable, _ := kindTables(kind)
	query := fmt.Sprintf(`SELECT cat, value FROM %s WHERE id = $1`, stringTable)
	rows, err := t.tx.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("load %s strings: %w", kind, err)
	}
	defer rows.Close()

	known := make(map[string]map[string]bool)
	for rows.Next() {
		var cat, value string
		if err := rows.Scan(&cat, &value); err != nil {
			return nil, fmt.Errorf("scan string: %w", err)
		}
		if known[cat] == nil {
			known[cat] = make(map[string]bool)
		}
		known[cat][value] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read strings: %w", err)
	}
	return known, nil
}

func (t *PGTx) AddEntityString(ctx context.Context, kind record.EntityKind, entityID int64, cat, value string) error {
	_, _, stringTable, _ := kindTables(kind)
	query := fmt.Sprintf(
		`INSERT INTO %s (id, cat, value) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		stringTable,
	)
	if _, err := t.tx.Exec(ctx, query, entityID, cat, value); err != nil {
		return fmt.Errorf("add %s string %s=%q: %w", kind, cat, value, err)
	}
	return nil
}

func (t *PGTx) ResolveOwners(ctx context.Context, kind record.EntityKind, keys []record.DBRef) (map[record.DBRef]int64, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	_, refTable, _, idCol := kindTables(kind)

	wanted := make(map[record.DBRef]bool, len(keys))
	nsList := make([]string, 0, len(keys))
	accList := make([]string, 0, len(keys))
	for _, key := range keys {
		wanted[key] = true
		nsList = append(nsList, key.Namespace)
		accList = append(accList, key.Accession)
	}

	query := fmt.Sprintf(
		`SELECT namespace, accession, %s FROM %s
		 WHERE namespace = ANY($1) AND accession = ANY($2) AND %s IS NOT NULL`,
		idCol, refTable, idCol,
	)
	rows, err := t.tx.Query(ctx, query, nsList, accList)
	if err != nil {
		return nil, fmt.Errorf("resolve %s owners: %w", kind, err)
	}
	defer rows.Close()

	owners := make(map[record.DBRef]int64)
	for rows.Next() {
		var key record.DBRef
		var id int64
		if err := rows.Scan(&key.Namespace, &key.Accession, &id); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		if wanted[key] {
			owners[key] = id
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read owners: %w", err)
	}
	return owners, nil
}

func (t *PGTx) LinkGeneProtein(ctx context.Context, geneID, proteinID int64) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO genes2proteins (gene_id, protein_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		geneID, proteinID,
	)
	if err != nil {
		return fmt.Errorf("link gene %d to protein %d: %w", geneID, proteinID, err)
	}
	return nil
}

func (t *PGTx) AddSpecies(ctx context.Context, node *SpeciesNode) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO species (id, parent_id, rank, unique_name, genbank_name)
		 VALUES ($1, $2, $3, $4, $5)`,
		node.ID, toPgInt4(node.ParentID), node.Rank,
		toPgText(node.UniqueName), toPgText(node.GenbankName),
	)
	if err != nil {
		return fmt.Errorf("add species %d: %w", node.ID, err)
	}
	for _, name := range node.Names {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO species_names (id, cat, name) VALUES ($1, $2, $3)`,
			node.ID, name.Category, name.Name,
		)
		if err != nil {
			return fmt.Errorf("add species %d name %q: %w", node.ID, name.Name, err)
		}
	}
	return nil
}

// NextSequenceValue advances and returns the named sequence.
func (t *PGTx) NextSequenceValue(ctx context.Context, name string) (int64, error) {
	var value int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval($1)`, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", name, err)
	}
	return value, nil
}

// RestartSequence resets the named sequence so the next value issued by
// the database is next. Used after client-side ID assignment.
func (t *PGTx) RestartSequence(ctx context.Context, name string, next int64) error {
	query := fmt.Sprintf(`ALTER SEQUENCE %s RESTART WITH %d`,
		pgx.Identifier{name}.Sanitize(), next)
	if _, err := t.tx.Exec(ctx, query); err != nil {
		return fmt.Errorf("restart sequence %s: %w", name, err)
	}
	return nil
}

// GeneRefSnapshot loads every owned gene cross-reference as a key to
// gene-ID map, for resolving protein-to-gene mappings without
// per-record queries.
func (t *PGTx) GeneRefSnapshot(ctx context.Context) (map[record.DBRef]int64, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT namespace, accession, gene_id FROM gene_refs WHERE gene_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("load gene ref snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[record.DBRef]int64)
	for rows.Next() {
		var key record.DBRef
		var id int64
		if err := rows.Scan(&key.Namespace, &key.Accession, &id); err != nil {
			return nil, fmt.Errorf("scan gene ref: %w", err)
		}
		snapshot[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read gene refs: %w", err)
	}
	return snapshot, nil
}

// CopyRows bulk-appends rows to a table via the COPY protocol.
func (t *PGTx) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := t.tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}

func (t *PGTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the transaction. Calling it after Commit is a
// no-op, so it is safe to defer.
func (t *PGTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
