package bundle

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite"
)

// schemaVersion is stored in meta so readers can reject newer layouts.
const schemaVersion = 1

var sqliteSchema = []string{
	`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	`CREATE TABLE documents (pos INTEGER PRIMARY KEY, doc_id TEXT NOT NULL, topic INTEGER NOT NULL)`,
	`CREATE TABLE terms (pos INTEGER PRIMARY KEY, term TEXT NOT NULL)`,
	`CREATE TABLE topics (pos INTEGER PRIMARY KEY, label TEXT NOT NULL)`,
	`CREATE TABLE rankings (topic INTEGER NOT NULL, pos INTEGER NOT NULL, term TEXT NOT NULL, PRIMARY KEY (topic, pos))`,
	`CREATE TABLE factors (name TEXT PRIMARY KEY, data BLOB NOT NULL)`,
}

func writeSQLite(path string, rec Record) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ddl := range sqliteSchema {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	meta := map[string]string{
		"schema_version": strconv.Itoa(schemaVersion),
		"topic_count":    strconv.Itoa(len(rec.TermRankings)),
		"document_count": strconv.Itoa(len(rec.IDs)),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("writing meta: %w", err)
		}
	}

	if len(rec.IDs) != len(rec.Partition) {
		return fmt.Errorf("%w: %d ids but partition of length %d", ErrMalformedBundle, len(rec.IDs), len(rec.Partition))
	}
	docStmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (pos, doc_id, topic) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer docStmt.Close()
	for i, id := range rec.IDs {
		if _, err := docStmt.ExecContext(ctx, i, id, rec.Partition[i]); err != nil {
			return fmt.Errorf("writing document %d: %w", i, err)
		}
	}

	if err := insertStrings(ctx, tx, `INSERT INTO terms (pos, term) VALUES (?, ?)`, rec.Terms); err != nil {
		return fmt.Errorf("writing terms: %w", err)
	}
	if err := insertStrings(ctx, tx, `INSERT INTO topics (pos, label) VALUES (?, ?)`, rec.TopicLabels); err != nil {
		return fmt.Errorf("writing topic labels: %w", err)
	}

	rankStmt, err := tx.PrepareContext(ctx, `INSERT INTO rankings (topic, pos, term) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer rankStmt.Close()
	for t, ranking := range rec.TermRankings {
		for r, term := range ranking {
			if _, err := rankStmt.ExecContext(ctx, t, r, term); err != nil {
				return fmt.Errorf("writing ranking %d: %w", t, err)
			}
		}
	}

	for name, m := range map[string]*mat.Dense{"W": rec.W, "H": rec.H} {
		if m == nil {
			continue
		}
		blob, err := m.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO factors (name, data) VALUES (?, ?)`, name, blob); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	return tx.Commit()
}

func insertStrings(ctx context.Context, tx *sql.Tx, query string, values []string) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, i, v); err != nil {
			return err
		}
	}
	return nil
}

func readSQLite(path string) (Record, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Record{}, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	ctx := context.Background()

	var version int
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version); err != nil {
		return Record{}, fmt.Errorf("reading schema version: %w", err)
	}
	if version > schemaVersion {
		return Record{}, fmt.Errorf("schema version %d is newer than supported %d", version, schemaVersion)
	}

	var topicCount int
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'topic_count'`).Scan(&topicCount); err != nil {
		return Record{}, fmt.Errorf("reading topic count: %w", err)
	}

	var rec Record
	rows, err := db.QueryContext(ctx, `SELECT doc_id, topic FROM documents ORDER BY pos`)
	if err != nil {
		return Record{}, fmt.Errorf("reading documents: %w", err)
	}
	for rows.Next() {
		var id string
		var topic int
		if err := rows.Scan(&id, &topic); err != nil {
			rows.Close()
			return Record{}, fmt.Errorf("scanning document: %w", err)
		}
		rec.IDs = append(rec.IDs, id)
		rec.Partition = append(rec.Partition, topic)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Record{}, err
	}

	if rec.Terms, err = queryStrings(ctx, db, `SELECT term FROM terms ORDER BY pos`); err != nil {
		return Record{}, fmt.Errorf("reading terms: %w", err)
	}
	if rec.TopicLabels, err = queryStrings(ctx, db, `SELECT label FROM topics ORDER BY pos`); err != nil {
		return Record{}, fmt.Errorf("reading topic labels: %w", err)
	}

	rec.TermRankings = make([][]string, topicCount)
	rows, err = db.QueryContext(ctx, `SELECT topic, term FROM rankings ORDER BY topic, pos`)
	if err != nil {
		return Record{}, fmt.Errorf("reading rankings: %w", err)
	}
	for rows.Next() {
		var topic int
		var term string
		if err := rows.Scan(&topic, &term); err != nil {
			rows.Close()
			return Record{}, fmt.Errorf("scanning ranking: %w", err)
		}
		if topic < 0 || topic >= topicCount {
			rows.Close()
			return Record{}, fmt.Errorf("ranking for topic %d outside [0,%d)", topic, topicCount)
		}
		rec.TermRankings[topic] = append(rec.TermRankings[topic], term)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Record{}, err
	}

	rows, err = db.QueryContext(ctx, `SELECT name, data FROM factors`)
	if err != nil {
		return Record{}, fmt.Errorf("reading factors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var blob []byte
		if err := rows.Scan(&name, &blob); err != nil {
			return Record{}, fmt.Errorf("scanning factor: %w", err)
		}
		m := &mat.Dense{}
		if err := m.UnmarshalBinary(blob); err != nil {
			return Record{}, fmt.Errorf("decoding %s: %w", name, err)
		}
		switch name {
		case "W":
			rec.W = m
		case "H":
			rec.H = m
		}
	}
	return rec, rows.Err()
}

func queryStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
