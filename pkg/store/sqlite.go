package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps documents in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and migrates it.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS graphs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		format TEXT NOT NULL,
		data BLOB NOT NULL,
		hash TEXT NOT NULL,
		nodes INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_graphs_hash ON graphs(hash);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, format, data, hash, nodes, created_at, updated_at
		FROM graphs WHERE id = ?`, id)

	var (
		doc              Document
		created, updated int64
	)
	err := row.Scan(&doc.ID, &doc.Name, &doc.Format, &doc.Data, &doc.Hash, &doc.Nodes, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get graph: %w", err)
	}
	doc.CreatedAt = fromNanos(created)
	doc.UpdatedAt = fromNanos(updated)
	return &doc, nil
}

func (s *SQLiteStore) Put(ctx context.Context, doc *Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var created time.Time
	if doc.ID != "" {
		var nanos int64
		err := tx.QueryRowContext(ctx, `SELECT created_at FROM graphs WHERE id = ?`, doc.ID).Scan(&nanos)
		switch {
		case err == nil:
			created = fromNanos(nanos)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to get graph: %w", err)
		}
	}
	if err := prepare(doc, created); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO graphs (id, name, format, data, hash, nodes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			format = excluded.format,
			data = excluded.data,
			hash = excluded.hash,
			nodes = excluded.nodes,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Name, doc.Format, doc.Data, doc.Hash, doc.Nodes,
		doc.CreatedAt.UnixNano(), doc.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, format, hash, nodes, created_at, updated_at
		FROM graphs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			doc              Document
			created, updated int64
		)
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Format, &doc.Hash, &doc.Nodes, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan graph: %w", err)
		}
		doc.CreatedAt = fromNanos(created)
		doc.UpdatedAt = fromNanos(updated)
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

var _ Store = (*SQLiteStore)(nil)
