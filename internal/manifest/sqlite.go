package manifest

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run or leaf is not in the database.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	dataset TEXT NOT NULL,
	source_dir TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	files INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS leaves (
	run_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	key TEXT NOT NULL,
	dir TEXT NOT NULL,
	extensions JSON,
	bitmap BLOB,
	PRIMARY KEY (run_id, idx)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS files (
	run_id TEXT NOT NULL,
	id INTEGER NOT NULL,
	leaf INTEGER NOT NULL,
	path TEXT NOT NULL,
	ext TEXT NOT NULL,
	PRIMARY KEY (run_id, id)
) WITHOUT ROWID;
`

// Writer stores catalogs in a SQLite database. Each catalog is one run.
type Writer struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*Writer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Writer{db: db}, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}

// Write stores c in a single transaction.
func (w *Writer) Write(ctx context.Context, c *Catalog) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", c.RunID, err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, source_dir, created_at, files) VALUES (?, ?, ?, ?, ?)`,
		c.RunID, c.Dataset, c.SourceDir, c.CreatedAt.UnixNano(), c.Len(),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", c.RunID, err)
	}

	leafStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leaves (run_id, idx, key, dir, extensions, bitmap) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare leaves insert: %w", err)
	}
	defer func() { _ = leafStmt.Close() }()

	var buf bytes.Buffer
	for i, l := range c.leaves {
		exts, err := json.Marshal(l.Extensions)
		if err != nil {
			return fmt.Errorf("encode extensions for %s: %w", LeafKey(l.Key), err)
		}
		buf.Reset()
		if _, err := c.byLeaf[i].WriteTo(&buf); err != nil {
			return fmt.Errorf("serialize bitmap for %s: %w", LeafKey(l.Key), err)
		}
		if _, err := leafStmt.ExecContext(ctx, c.RunID, i, LeafKey(l.Key), l.Dir, exts, buf.Bytes()); err != nil {
			return fmt.Errorf("insert leaf %s: %w", LeafKey(l.Key), err)
		}
	}

	fileStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (run_id, id, leaf, path, ext) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare files insert: %w", err)
	}
	defer func() { _ = fileStmt.Close() }()

	for id, p := range c.paths {
		if _, err := fileStmt.ExecContext(ctx, c.RunID, id, c.fileLeaf[id], p, Ext(p)); err != nil {
			return fmt.Errorf("insert file %s: %w", p, err)
		}
	}

	return tx.Commit()
}

// Run summarizes one stored catalog.
type Run struct {
	ID        string    `json:"id"`
	Dataset   string    `json:"dataset"`
	SourceDir string    `json:"source_dir"`
	CreatedAt time.Time `json:"created_at"`
	Files     int       `json:"files"`
}

// Runs lists stored runs, oldest first.
func (w *Writer) Runs(ctx context.Context) ([]Run, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT id, dataset, source_dir, created_at, files FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &r.Dataset, &r.SourceDir, &created, &r.Files); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// LeafFiles returns the paths stored for one leaf of a run, decoding the
// leaf's bitmap and resolving IDs through the files table.
func (w *Writer) LeafFiles(ctx context.Context, runID, key string) ([]string, error) {
	var blob []byte
	err := w.db.QueryRowContext(ctx,
		`SELECT bitmap FROM leaves WHERE run_id = ? AND key = ?`, runID, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("leaf %s in run %s: %w", key, runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query leaf %s: %w", key, err)
	}

	bm := roaring.New()
	if _, err := bm.ReadFrom(bytes.NewReader(blob)); err != nil {
		return nil, fmt.Errorf("decode bitmap for %s: %w", key, err)
	}

	stmt, err := w.db.PrepareContext(ctx, `SELECT path FROM files WHERE run_id = ? AND id = ?`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stmt.Close() }()

	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		id := it.Next()
		var p string
		if err := stmt.QueryRowContext(ctx, runID, id).Scan(&p); err != nil {
			return nil, fmt.Errorf("resolve file %d: %w", id, err)
		}
		out = append(out, p)
	}
	return out, nil
}
