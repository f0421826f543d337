package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/streamdex/streamdex/internal/document"
	"github.com/streamdex/streamdex/internal/index/store"
)

// Store implements store.Store backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

// New opens a PostgreSQL-backed index store using the provided DSN and
// connection pool settings. Zero values keep the driver defaults.
func New(dsn string, maxOpen, maxIdle int, lifetime time.Duration) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if lifetime > 0 {
		db.SetConnMaxLifetime(lifetime)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS index_meta (
	id INTEGER PRIMARY KEY CHECK(id = 1),
	embedder_signature TEXT NOT NULL,
	dimension INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS index_chunks (
	position INTEGER PRIMARY KEY,
	path TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	text TEXT NOT NULL,
	vector BYTEA NOT NULL
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases underlying database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces any stored snapshot within a single transaction.
func (s *Store) Save(ctx context.Context, snap store.Snapshot) error {
	if len(snap.Chunks) != len(snap.Vectors) {
		return fmt.Errorf("snapshot has %d chunks but %d vectors", len(snap.Chunks), len(snap.Vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM index_chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM index_meta`); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO index_meta(id, embedder_signature, dimension) VALUES(1, $1, $2)`,
		snap.EmbedderSignature, snap.Dimension); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO index_chunks(position, path, start_offset, text, vector) VALUES($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range snap.Chunks {
		if _, err := stmt.ExecContext(ctx, i, chunk.Path, chunk.Offset, chunk.Text, store.EncodeVector(snap.Vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Load returns the stored snapshot; an empty store yields a zero snapshot.
func (s *Store) Load(ctx context.Context) (store.Snapshot, error) {
	var snap store.Snapshot
	row := s.db.QueryRowContext(ctx, `SELECT embedder_signature, dimension FROM index_meta WHERE id = 1`)
	if err := row.Scan(&snap.EmbedderSignature, &snap.Dimension); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Snapshot{}, nil
		}
		return store.Snapshot{}, fmt.Errorf("load meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT path, start_offset, text, vector FROM index_chunks ORDER BY position ASC`)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunk document.Chunk
		var blob []byte
		if err := rows.Scan(&chunk.Path, &chunk.Offset, &chunk.Text, &blob); err != nil {
			return store.Snapshot{}, fmt.Errorf("scan chunk: %w", err)
		}
		vec, err := store.DecodeVector(blob)
		if err != nil {
			return store.Snapshot{}, err
		}
		snap.Chunks = append(snap.Chunks, chunk)
		snap.Vectors = append(snap.Vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return store.Snapshot{}, fmt.Errorf("iterate chunks: %w", err)
	}
	return snap, nil
}
