// Package db owns the heartline SQLite database: connection setup, schema
// migrations and the optional sqlite-vec tables.
package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Every connection opened by this process gets the vec0 module.
	vec.Auto()
}

// DefaultEmbeddingDimension matches nomic-embed-text, the default Ollama embed model.
const DefaultEmbeddingDimension = 768

// DB wraps a *sql.DB and exposes helpers.
type DB struct {
	conn      *sql.DB
	vectors   bool
	dimension int
}

type options struct {
	dimension int
	logger    *slog.Logger
}

// Option customises Open.
type Option func(*options)

// WithEmbeddingDimension sets the vector width used for vec_memories.
func WithEmbeddingDimension(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.dimension = n
		}
	}
}

// WithLogger routes non-fatal setup warnings to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Open opens (or creates) the SQLite database at path and applies migrations.
func Open(path string, opts ...Option) (*DB, error) {
	o := options{dimension: DefaultEmbeddingDimension, logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("db: create directory: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("db: resolve path: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", absPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite: %w", err)
	}

	// Single writer, multiple readers.
	conn.SetMaxOpenConns(1)

	if err := applyMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: apply migrations: %w", err)
	}

	d := &DB{conn: conn, dimension: o.dimension}
	if err := applyVectorTables(conn, o.dimension); err != nil {
		// Semantic recall is optional; the lexical index still works.
		o.logger.Warn("sqlite-vec unavailable, semantic recall disabled", "err", err)
	} else {
		d.vectors = true
	}

	return d, nil
}

// Conn returns the underlying *sql.DB for use by store/vector layers.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// VectorsEnabled reports whether the vec_memories table is available.
func (d *DB) VectorsEnabled() bool {
	return d.vectors
}

// EmbeddingDimension returns the width vec_memories was created with.
func (d *DB) EmbeddingDimension() int {
	return d.dimension
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping checks the connection is live.
func (d *DB) Ping() error {
	return d.conn.Ping()
}
