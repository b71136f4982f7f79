// Package sqlite provides a SQLite cold-tier archive.
//
// SQLite is a lightweight, file-based database suitable for local
// development and single-node deployments. Vectors are stored as JSON
// strings in TEXT columns.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brainkit/tieredmem-go/pkg/archive"
	"github.com/brainkit/tieredmem-go/pkg/memory"
)

// Store implements archive.Archiver using SQLite as the backend.
type Store struct {
	// db is the SQLite database connection.
	db *sql.DB

	// tableName is the name of the table storing archived items.
	tableName string
}

// Config contains configuration for creating a SQLite archive.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the table to use. Defaults to "cold_items".
	TableName string
}

// NewStore creates a SQLite archive, creating the database file and table
// if they do not exist.
func NewStore(cfg *Config) (*Store, error) {
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "cold_items"
	}

	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteStore: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteStore: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteStore: %w", err)
	}

	store := &Store{db: db, tableName: tableName}
	if err := store.initTable(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			doc_id TEXT PRIMARY KEY,
			content TEXT,
			embedding TEXT NOT NULL,
			state TEXT,
			action INTEGER DEFAULT 0,
			reward REAL DEFAULT 0,
			importance REAL DEFAULT 0.5,
			provenance REAL DEFAULT 1.0,
			access_count INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL,
			last_access INTEGER NOT NULL,
			metadata TEXT
		)
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTable: %w", err)
	}
	return nil
}

// Save upserts the given items in one transaction. An item's previous row
// is replaced wholesale.
func (s *Store) Save(ctx context.Context, items []memory.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s
		(doc_id, content, embedding, state, action, reward, importance, provenance, access_count, created_at, last_access, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tableName)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		rec, err := archive.EncodeItem(&items[i])
		if err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			rec.DocID, rec.Content, rec.Embedding, rec.State, rec.Action,
			rec.Reward, rec.Importance, rec.Provenance, rec.Accesses,
			rec.CreatedAt, rec.LastAccess, rec.Metadata,
		)
		if err != nil {
			return fmt.Errorf("Save: %s: %w", rec.DocID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// Load returns all archived items.
func (s *Store) Load(ctx context.Context) ([]memory.Item, error) {
	query := fmt.Sprintf(`
		SELECT doc_id, content, embedding, state, action, reward, importance, provenance, access_count, created_at, last_access, metadata
		FROM %s
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	defer rows.Close()

	var items []memory.Item
	for rows.Next() {
		var rec archive.Record
		err := rows.Scan(
			&rec.DocID, &rec.Content, &rec.Embedding, &rec.State, &rec.Action,
			&rec.Reward, &rec.Importance, &rec.Provenance, &rec.Accesses,
			&rec.CreatedAt, &rec.LastAccess, &rec.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}

		item, err := archive.DecodeRecord(&rec)
		if err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return items, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
