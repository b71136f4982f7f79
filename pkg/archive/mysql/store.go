// Package mysql provides a MySQL-compatible cold-tier archive. It works
// against stock MySQL as well as MySQL-protocol databases.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/brainkit/tieredmem-go/pkg/archive"
	"github.com/brainkit/tieredmem-go/pkg/memory"
)

// Store implements archive.Archiver using MySQL as the backend.
type Store struct {
	db        *sql.DB
	tableName string
}

// Config contains MySQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	// TableName is the table to use. Defaults to "cold_items".
	TableName string
}

// NewStore creates a MySQL archive, creating the table if it does not
// exist.
func NewStore(cfg *Config) (*Store, error) {
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "cold_items"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLStore: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLStore: %w", err)
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
			doc_id VARCHAR(255) PRIMARY KEY,
			content TEXT,
			embedding LONGTEXT NOT NULL,
			state TEXT,
			action INT DEFAULT 0,
			reward DOUBLE DEFAULT 0,
			importance DOUBLE DEFAULT 0.5,
			provenance DOUBLE DEFAULT 1.0,
			access_count BIGINT DEFAULT 0,
			created_at BIGINT NOT NULL,
			last_access BIGINT NOT NULL,
			metadata JSON
		)
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTable: %w", err)
	}
	return nil
}

// Save upserts the given items in one transaction.
func (s *Store) Save(ctx context.Context, items []memory.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		REPLACE INTO %s
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
