package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"hexowl/internal/logging"
	"hexowl/internal/solver"
)

// SQLiteStore journals clauses in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// NewSQLiteStore opens or creates the journal at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLiteStore")
	defer timer.Stop()

	if path == "" {
		return nil, fmt.Errorf("database path required")
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps the journal free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("nogood journal ready at %s", path)
	return store, nil
}

// initialize creates the required tables. Journals written before clauses
// were tagged cannot be attributed to a document and are dropped.
func (s *SQLiteStore) initialize() error {
	legacy, err := s.untaggedTable()
	if err != nil {
		return err
	}
	if legacy {
		logging.Get(logging.CategoryStore).Warn("dropping untagged nogood journal at %s", s.dbPath)
		if _, err := s.db.Exec(`DROP TABLE nogoods`); err != nil {
			return fmt.Errorf("failed to drop untagged journal: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS nogoods (
		id TEXT PRIMARY KEY,
		tag TEXT NOT NULL DEFAULT '',
		clause_key TEXT NOT NULL,
		literals TEXT NOT NULL,
		size INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(tag, clause_key)
	);
	CREATE INDEX IF NOT EXISTS idx_nogoods_created ON nogoods(created_at);
	CREATE INDEX IF NOT EXISTS idx_nogoods_tag ON nogoods(tag);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create nogood schema: %w", err)
	}
	return nil
}

// untaggedTable reports whether a nogoods table exists without a tag column.
func (s *SQLiteStore) untaggedTable() (bool, error) {
	rows, err := s.db.Query(`PRAGMA table_info(nogoods)`)
	if err != nil {
		return false, fmt.Errorf("failed to inspect nogood schema: %w", err)
	}
	defer rows.Close()

	exists := false
	for rows.Next() {
		var (
			cid      int
			name     string
			typ      string
			notNull  int
			dflt     sql.NullString
			primaryK int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &primaryK); err != nil {
			return false, fmt.Errorf("failed to inspect nogood schema: %w", err)
		}
		exists = true
		if name == "tag" {
			return false, nil
		}
	}
	return exists, rows.Err()
}

// Append implements NogoodStore.
func (s *SQLiteStore) Append(tag string, ng solver.Nogood) (bool, error) {
	norm := ng.Normalize()
	lits, err := EncodeNogood(norm)
	if err != nil {
		return false, fmt.Errorf("failed to encode nogood: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO nogoods (id, tag, clause_key, literals, size) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), tag, norm.Key(), lits, len(norm),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert nogood: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// All implements NogoodStore.
func (s *SQLiteStore) All(tag string) ([]solver.Nogood, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	query, args := `SELECT literals FROM nogoods ORDER BY rowid`, []any(nil)
	if tag != "" {
		query, args = `SELECT literals FROM nogoods WHERE tag = ? ORDER BY rowid`, []any{tag}
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nogoods: %w", err)
	}
	defer rows.Close()

	var out []solver.Nogood
	for rows.Next() {
		var lits string
		if err := rows.Scan(&lits); err != nil {
			return nil, fmt.Errorf("failed to scan nogood: %w", err)
		}
		ng, err := DecodeNogood(lits)
		if err != nil {
			return nil, err
		}
		out = append(out, ng)
	}
	return out, rows.Err()
}

// Len implements NogoodStore.
func (s *SQLiteStore) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM nogoods`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count nogoods: %w", err)
	}
	return n, nil
}

// Close implements NogoodStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
