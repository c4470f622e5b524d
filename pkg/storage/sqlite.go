package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"skylinedb/pkg/common"

	_ "modernc.org/sqlite"
)

// SQLiteSource reads point datasets kept in a SQLite table
// points(id, x, y, value).
type SQLiteSource struct {
	db *sql.DB
	mu sync.Mutex
}

func OpenSQLiteSource(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS points (
		id INTEGER PRIMARY KEY,
		x REAL NOT NULL,
		y REAL NOT NULL,
		value BLOB
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("init points table: %w", err)
	}

	return &SQLiteSource{db: db}, nil
}

// BatchWrite stages entries into the dataset in one transaction.
func (s *SQLiteSource) BatchWrite(entries []common.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO points (id, x, y, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(int64(e.ID), e.Point.X, e.Point.Y, []byte(e.Value)); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// BatchWriteFast stages entries with a single multi-row INSERT.
func (s *SQLiteSource) BatchWriteFast(entries []common.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	query := "INSERT OR REPLACE INTO points (id, x, y, value) VALUES "
	vals := []interface{}{}
	placeholders := []string{}

	for _, e := range entries {
		placeholders = append(placeholders, "(?, ?, ?, ?)")
		vals = append(vals, int64(e.ID), e.Point.X, e.Point.Y, []byte(e.Value))
	}

	query += strings.Join(placeholders, ",")
	_, err := s.db.Exec(query, vals...)
	return err
}

// LoadAll returns every row ordered by id. A row with non-finite
// coordinates fails the whole load.
func (s *SQLiteSource) LoadAll() ([]common.Entry, error) {
	rows, err := s.db.Query("SELECT id, x, y, value FROM points ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []common.Entry
	for rows.Next() {
		var (
			id   int64
			x, y float64
			v    []byte
		)
		if err := rows.Scan(&id, &x, &y, &v); err != nil {
			return nil, err
		}
		p := common.Point{X: x, Y: y}
		if !p.Finite() {
			return nil, fmt.Errorf("row %d: %w: non-finite point %s", id, ErrMalformedInput, p)
		}
		entries = append(entries, common.Entry{ID: common.KeyType(id), Value: v, Point: p})
	}
	return entries, rows.Err()
}

func (s *SQLiteSource) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM points").Scan(&n)
	return n, err
}

func (s *SQLiteSource) Truncate() error {
	_, err := s.db.Exec("DELETE FROM points")
	return err
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
