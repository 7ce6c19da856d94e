package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"eventboard/internal/domain"
)

const createSlotsTable = `
	CREATE TABLE IF NOT EXISTS slots (
		key     TEXT PRIMARY KEY,
		value   TEXT NOT NULL,
		version INTEGER NOT NULL
	)
`

// Open opens the SQLite database at path (or ":memory:") and creates the slots table.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps a :memory: database alive across calls.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, createSlotsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create slots table: %w", err)
	}
	return db, nil
}

type slotRepository struct {
	DB *sql.DB
}

func NewSlotRepository(db *sql.DB) domain.SlotRepository {
	return &slotRepository{
		DB: db,
	}
}

func (r *slotRepository) Get(ctx context.Context, key string) ([]byte, int64, error) {
	query := `SELECT value, version FROM slots WHERE key = ?`
	var value string
	var version int64
	err := r.DB.QueryRowContext(ctx, query, key).Scan(&value, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	return []byte(value), version, nil
}

func (r *slotRepository) Put(ctx context.Context, key string, value []byte, expectedVersion int64) (int64, error) {
	var (
		query string
		args  []interface{}
	)
	if expectedVersion == 0 {
		query = `
			INSERT INTO slots (key, value, version)
			VALUES (?, ?, 1)
			ON CONFLICT (key) DO NOTHING
			RETURNING version
		`
		args = []interface{}{key, string(value)}
	} else {
		query = `
			UPDATE slots SET value = ?, version = version + 1
			WHERE key = ? AND version = ?
			RETURNING version
		`
		args = []interface{}{string(value), key, expectedVersion}
	}
	var version int64
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrConcurrentModification
		}
		return 0, err
	}
	return version, nil
}
