package postgres

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"

	"eventboard/internal/domain"
)

const createSlotsTable = `
	CREATE TABLE IF NOT EXISTS slots (
		key     TEXT PRIMARY KEY,
		value   TEXT NOT NULL,
		version BIGINT NOT NULL
	)
`

// Open connects to PostgreSQL with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the slots table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, createSlotsTable)
	return err
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
	query := `SELECT value, version FROM slots WHERE key = $1`
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
			VALUES ($1, $2, 1)
			ON CONFLICT (key) DO NOTHING
			RETURNING version
		`
		args = []interface{}{key, string(value)}
	} else {
		query = `
			UPDATE slots SET value = $1, version = version + 1
			WHERE key = $2 AND version = $3
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
