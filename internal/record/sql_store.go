package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const recordsTable = "records"

// SQLStore implements Store on a single SQLite table. Each row keeps its
// collection name, an insertion position and the JSON-encoded value array;
// the row index is the rank by position within the collection.
type SQLStore struct {
	db *sql.DB
	b  *entsql.DialectBuilder
}

// NewSQLStore creates a SQLStore. Call CreateTable once before use.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, b: entsql.Dialect(dialect.SQLite)}
}

// CreateTable creates the records table and its index if they are missing.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT    NOT NULL,
			position   INTEGER NOT NULL,
			vals       TEXT    NOT NULL
		)`); err != nil {
		return fmt.Errorf("creating records table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_records_collection_position
			ON records (collection, position)`); err != nil {
		return fmt.Errorf("creating records index: %w", err)
	}
	return nil
}

func (s *SQLStore) Read(ctx context.Context, collection string) ([]Values, error) {
	query, args := s.b.Select("vals").
		From(s.b.Table(recordsTable)).
		Where(entsql.EQ("collection", collection)).
		OrderBy("position", "id").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Values
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", collection, err)
		}
		var v Values
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decoding %s row %d: %w", collection, len(out), err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}
	return out, nil
}

func (s *SQLStore) Create(ctx context.Context, collection string, values Values) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding %s row: %w", collection, err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		query, args := s.b.Select("position").
			From(s.b.Table(recordsTable)).
			Where(entsql.EQ("collection", collection)).
			OrderBy(entsql.Desc("position")).
			Limit(1).
			Query()
		var last sql.NullInt64
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&last); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("finding last %s position: %w", collection, err)
		}

		query, args = s.b.Insert(recordsTable).
			Columns("collection", "position", "vals").
			Values(collection, last.Int64+1, string(data)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting %s row: %w", collection, err)
		}
		return nil
	})
}

func (s *SQLStore) Update(ctx context.Context, collection string, row int, values Values) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding %s row: %w", collection, err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		id, err := s.rowID(ctx, tx, collection, row)
		if err != nil {
			return err
		}
		query, args := s.b.Update(recordsTable).
			Set("vals", string(data)).
			Where(entsql.EQ("id", id)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("updating %s row %d: %w", collection, row, err)
		}
		return nil
	})
}

func (s *SQLStore) Delete(ctx context.Context, collection string, row int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		id, err := s.rowID(ctx, tx, collection, row)
		if err != nil {
			return err
		}
		query, args := s.b.Delete(recordsTable).
			Where(entsql.EQ("id", id)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("deleting %s row %d: %w", collection, row, err)
		}
		return nil
	})
}

// rowID resolves a row index to the table's primary key.
func (s *SQLStore) rowID(ctx context.Context, tx *sql.Tx, collection string, row int) (int64, error) {
	if row < 0 {
		return 0, fmt.Errorf("%s row %d: %w", collection, row, ErrRowNotFound)
	}
	query, args := s.b.Select("id").
		From(s.b.Table(recordsTable)).
		Where(entsql.EQ("collection", collection)).
		OrderBy("position", "id").
		Limit(1).
		Offset(row).
		Query()
	var id int64
	err := tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s row %d: %w", collection, row, ErrRowNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("locating %s row %d: %w", collection, row, err)
	}
	return id, nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
