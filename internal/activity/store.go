package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// Store is the interface for reading and writing activity entries.
type Store interface {
	// WriteEntries writes entries, ignoring ones already stored.
	WriteEntries(ctx context.Context, entries []Entry) error

	// Query returns entries matching opts, newest first.
	Query(ctx context.Context, opts QueryOptions) (*Page, error)
}

const entriesTable = "activity_entries"

var entryColumns = []string{
	"event_id", "event_type", "occurred_at", "session_id", "summary",
	"category", "weight", "weight_rank", "polarity", "payload",
}

// SQLStore implements Store on a SQLite table. occurred_at is stored as
// Unix nanoseconds so ordering and cursors stay exact.
type SQLStore struct {
	db *sql.DB
	b  *entsql.DialectBuilder
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, b: entsql.Dialect(dialect.SQLite)}
}

// CreateTable creates the activity_entries table and its indexes.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	stmts := []string{`
		CREATE TABLE IF NOT EXISTS activity_entries (
			event_id    TEXT    PRIMARY KEY,
			event_type  TEXT    NOT NULL,
			occurred_at INTEGER NOT NULL,
			session_id  TEXT    NOT NULL DEFAULT '',
			summary     TEXT    NOT NULL,
			category    TEXT    NOT NULL,
			weight      TEXT    NOT NULL,
			weight_rank INTEGER NOT NULL,
			polarity    TEXT    NOT NULL,
			payload     TEXT
		)`, `
		CREATE INDEX IF NOT EXISTS idx_activity_time
			ON activity_entries (occurred_at DESC)`, `
		CREATE INDEX IF NOT EXISTS idx_activity_session_time
			ON activity_entries (session_id, occurred_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating activity table: %w", err)
		}
	}
	return nil
}

// WriteEntries inserts activity entries.
func (s *SQLStore) WriteEntries(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ins := s.b.Insert(entriesTable).Columns(entryColumns...).OnConflict(entsql.DoNothing())
	for _, e := range entries {
		var payload any
		if len(e.Payload) > 0 {
			payload = string(e.Payload)
		}
		ins.Values(
			e.EventID, e.EventType, e.OccurredAt.UnixNano(), e.SessionID, e.Summary,
			e.Category, e.Weight, WeightRank(e.Weight), e.Polarity, payload,
		)
	}
	query, args := ins.Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("writing activity entries: %w", err)
	}
	return nil
}

// predicates builds the filter for opts. It is called once per statement
// because a predicate renders into its own builder.
func predicates(opts QueryOptions, withCursor bool) []*entsql.Predicate {
	var ps []*entsql.Predicate
	if opts.SessionID != "" {
		ps = append(ps, entsql.EQ("session_id", opts.SessionID))
	}
	if opts.Since != nil {
		ps = append(ps, entsql.GTE("occurred_at", opts.Since.UnixNano()))
	}
	if len(opts.Categories) > 0 {
		cats := make([]any, len(opts.Categories))
		for i, c := range opts.Categories {
			cats[i] = c
		}
		ps = append(ps, entsql.In("category", cats...))
	}
	if r := WeightRank(opts.MinWeight); r > 1 {
		ps = append(ps, entsql.GTE("weight_rank", r))
	}
	if c, ok := opts.cursor(); ok && withCursor {
		ps = append(ps, entsql.LT("occurred_at", c.UnixNano()))
	}
	return ps
}

// Query returns entries matching opts with cursor pagination.
func (s *SQLStore) Query(ctx context.Context, opts QueryOptions) (*Page, error) {
	limit := opts.limit()
	sel := s.b.Select(entryColumns...).From(s.b.Table(entriesTable))
	if ps := predicates(opts, true); len(ps) > 0 {
		sel.Where(entsql.And(ps...))
	}
	query, args := sel.OrderBy(entsql.Desc("occurred_at")).Limit(limit + 1).Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity entries: %w", err)
	}
	defer rows.Close()

	page := &Page{}
	for rows.Next() {
		var (
			e       Entry
			at      int64
			rank    int
			payload sql.NullString
		)
		if err := rows.Scan(&e.EventID, &e.EventType, &at, &e.SessionID, &e.Summary,
			&e.Category, &e.Weight, &rank, &e.Polarity, &payload); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.OccurredAt = time.Unix(0, at).UTC()
		if payload.Valid {
			e.Payload = []byte(payload.String)
		}
		page.Entries = append(page.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying activity entries: %w", err)
	}
	if len(page.Entries) > limit {
		page.Entries = page.Entries[:limit]
		page.NextCursor = cursorOf(page.Entries[limit-1])
	}

	// Total count ignores the cursor, as the memory store does.
	count := s.b.Select(entsql.Count("*")).From(s.b.Table(entriesTable))
	if ps := predicates(opts, false); len(ps) > 0 {
		count.Where(entsql.And(ps...))
	}
	cq, cargs := count.Query()
	if err := s.db.QueryRowContext(ctx, cq, cargs...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting activity entries: %w", err)
	}
	return page, nil
}
