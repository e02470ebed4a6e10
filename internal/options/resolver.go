// Package options resolves the choices of select-family fields whose values
// come from another entity's column.
package options

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
)

// Set is an ordered collection of distinct option values.
type Set struct {
	values []string
	seen   map[string]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add appends v unless it is empty or already present. Matching is exact.
func (s *Set) Add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}

// Values returns the options in first-seen order.
func (s *Set) Values() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}

func (s *Set) Len() int { return len(s.values) }

func (s *Set) Contains(v string) bool {
	_, ok := s.seen[v]
	return ok
}

// Resolver builds option sets from the record store.
type Resolver struct {
	store record.Store
	log   zerolog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(store record.Store, log zerolog.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// Resolve returns an option set for every field of entity that declares
// optionsFrom, keyed by field key. A failed read degrades only the fields
// that needed that source; they keep whatever the other sources gave.
func (r *Resolver) Resolve(ctx context.Context, entity *schema.Entity) map[string]*Set {
	out := make(map[string]*Set)
	cache := newReadCache(r.store)

	for _, f := range entity.Fields {
		if f.OptionsFrom == nil {
			continue
		}
		set := NewSet()
		out[f.Key] = set

		sources := append([]string{f.OptionsFrom.Entity}, f.OptionsFrom.Merge...)
		for _, src := range sources {
			rows, err := cache.read(ctx, src)
			if err != nil {
				r.log.Warn().Err(err).
					Str("entity", entity.ID).
					Str("field", f.Key).
					Str("source", src).
					Msg("options: source read failed, field degraded")
				continue
			}
			project(set, rows, f.OptionsFrom.Column)
		}
	}
	return out
}

func project(set *Set, rows []record.Values, column int) {
	for _, row := range rows {
		if column >= len(row) {
			continue
		}
		set.Add(fieldtype.Stringify(row[column]))
	}
}

// readCache shares reads of the same collection within one resolution.
// Failures are cached too so every field needing the source degrades alike.
type readCache struct {
	store record.Store
	rows  map[string][]record.Values
	errs  map[string]error
}

func newReadCache(store record.Store) *readCache {
	return &readCache{store: store, rows: make(map[string][]record.Values), errs: make(map[string]error)}
}

func (c *readCache) read(ctx context.Context, collection string) ([]record.Values, error) {
	if err, ok := c.errs[collection]; ok {
		return nil, err
	}
	if rows, ok := c.rows[collection]; ok {
		return rows, nil
	}
	rows, err := c.store.Read(ctx, collection)
	if err != nil {
		c.errs[collection] = err
		return nil, err
	}
	c.rows[collection] = rows
	return rows, nil
}
