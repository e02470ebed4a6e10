// Package record defines the record store collaborator: named collections of
// positional value arrays addressed by zero-based row index.
//
// A row index is only meaningful for the snapshot it was read from. Any
// create, update or delete may shift rows, so callers re-read before the
// next mutation.
package record

import (
	"context"
	"errors"
)

// Values is one record, aligned with its entity schema by position.
type Values []any

// Clone returns a copy that shares no backing array with v.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	copy(out, v)
	return out
}

// ErrRowNotFound is returned when a row index does not exist in the collection,
// which usually means the caller holds a stale snapshot.
var ErrRowNotFound = errors.New("row not found")

// Store is the record persistence collaborator.
type Store interface {
	// Read returns every row of a collection in row-index order.
	Read(ctx context.Context, collection string) ([]Values, error)
	// Create appends a row.
	Create(ctx context.Context, collection string, values Values) error
	// Update replaces the row at index.
	Update(ctx context.Context, collection string, row int, values Values) error
	// Delete removes the row at index; later rows shift down by one.
	Delete(ctx context.Context, collection string, row int) error
}
