// Package admin drives record and settings edits for one operator: it builds
// form view models, commits drafts to the record store and re-reads the
// collection after every write.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/draft"
	"github.com/mfperdi/parishliturgyplanner/internal/event"
	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
	"github.com/mfperdi/parishliturgyplanner/internal/options"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/remote"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrUnknownField  = errors.New("unknown field")
	ErrReadOnlyField = errors.New("field is read-only")
	ErrUnknownRow    = errors.New("unknown settings row")
)

// NewRow is the row index of a form that creates a record.
const NewRow = -1

// Form is the view model of an add or edit form.
type Form struct {
	Entity string            `json:"entity"`
	Label  string            `json:"label"`
	Row    int               `json:"row"`
	Fields []draft.FieldView `json:"fields"`
}

// Listing is a snapshot of one collection. Row indexes are valid only for
// this snapshot.
type Listing struct {
	Entity string          `json:"entity"`
	Label  string          `json:"label"`
	Fields []schema.Field  `json:"fields"`
	Rows   []record.Values `json:"rows"`
}

// Records edits the collections described by a schema registry.
type Records struct {
	reg   *schema.Registry
	store record.Store
	opts  *options.Resolver
	pub   event.Publisher
	log   zerolog.Logger
}

// NewRecords creates a Records service.
func NewRecords(reg *schema.Registry, store record.Store, pub event.Publisher, log zerolog.Logger) *Records {
	if pub == nil {
		pub = event.Nop
	}
	return &Records{
		reg:   reg,
		store: store,
		opts:  options.NewResolver(store, log),
		pub:   pub,
		log:   log,
	}
}

func (r *Records) entity(id string) (*schema.Entity, error) {
	e, ok := r.reg.Get(id)
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrUnknownEntity)
	}
	return e, nil
}

// List reads a collection.
func (r *Records) List(ctx context.Context, entityID string) (*Listing, error) {
	e, err := r.entity(entityID)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.Read(ctx, e.ID)
	if err != nil {
		return nil, remote.Wrap("readRecords", err)
	}
	return &Listing{Entity: e.ID, Label: e.Label, Fields: e.Fields, Rows: rows}, nil
}

// Form builds the form for a new record (row == NewRow) or for the row at
// index in a fresh read of the collection.
func (r *Records) Form(ctx context.Context, entityID string, row int) (*Form, error) {
	e, err := r.entity(entityID)
	if err != nil {
		return nil, err
	}
	d, err := r.open(ctx, e, row)
	if err != nil {
		return nil, err
	}
	return r.form(ctx, e, row, d), nil
}

func (r *Records) form(ctx context.Context, e *schema.Entity, row int, d *draft.Draft) *Form {
	resolved := r.opts.Resolve(ctx, e)
	views := d.Fields()
	for i := range views {
		if set, ok := resolved[views[i].Key]; ok {
			views[i].Options = set.Values()
		}
	}
	return &Form{Entity: e.ID, Label: e.Label, Row: row, Fields: views}
}

func (r *Records) open(ctx context.Context, e *schema.Entity, row int) (*draft.Draft, error) {
	if row == NewRow {
		return draft.New(e, nil, r.log)
	}
	rows, err := r.store.Read(ctx, e.ID)
	if err != nil {
		return nil, remote.Wrap("readRecords", err)
	}
	if row < 0 || row >= len(rows) {
		return nil, fmt.Errorf("%s row %d: %w", e.ID, row, record.ErrRowNotFound)
	}
	return draft.New(e, rows[row], r.log)
}

// SaveResult is the outcome of a save. On a validation failure Form carries
// the field errors and Rows is nil.
type SaveResult struct {
	Form *Form           `json:"form,omitempty"`
	Rows []record.Values `json:"rows,omitempty"`
}

// Save applies input (field key to value) to a draft of the given row and
// commits it. A *draft.ValidationError is returned together with the form
// to show again; a store failure is a *remote.Failure. After a successful
// write the collection is re-read.
func (r *Records) Save(ctx context.Context, entityID string, row int, input map[string]any) (*SaveResult, error) {
	e, err := r.entity(entityID)
	if err != nil {
		return nil, err
	}
	d, err := r.open(ctx, e, row)
	if err != nil {
		return nil, err
	}
	if err := apply(e, d, input); err != nil {
		return nil, err
	}

	values, err := d.ValidateAndCommit()
	if err != nil {
		return &SaveResult{Form: r.form(ctx, e, row, d)}, err
	}

	op := "update"
	if row == NewRow {
		op = "create"
		err = r.store.Create(ctx, e.ID, values)
	} else {
		err = r.store.Update(ctx, e.ID, row, values)
	}
	if err != nil {
		r.log.Warn().Err(err).Str("entity", e.ID).Int("row", row).Msg("admin: save failed")
		return nil, remote.Wrap(op+"Record", err)
	}
	r.pub.Publish(ctx, event.NewRecordWritten(event.RecordWrittenPayload{Entity: e.ID, Op: op, Row: row}))

	rows, err := r.refreshAfterWrite(ctx, e)
	if err != nil {
		return nil, err
	}
	return &SaveResult{Rows: rows}, nil
}

// Delete removes a row and re-reads the collection.
func (r *Records) Delete(ctx context.Context, entityID string, row int) ([]record.Values, error) {
	e, err := r.entity(entityID)
	if err != nil {
		return nil, err
	}
	if err := r.store.Delete(ctx, e.ID, row); err != nil {
		if errors.Is(err, record.ErrRowNotFound) {
			return nil, err
		}
		return nil, remote.Wrap("deleteRecord", err)
	}
	r.pub.Publish(ctx, event.NewRecordWritten(event.RecordWrittenPayload{Entity: e.ID, Op: "delete", Row: row}))
	return r.refreshAfterWrite(ctx, e)
}

// refreshAfterWrite re-reads a collection after a write has returned. Row
// indexes held from before the write are stale from here on.
func (r *Records) refreshAfterWrite(ctx context.Context, e *schema.Entity) ([]record.Values, error) {
	rows, err := r.store.Read(ctx, e.ID)
	if err != nil {
		return nil, remote.Wrap("readRecords", err)
	}
	return rows, nil
}

// apply converts operator input to stored values and sets them on d.
func apply(e *schema.Entity, d *draft.Draft, input map[string]any) error {
	for key, v := range input {
		i, ok := e.Index(key)
		if !ok {
			return fmt.Errorf("%s.%s: %w", e.ID, key, ErrUnknownField)
		}
		f := e.Fields[i]
		if f.ReadOnly() {
			return fmt.Errorf("%s.%s: %w", e.ID, key, ErrReadOnlyField)
		}
		ft, ok := fieldtype.Resolve(f.Type)
		if !ok {
			return fmt.Errorf("%s.%s: %w", e.ID, key, ErrUnknownField)
		}
		if err := d.Set(i, normalize(ft, v)); err != nil {
			return err
		}
	}
	return nil
}

// normalize brings a submitted value into its stored form: multi-select
// choices become one delimited string, the rest go through the type's
// display round-trip so dates and times are canonical.
func normalize(ft fieldtype.Type, v any) any {
	if ft.Tag() == fieldtype.TagMultiSelect {
		return ft.Encode(v)
	}
	if s, ok := v.(string); ok {
		return ft.Decode(s)
	}
	return ft.Decode(ft.Encode(v))
}
