// Package draft owns the in-progress values of one record while the operator
// adds or edits it.
//
// A Draft is created from an entity schema, optionally seeded with an
// existing row, edited field by field, and finally committed. Commit either
// returns the complete positional value array or a *ValidationError and
// leaves the draft exactly as it was.
package draft

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
)

// ErrWidthMismatch is returned when an existing row does not have one value
// per schema field.
var ErrWidthMismatch = errors.New("value count does not match schema")

// ErrFieldIndex is returned by Set for a position outside the schema.
var ErrFieldIndex = errors.New("field index out of range")

// ValidationError carries the per-field messages that blocked a commit,
// keyed by field position.
type ValidationError struct {
	Fields map[int]string
}

func (e *ValidationError) Error() string {
	idx := make([]int, 0, len(e.Fields))
	for i := range e.Fields {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	msgs := make([]string, 0, len(idx))
	for _, i := range idx {
		msgs = append(msgs, e.Fields[i])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Draft is the working copy of one record.
type Draft struct {
	entity   *schema.Entity
	values   record.Values
	errors   map[int]string
	existing bool
	log      zerolog.Logger
}

// New starts a draft. With existing == nil the draft is a new record seeded
// from field defaults; otherwise existing is copied verbatim.
func New(entity *schema.Entity, existing record.Values, log zerolog.Logger) (*Draft, error) {
	d := &Draft{
		entity: entity,
		errors: make(map[int]string),
		log:    log.With().Str("entity", entity.ID).Logger(),
	}
	if existing != nil {
		if len(existing) != entity.Width() {
			return nil, fmt.Errorf("%s: got %d values for %d fields: %w",
				entity.ID, len(existing), entity.Width(), ErrWidthMismatch)
		}
		d.values = existing.Clone()
		d.existing = true
		return d, nil
	}

	d.values = make(record.Values, entity.Width())
	for i, f := range entity.Fields {
		switch {
		case f.HasDefault():
			d.values[i] = f.Default
		case f.Type == fieldtype.TagToggle:
			d.values[i] = false
		default:
			d.values[i] = ""
		}
	}
	return d, nil
}

// Entity returns the schema the draft was built from.
func (d *Draft) Entity() *schema.Entity { return d.entity }

// IsNew reports whether the draft will create a record.
func (d *Draft) IsNew() bool { return !d.existing }

// Values returns a copy of the current values.
func (d *Draft) Values() record.Values { return d.values.Clone() }

// Errors returns a copy of the current field errors.
func (d *Draft) Errors() map[int]string {
	out := make(map[int]string, len(d.errors))
	for k, v := range d.errors {
		out[k] = v
	}
	return out
}

// Set replaces the value at index and clears its error.
func (d *Draft) Set(index int, value any) error {
	if index < 0 || index >= len(d.values) {
		return fmt.Errorf("%s field %d: %w", d.entity.ID, index, ErrFieldIndex)
	}
	d.values[index] = value
	delete(d.errors, index)
	return nil
}

// SetByKey is Set addressed by field key.
func (d *Draft) SetByKey(key string, value any) error {
	i, ok := d.entity.Index(key)
	if !ok {
		return fmt.Errorf("%s field %q: %w", d.entity.ID, key, ErrFieldIndex)
	}
	return d.Set(i, value)
}

// ValidateAndCommit checks required fields and, when none are empty, derives
// computed fields and returns the final value array. On failure the returned
// error is a *ValidationError and the draft values are not touched; the
// per-field messages are recorded for display (Errors) until the field is Set.
func (d *Draft) ValidateAndCommit() (record.Values, error) {
	errs := make(map[int]string)
	for i, f := range d.entity.Fields {
		if f.Required && fieldtype.IsEmpty(d.values[i]) {
			errs[i] = f.Label + " is required"
		}
	}
	if len(errs) > 0 {
		for i, msg := range errs {
			d.errors[i] = msg
		}
		return nil, &ValidationError{Fields: errs}
	}

	out := d.values.Clone()
	sib := siblings{entity: d.entity, values: out}
	for i, f := range d.entity.Fields {
		if !f.Computed || f.Rule == nil {
			continue
		}
		if v, ok := f.Rule.Derive(sib); ok {
			out[i] = v
		}
	}
	return out, nil
}

// siblings exposes a value array to compute rules by field key.
type siblings struct {
	entity *schema.Entity
	values record.Values
}

func (s siblings) Lookup(key string) (any, bool) {
	i, ok := s.entity.Index(key)
	if !ok {
		return nil, false
	}
	return s.values[i], true
}
