package schema

import (
	"fmt"

	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
)

// validate checks every invariant a schema must hold before the engine uses it.
func (r *Registry) validate() error {
	for _, id := range r.order {
		e := r.entities[id]
		if len(e.Fields) == 0 {
			return fmt.Errorf("entity %s: no fields", id)
		}
		seen := make(map[string]bool, len(e.Fields))
		for i, f := range e.Fields {
			if f.Key == "" {
				return fmt.Errorf("entity %s field %d: missing key", id, i)
			}
			if seen[f.Key] {
				return fmt.Errorf("entity %s: duplicate field key %q", id, f.Key)
			}
			seen[f.Key] = true
			if err := r.validateField(f); err != nil {
				return fmt.Errorf("entity %s field %s: %w", id, f.Key, err)
			}
		}
	}
	return nil
}

func (r *Registry) validateField(f Field) error {
	if _, ok := fieldtype.Resolve(f.Type); !ok {
		return fmt.Errorf("unknown field type %q", f.Type)
	}

	hasStatic := len(f.Options) > 0
	hasRef := f.OptionsFrom != nil
	if hasStatic && hasRef {
		return fmt.Errorf("options and optionsFrom are mutually exclusive")
	}
	if (hasStatic || hasRef) && !fieldtype.IsSelectFamily(f.Type) {
		return fmt.Errorf("options set on non-select type %q", f.Type)
	}
	if hasRef {
		if err := r.validateOptionsFrom(f.OptionsFrom); err != nil {
			return err
		}
	}

	if f.Computed {
		if f.Required {
			return fmt.Errorf("computed field cannot be required")
		}
		if f.Rule == nil {
			return fmt.Errorf("computed field has no rule")
		}
	}
	return nil
}

func (r *Registry) validateOptionsFrom(of *OptionsFrom) error {
	if of.Column < 0 {
		return fmt.Errorf("optionsFrom column %d is negative", of.Column)
	}
	for _, id := range append([]string{of.Entity}, of.Merge...) {
		src, ok := r.entities[id]
		if !ok {
			return fmt.Errorf("optionsFrom references unknown entity %q", id)
		}
		if of.Column >= src.Width() {
			return fmt.Errorf("optionsFrom column %d out of range for %s (%d fields)", of.Column, id, src.Width())
		}
	}
	return nil
}
