// Package schema provides the entity schema registry.
//
// The registry is built once at startup from the CUE definitions in
// entities.cue (or an operator-supplied file) and is read-only afterwards,
// so it is safe for concurrent use. Field order is the positional contract
// with the record store: value[i] always belongs to Fields[i].
package schema

import (
	"fmt"

	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
)

// OptionsFrom points a select-family field at another entity's column.
type OptionsFrom struct {
	Entity string   `json:"entity"`
	Column int      `json:"column"`
	Merge  []string `json:"merge,omitempty"` // more entities projected on the same column
}

// Field describes one positional column of an entity.
type Field struct {
	Key         string        `json:"key"`
	Label       string        `json:"label"`
	Type        fieldtype.Tag `json:"type"`
	Required    bool          `json:"required"`
	Default     any           `json:"default,omitempty"`
	Options     []string      `json:"options,omitempty"`
	OptionsFrom *OptionsFrom  `json:"options_from,omitempty"`
	Computed    bool          `json:"computed,omitempty"`
	Rule        ComputeRule   `json:"-"`
}

// HasDefault reports whether the schema seeds this field.
func (f Field) HasDefault() bool {
	return f.Default != nil
}

// ReadOnly reports whether the operator can never edit the field.
func (f Field) ReadOnly() bool {
	return f.Computed || f.Type == fieldtype.TagReadOnly || f.Type == fieldtype.TagComputed
}

// Entity is the schema of one record collection.
type Entity struct {
	ID     string  `json:"id"` // external collection name
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`
}

// Width is the length of every value array of this entity.
func (e *Entity) Width() int {
	return len(e.Fields)
}

// Index returns the position of the field with the given key.
func (e *Entity) Index(key string) (int, bool) {
	for i, f := range e.Fields {
		if f.Key == key {
			return i, true
		}
	}
	return -1, false
}

// Registry holds every entity schema. It is immutable once built.
type Registry struct {
	entities map[string]*Entity
	order    []string
}

// New validates the given entities and builds a registry in argument order.
func New(entities ...Entity) (*Registry, error) {
	r := &Registry{entities: make(map[string]*Entity, len(entities))}
	for i := range entities {
		e := entities[i]
		if e.ID == "" {
			return nil, fmt.Errorf("entity %d: missing id", i)
		}
		if _, dup := r.entities[e.ID]; dup {
			return nil, fmt.Errorf("entity %s: declared twice", e.ID)
		}
		e.Fields = append([]Field(nil), e.Fields...)
		for j := range e.Fields {
			if e.Fields[j].Type == fieldtype.TagComputed {
				e.Fields[j].Computed = true
			}
		}
		r.entities[e.ID] = &e
		r.order = append(r.order, e.ID)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the schema for an entity. The returned value must not be modified.
func (r *Registry) Get(id string) (*Entity, bool) {
	e, ok := r.entities[id]
	return e, ok
}

// MustGet returns the schema for an entity and panics when it is unknown.
// An unknown id here is a programming error at the call site.
func (r *Registry) MustGet(id string) *Entity {
	e, ok := r.entities[id]
	if !ok {
		panic(fmt.Sprintf("schema: unknown entity %q", id))
	}
	return e
}

// EntityIDs returns all entity ids in declaration order.
func (r *Registry) EntityIDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
