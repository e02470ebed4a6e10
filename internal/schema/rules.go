package schema

import (
	"strings"

	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
)

// Siblings gives a compute rule access to the other fields of a record by key.
type Siblings interface {
	Lookup(key string) (any, bool)
}

// ComputeRule derives a computed field from its siblings. The set of rules is
// closed; each variant lives in this file.
type ComputeRule interface {
	Name() string
	// Derive returns the new value, or ok=false when a sibling it needs is
	// absent from the schema, in which case the field keeps its value.
	Derive(s Siblings) (value any, ok bool)

	sealedRule()
}

// FullName joins firstName and lastName with a space and trims the result.
type FullName struct{}

func (FullName) Name() string { return "fullName" }

func (FullName) Derive(s Siblings) (any, bool) {
	first, ok := s.Lookup("firstName")
	if !ok {
		return nil, false
	}
	last, ok := s.Lookup("lastName")
	if !ok {
		return nil, false
	}
	return strings.TrimSpace(fieldtype.Stringify(first) + " " + fieldtype.Stringify(last)), true
}

func (FullName) sealedRule() {}

var rules = map[string]ComputeRule{
	FullName{}.Name(): FullName{},
}

// LookupRule returns the compute rule registered under name.
func LookupRule(name string) (ComputeRule, bool) {
	r, ok := rules[name]
	return r, ok
}
