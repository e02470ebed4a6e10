package schema

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
)

//go:embed entities.cue
var defaultSource []byte

// entityDef and fieldDef mirror the #Entity and #Field CUE definitions.
type entityDef struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Fields []fieldDef `json:"fields"`
}

type fieldDef struct {
	Key         string       `json:"key"`
	Label       string       `json:"label"`
	Type        string       `json:"type"`
	Required    bool         `json:"required"`
	Default     any          `json:"default"`
	Options     []string     `json:"options"`
	OptionsFrom *OptionsFrom `json:"optionsFrom"`
	Computed    bool         `json:"computed"`
	Rule        string       `json:"rule"`
}

// Default builds the registry from the embedded entity definitions.
func Default() (*Registry, error) {
	return Load(defaultSource, "entities.cue")
}

// LoadFile builds a registry from a CUE file on disk.
func LoadFile(path string) (*Registry, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return Load(src, path)
}

// Load compiles CUE source, checks it against the #Entity definition and
// returns the validated registry.
func Load(src []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", filename, err)
	}

	list := v.LookupPath(cue.ParsePath("entities"))
	if !list.Exists() {
		return nil, fmt.Errorf("%s: no entities list", filename)
	}
	if err := list.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating %s: %w", filename, err)
	}

	var defs []entityDef
	if err := list.Decode(&defs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}

	entities := make([]Entity, 0, len(defs))
	for _, d := range defs {
		e := Entity{ID: d.ID, Label: d.Label, Fields: make([]Field, 0, len(d.Fields))}
		for _, fd := range d.Fields {
			f, err := fd.field()
			if err != nil {
				return nil, fmt.Errorf("entity %s field %s: %w", d.ID, fd.Key, err)
			}
			e.Fields = append(e.Fields, f)
		}
		entities = append(entities, e)
	}
	return New(entities...)
}

func (fd fieldDef) field() (Field, error) {
	f := Field{
		Key:         fd.Key,
		Label:       fd.Label,
		Type:        fieldtype.Tag(fd.Type),
		Required:    fd.Required,
		Default:     fd.Default,
		Options:     fd.Options,
		OptionsFrom: fd.OptionsFrom,
		Computed:    fd.Computed,
	}
	if fd.Rule != "" {
		rule, ok := LookupRule(fd.Rule)
		if !ok {
			return Field{}, fmt.Errorf("unknown compute rule %q", fd.Rule)
		}
		f.Rule = rule
	}
	return f, nil
}
