package schema

import (
	"testing"

	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsEmbeddedEntities(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Volunteers", "Ministries", "WeeklyMasses", "MonthlyMasses", "YearlyMasses",
		"MassTemplates", "Timeoffs", "Config", "LiturgicalReadings",
	}, reg.EntityIDs())

	vol := reg.MustGet("Volunteers")
	idx, ok := vol.Index("fullName")
	require.True(t, ok)
	assert.Equal(t, 3, idx)
	full := vol.Fields[idx]
	assert.True(t, full.Computed)
	assert.False(t, full.Required)
	assert.IsType(t, FullName{}, full.Rule)

	status := vol.Fields[9]
	assert.Equal(t, "status", status.Key)
	assert.Equal(t, "Active", status.Default)
	assert.Contains(t, status.Options, "Substitute Only")

	masses := vol.Fields[8]
	require.NotNil(t, masses.OptionsFrom)
	assert.Equal(t, "WeeklyMasses", masses.OptionsFrom.Entity)
	assert.Equal(t, []string{"MonthlyMasses", "YearlyMasses"}, masses.OptionsFrom.Merge)

	ministries := reg.MustGet("Ministries")
	assert.Equal(t, true, ministries.Fields[3].Default)
	assert.Equal(t, fieldtype.TagToggle, ministries.Fields[3].Type)
}

func TestDefault_MassFieldsShareOrder(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	weekly := reg.MustGet("WeeklyMasses")
	assert.Equal(t, 11, weekly.Width())
	i, ok := weekly.Index("templateName")
	require.True(t, ok)
	assert.Equal(t, 8, i)
}

func TestEntityIDs_ReturnsCopy(t *testing.T) {
	reg, err := New(Entity{ID: "Config", Label: "Settings", Fields: []Field{{Key: "setting", Label: "Setting", Type: fieldtype.TagText}}})
	require.NoError(t, err)
	ids := reg.EntityIDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"Config"}, reg.EntityIDs())
}

func TestGet_Unknown(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	_, ok := reg.Get("Parishioners")
	assert.False(t, ok)
	assert.Panics(t, func() { reg.MustGet("Parishioners") })
}

func TestNew_ValidationErrors(t *testing.T) {
	source := Entity{ID: "Ministries", Label: "Ministries", Fields: []Field{
		{Key: "ministryName", Label: "Ministry", Type: fieldtype.TagText},
	}}
	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{
			name:  "unknown type",
			field: Field{Key: "x", Label: "X", Type: "rating"},
			want:  "unknown field type",
		},
		{
			name: "options and optionsFrom",
			field: Field{Key: "x", Label: "X", Type: fieldtype.TagSelect, Options: []string{"a"},
				OptionsFrom: &OptionsFrom{Entity: "Ministries"}},
			want: "mutually exclusive",
		},
		{
			name:  "options on text",
			field: Field{Key: "x", Label: "X", Type: fieldtype.TagText, Options: []string{"a"}},
			want:  "non-select",
		},
		{
			name:  "unknown source entity",
			field: Field{Key: "x", Label: "X", Type: fieldtype.TagSelect, OptionsFrom: &OptionsFrom{Entity: "Nope"}},
			want:  "unknown entity",
		},
		{
			name: "unknown merge entity",
			field: Field{Key: "x", Label: "X", Type: fieldtype.TagSelect,
				OptionsFrom: &OptionsFrom{Entity: "Ministries", Merge: []string{"Nope"}}},
			want: "unknown entity",
		},
		{
			name:  "column out of range",
			field: Field{Key: "x", Label: "X", Type: fieldtype.TagSelect, OptionsFrom: &OptionsFrom{Entity: "Ministries", Column: 4}},
			want:  "out of range",
		},
		{
			name:  "computed required",
			field: Field{Key: "x", Label: "X", Type: fieldtype.TagComputed, Required: true, Rule: FullName{}},
			want:  "cannot be required",
		},
		{
			name:  "computed without rule",
			field: Field{Key: "x", Label: "X", Type: fieldtype.TagText, Computed: true},
			want:  "no rule",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := Entity{ID: "Target", Label: "Target", Fields: []Field{tt.field}}
			_, err := New(source, target)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNew_DuplicateKeysAndEntities(t *testing.T) {
	f := Field{Key: "a", Label: "A", Type: fieldtype.TagText}
	_, err := New(Entity{ID: "E", Label: "E", Fields: []Field{f, f}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate field key")

	_, err = New(Entity{ID: "E", Label: "E", Fields: []Field{f}}, Entity{ID: "E", Label: "E", Fields: []Field{f}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestLoad_RejectsUnknownTagAtLoad(t *testing.T) {
	src := []byte(`
#Field: {key: string, label: string, type: "text" | "select", required: *false | bool}
entities: [{id: "Config", label: "Settings", fields: [...#Field] & [{key: "setting", label: "Setting", type: "slider"}]}]
`)
	_, err := Load(src, "bad.cue")
	require.Error(t, err)
}

func TestLoad_UnknownRule(t *testing.T) {
	src := []byte(`
entities: [{id: "People", label: "People", fields: [
	{key: "name", label: "Name", type: "computed", computed: true, rule: "initials"},
]}]
`)
	_, err := Load(src, "rules.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown compute rule")
}

func TestFullName_Derive(t *testing.T) {
	s := mapSiblings{"firstName": "Ana", "lastName": "Ruiz"}
	v, ok := FullName{}.Derive(s)
	require.True(t, ok)
	assert.Equal(t, "Ana Ruiz", v)

	v, ok = FullName{}.Derive(mapSiblings{"firstName": "", "lastName": "Ruiz"})
	require.True(t, ok)
	assert.Equal(t, "Ruiz", v)

	_, ok = FullName{}.Derive(mapSiblings{"lastName": "Ruiz"})
	assert.False(t, ok)
}

type mapSiblings map[string]any

func (m mapSiblings) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}
