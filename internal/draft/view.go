package draft

import (
	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
)

// FieldView is one field of the form rendered for a draft.
type FieldView struct {
	Index    int              `json:"index"`
	Key      string           `json:"key"`
	Label    string           `json:"label"`
	Type     fieldtype.Tag    `json:"type"`
	Widget   fieldtype.Widget `json:"widget"`
	Editable bool             `json:"editable"`
	Required bool             `json:"required"`
	Value    any              `json:"value"`
	Display  string           `json:"display"`
	Error    string           `json:"error,omitempty"`
	Options  []string         `json:"options,omitempty"`
}

// Fields returns the form view of the draft in schema order.
//
// Read-only and computed fields are left out of a new record's form and shown
// as static text when editing. A field whose type tag is not registered is
// logged and skipped.
func (d *Draft) Fields() []FieldView {
	views := make([]FieldView, 0, len(d.entity.Fields))
	for i, f := range d.entity.Fields {
		ft, ok := fieldtype.Resolve(f.Type)
		if !ok {
			d.log.Error().Str("field", f.Key).Str("type", string(f.Type)).Msg("draft: unknown field type, skipping")
			continue
		}
		if f.ReadOnly() && !d.existing {
			continue
		}

		render := ft.Render()
		if f.ReadOnly() {
			render = fieldtype.Render{Widget: fieldtype.WidgetStatic}
		}
		v := FieldView{
			Index:    i,
			Key:      f.Key,
			Label:    f.Label,
			Type:     f.Type,
			Widget:   render.Widget,
			Editable: render.Editable,
			Required: f.Required,
			Value:    d.values[i],
			Display:  ft.Encode(d.values[i]),
			Error:    d.errors[i],
		}
		if len(f.Options) > 0 {
			v.Options = append([]string(nil), f.Options...)
		}
		views = append(views, v)
	}
	return views
}
