// Package fieldtype is the closed set of field types a schema field can use.
//
// Each type tag maps to exactly one variant implementing Type. Variants carry
// the render contract for the form layer and the encode/decode rules that turn
// stored cell values into display strings and operator input back into stored
// values. The set is sealed: adding a variant means adding a Visitor method,
// which every visitor in the module must then implement.
package fieldtype

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Tag is the schema-visible name of a field type.
type Tag string

const (
	TagText        Tag = "text"
	TagMultiline   Tag = "multiline"
	TagToggle      Tag = "toggle"
	TagSelect      Tag = "select"
	TagMultiSelect Tag = "multiselect"
	TagDate        Tag = "date"
	TagTime        Tag = "time"
	TagReadOnly    Tag = "readonly"
	TagComputed    Tag = "computed"
)

// Widget names the input control a form renders for a field.
type Widget string

const (
	WidgetInput       Widget = "input"
	WidgetTextarea    Widget = "textarea"
	WidgetCheckbox    Widget = "checkbox"
	WidgetSelect      Widget = "select"
	WidgetMultiSelect Widget = "multiselect"
	WidgetDate        Widget = "date"
	WidgetTime        Widget = "time"
	WidgetStatic      Widget = "static"
)

// Render is the render contract of a field type.
type Render struct {
	Widget   Widget `json:"widget"`
	Editable bool   `json:"editable"`
}

// Type is one field type variant.
type Type interface {
	Tag() Tag
	Render() Render
	// Encode turns a stored value into its display string.
	Encode(raw any) string
	// Decode turns operator input into the value to store.
	Decode(display string) any
	// Accept dispatches to the visitor method for this variant.
	Accept(v Visitor)

	sealed()
}

// Visitor has one method per variant.
type Visitor interface {
	VisitText(Text)
	VisitMultiline(Multiline)
	VisitToggle(Toggle)
	VisitSelect(Select)
	VisitMultiSelect(MultiSelect)
	VisitDate(Date)
	VisitTime(Time)
	VisitReadOnly(ReadOnly)
	VisitComputed(Computed)
}

var registry = map[Tag]Type{
	TagText:        Text{},
	TagMultiline:   Multiline{},
	TagToggle:      Toggle{},
	TagSelect:      Select{},
	TagMultiSelect: MultiSelect{},
	TagDate:        Date{},
	TagTime:        Time{},
	TagReadOnly:    ReadOnly{},
	TagComputed:    Computed{},
}

// Resolve returns the variant registered for tag. ok is false for an unknown
// tag; callers treat that as a configuration error and skip the field.
func Resolve(tag Tag) (Type, bool) {
	t, ok := registry[tag]
	return t, ok
}

// Tags returns every registered tag in sorted order.
func Tags() []Tag {
	tags := make([]Tag, 0, len(registry))
	for t := range registry {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// IsSelectFamily reports whether fields of this tag offer a set of choices.
func IsSelectFamily(tag Tag) bool {
	return tag == TagSelect || tag == TagMultiSelect
}

// ── Variants ────────────────────────────────────────────────────────────────

// Text is a single-line free text field.
type Text struct{}

func (Text) Tag() Tag                  { return TagText }
func (Text) Render() Render            { return Render{Widget: WidgetInput, Editable: true} }
func (Text) Encode(raw any) string     { return Stringify(raw) }
func (Text) Decode(display string) any { return display }
func (t Text) Accept(v Visitor)        { v.VisitText(t) }
func (Text) sealed()                   {}

// Multiline is a free text area.
type Multiline struct{}

func (Multiline) Tag() Tag                  { return TagMultiline }
func (Multiline) Render() Render            { return Render{Widget: WidgetTextarea, Editable: true} }
func (Multiline) Encode(raw any) string     { return Stringify(raw) }
func (Multiline) Decode(display string) any { return display }
func (t Multiline) Accept(v Visitor)        { v.VisitMultiline(t) }
func (Multiline) sealed()                   {}

// Toggle is a boolean checkbox. Only true and "TRUE" count as on.
type Toggle struct{}

func (Toggle) Tag() Tag       { return TagToggle }
func (Toggle) Render() Render { return Render{Widget: WidgetCheckbox, Editable: true} }

func (Toggle) Encode(raw any) string {
	if IsOn(raw) {
		return "TRUE"
	}
	return "FALSE"
}

func (Toggle) Decode(display string) any { return IsOn(display) }
func (t Toggle) Accept(v Visitor)        { v.VisitToggle(t) }
func (Toggle) sealed()                   {}

// IsOn applies the toggle truth rule.
func IsOn(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return v == "TRUE"
	default:
		return false
	}
}

// Select picks one value from an option set.
type Select struct{}

func (Select) Tag() Tag                  { return TagSelect }
func (Select) Render() Render            { return Render{Widget: WidgetSelect, Editable: true} }
func (Select) Encode(raw any) string     { return Stringify(raw) }
func (Select) Decode(display string) any { return strings.TrimSpace(display) }
func (t Select) Accept(v Visitor)        { v.VisitSelect(t) }
func (Select) sealed()                   {}

// MultiSelect stores several choices as one comma-delimited string.
type MultiSelect struct{}

func (MultiSelect) Tag() Tag       { return TagMultiSelect }
func (MultiSelect) Render() Render { return Render{Widget: WidgetMultiSelect, Editable: true} }

// Encode joins a list with ", ". A string is normalized through Split first.
func (MultiSelect) Encode(raw any) string {
	switch v := raw.(type) {
	case []string:
		return Join(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, Stringify(p))
		}
		return Join(Split(strings.Join(parts, ",")))
	default:
		return Join(Split(Stringify(raw)))
	}
}

// Decode splits the stored string into its choices.
func (MultiSelect) Decode(display string) any { return Split(display) }
func (t MultiSelect) Accept(v Visitor)        { v.VisitMultiSelect(t) }
func (MultiSelect) sealed()                   {}

// Split splits on commas, trims each part and drops empties.
func Split(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Join is the inverse of Split for lists of non-empty values.
func Join(values []string) string {
	return strings.Join(values, ", ")
}

// Date stores dates as YYYY-MM-DD.
type Date struct{}

func (Date) Tag() Tag       { return TagDate }
func (Date) Render() Render { return Render{Widget: WidgetDate, Editable: true} }

func (Date) Encode(raw any) string {
	if t, ok := raw.(time.Time); ok {
		return t.Format(DateLayout)
	}
	return ParseDate(Stringify(raw))
}

func (Date) Decode(display string) any { return ParseDate(display) }
func (t Date) Accept(v Visitor)        { v.VisitDate(t) }
func (Date) sealed()                   {}

// Time stores times of day as HH:MM (24h).
type Time struct{}

func (Time) Tag() Tag       { return TagTime }
func (Time) Render() Render { return Render{Widget: WidgetTime, Editable: true} }

func (Time) Encode(raw any) string {
	if t, ok := raw.(time.Time); ok {
		return t.Format(TimeLayout)
	}
	return ParseTime(Stringify(raw))
}

func (Time) Decode(display string) any { return ParseTime(display) }
func (t Time) Accept(v Visitor)        { v.VisitTime(t) }
func (Time) sealed()                   {}

// ReadOnly values are maintained by the automation layer and only displayed.
type ReadOnly struct{}

func (ReadOnly) Tag() Tag                  { return TagReadOnly }
func (ReadOnly) Render() Render            { return Render{Widget: WidgetStatic} }
func (ReadOnly) Encode(raw any) string     { return Stringify(raw) }
func (ReadOnly) Decode(display string) any { return display }
func (t ReadOnly) Accept(v Visitor)        { v.VisitReadOnly(t) }
func (ReadOnly) sealed()                   {}

// Computed values are derived from sibling fields on commit.
type Computed struct{}

func (Computed) Tag() Tag                  { return TagComputed }
func (Computed) Render() Render            { return Render{Widget: WidgetStatic} }
func (Computed) Encode(raw any) string     { return Stringify(raw) }
func (Computed) Decode(display string) any { return display }
func (t Computed) Accept(v Visitor)        { v.VisitComputed(t) }
func (Computed) sealed()                   {}

// ── Value helpers ───────────────────────────────────────────────────────────

// Stringify renders a stored cell value the way the record store shows it.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case []string:
		return Join(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// IsEmpty reports whether a value counts as unset for required checks.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	default:
		return false
	}
}
