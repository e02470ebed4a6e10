package automation

import (
	"context"
	"fmt"

	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
	"github.com/mfperdi/parishliturgyplanner/internal/options"
	"github.com/mfperdi/parishliturgyplanner/internal/remote"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
	"github.com/mfperdi/parishliturgyplanner/internal/workflow"
)

// ValidateData checks every collection against its schema. Rows are
// reported 1-based. A row of the wrong width or an empty required field is
// an error; a choice outside the field's options is a warning.
func (l *Local) ValidateData(ctx context.Context) (workflow.ValidationReport, error) {
	report := workflow.ValidationReport{Errors: []string{}, Warnings: []string{}}
	for _, id := range l.reg.EntityIDs() {
		e := l.reg.MustGet(id)
		rows, err := l.store.Read(ctx, id)
		if err != nil {
			return workflow.ValidationReport{}, remote.Wrap("validateData", err)
		}
		resolved := l.opts.Resolve(ctx, e)

		for i, row := range rows {
			n := i + 1
			if len(row) != e.Width() {
				report.Errors = append(report.Errors,
					fmt.Sprintf("%s row %d: has %d values, expected %d", e.Label, n, len(row), e.Width()))
				continue
			}
			for j, f := range e.Fields {
				if f.Computed {
					continue
				}
				if f.Required && fieldtype.IsEmpty(row[j]) {
					report.Errors = append(report.Errors, fmt.Sprintf("%s row %d: %s is required", e.Label, n, f.Label))
					continue
				}
				for _, v := range outsideOptions(f, row[j], resolved) {
					report.Warnings = append(report.Warnings,
						fmt.Sprintf("%s row %d: %s %q is not a known option", e.Label, n, f.Label, v))
				}
			}
		}
	}
	l.log.Info().Int("errors", len(report.Errors)).Int("warnings", len(report.Warnings)).Msg("automation: data validated")
	return report, nil
}

// outsideOptions returns the chosen values of a select-family field that are
// not among its options. Fields with no known options are not checked.
func outsideOptions(f schema.Field, raw any, resolved map[string]*options.Set) []string {
	if !fieldtype.IsSelectFamily(f.Type) {
		return nil
	}
	var contains func(string) bool
	switch {
	case len(f.Options) > 0:
		static := make(map[string]bool, len(f.Options))
		for _, o := range f.Options {
			static[o] = true
		}
		contains = func(v string) bool { return static[v] }
	case f.OptionsFrom != nil:
		set, ok := resolved[f.Key]
		if !ok || set.Len() == 0 {
			return nil
		}
		contains = set.Contains
	default:
		return nil
	}

	values := []string{fieldtype.Stringify(raw)}
	if f.Type == fieldtype.TagMultiSelect {
		values = fieldtype.Split(fieldtype.MultiSelect{}.Encode(raw))
	}
	var out []string
	for _, v := range values {
		if v != "" && !contains(v) {
			out = append(out, v)
		}
	}
	return out
}
