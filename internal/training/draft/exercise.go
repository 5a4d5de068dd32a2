package draft

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Flynotfly/gymstat/internal/training"
	"github.com/Flynotfly/gymstat/internal/training/fields"
)

// FieldSelection is one measured field of an exercise, e.g. weight in kg.
// Default holds the value as typed by the user.
type FieldSelection struct {
	Name    fields.Name
	Unit    string
	Default string
}

// ExerciseDraft is one exercise being edited. Field names are unique and every
// non-empty unit is one of the units its field allows.
type ExerciseDraft struct {
	Template *training.ExerciseTemplate
	Fields   []FieldSelection
}

// NewExercise returns an exercise draft for tpl, see SetTemplate.
func NewExercise(tpl *training.ExerciseTemplate) ExerciseDraft {
	return ExerciseDraft{}.SetTemplate(tpl)
}

// SetTemplate swaps the template and resets the fields to the ones the
// template declares, each with its first unit and no value. A nil template
// leaves the exercise without fields. Unknown and repeated names are skipped.
func (e ExerciseDraft) SetTemplate(tpl *training.ExerciseTemplate) ExerciseDraft {
	if tpl == nil {
		return ExerciseDraft{}
	}

	cp := *tpl
	cp.Fields = slices.Clone(tpl.Fields)
	cp.Tags = slices.Clone(tpl.Tags)

	selections := make([]FieldSelection, 0, len(cp.Fields))
	for _, name := range cp.Fields {
		spec, ok := fields.Lookup(name)
		if !ok || containsField(selections, name) {
			continue
		}
		selections = append(selections, FieldSelection{
			Name: name,
			Unit: spec.DefaultUnit(),
		})
	}

	return ExerciseDraft{
		Template: &cp,
		Fields:   selections,
	}
}

// AvailableFields lists the field names not used yet, in declaration order.
func (e ExerciseDraft) AvailableFields() []fields.Name {
	var available []fields.Name
	for _, name := range fields.Names() {
		if !containsField(e.Fields, name) {
			available = append(available, name)
		}
	}
	return available
}

// AddField appends the first available field. No-op when all are used.
func (e ExerciseDraft) AddField() ExerciseDraft {
	available := e.AvailableFields()
	if len(available) == 0 {
		return e
	}
	added, _ := e.AddNamedField(available[0])
	return added
}

func (e ExerciseDraft) AddNamedField(name fields.Name) (ExerciseDraft, error) {
	spec, ok := fields.Lookup(name)
	if !ok {
		return e, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if containsField(e.Fields, name) {
		return e, fmt.Errorf("%w: %s", ErrFieldAlreadyUsed, name)
	}

	e.Fields = append(slices.Clone(e.Fields), FieldSelection{
		Name: name,
		Unit: spec.DefaultUnit(),
	})
	return e, nil
}

// ReplaceField changes the field at i to name, resetting its unit and value.
func (e ExerciseDraft) ReplaceField(i int, name fields.Name) (ExerciseDraft, error) {
	if i < 0 || i >= len(e.Fields) {
		return e, indexErr("field", i, len(e.Fields))
	}
	spec, ok := fields.Lookup(name)
	if !ok {
		return e, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	for j, f := range e.Fields {
		if j != i && f.Name == name {
			return e, fmt.Errorf("%w: %s", ErrFieldAlreadyUsed, name)
		}
	}

	e.Fields = updated(e.Fields, i, FieldSelection{
		Name: name,
		Unit: spec.DefaultUnit(),
	})
	return e, nil
}

func (e ExerciseDraft) RemoveField(i int) (ExerciseDraft, error) {
	if i < 0 || i >= len(e.Fields) {
		return e, indexErr("field", i, len(e.Fields))
	}
	e.Fields = slices.Delete(slices.Clone(e.Fields), i, i+1)
	return e, nil
}

func (e ExerciseDraft) SetUnit(i int, unit string) (ExerciseDraft, error) {
	if i < 0 || i >= len(e.Fields) {
		return e, indexErr("field", i, len(e.Fields))
	}
	f := e.Fields[i]
	if !f.Name.Spec().AllowsUnit(unit) {
		return e, fmt.Errorf("%w: %q for %s", ErrUnitNotAllowed, unit, f.Name)
	}

	f.Unit = unit
	e.Fields = updated(e.Fields, i, f)
	return e, nil
}

func (e ExerciseDraft) SetDefault(i int, value string) (ExerciseDraft, error) {
	if i < 0 || i >= len(e.Fields) {
		return e, indexErr("field", i, len(e.Fields))
	}
	f := e.Fields[i]
	f.Default = value
	e.Fields = updated(e.Fields, i, f)
	return e, nil
}

// Errors returns one message per field, "" for valid ones.
func (e ExerciseDraft) Errors() []string {
	errs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = fields.ValidateField(f.Name, strings.TrimSpace(f.Default))
	}
	return errs
}

func (e ExerciseDraft) templateID() int {
	if e.Template == nil {
		return 0
	}
	return e.Template.ID
}

// units maps field names to their chosen units, nil if none is set.
func (e ExerciseDraft) units() map[string]string {
	var units map[string]string
	for _, f := range e.Fields {
		if f.Unit == "" {
			continue
		}
		if units == nil {
			units = make(map[string]string)
		}
		units[f.Name.String()] = f.Unit
	}
	return units
}

// sets renders the fields as a single set. Empty values are left out and
// numeric ones are sent as JSON numbers.
func (e ExerciseDraft) sets() []training.SetData {
	if len(e.Fields) == 0 {
		return []training.SetData{}
	}
	set := make(training.SetData, len(e.Fields))
	for _, f := range e.Fields {
		value := strings.TrimSpace(f.Default)
		if value == "" {
			continue
		}
		set[f.Name.String()] = wireValue(value)
	}
	return []training.SetData{set}
}

func (e ExerciseDraft) clone() ExerciseDraft {
	e.Fields = slices.Clone(e.Fields)
	return e
}

// exerciseFromWire rebuilds the field selections of a stored exercise from
// its first set and unit mapping. Fields keep the template's declared order,
// anything else follows in declaration order.
func exerciseFromWire(tpl *training.ExerciseTemplate, units map[string]string, sets []training.SetData) ExerciseDraft {
	e := ExerciseDraft{}.SetTemplate(tpl)
	e.Fields = nil

	var first training.SetData
	if len(sets) > 0 {
		first = sets[0]
	}

	present := make(map[fields.Name]struct{})
	for key := range first {
		if name, err := fields.ParseName(key); err == nil {
			present[name] = struct{}{}
		}
	}
	for key := range units {
		if name, err := fields.ParseName(key); err == nil {
			present[name] = struct{}{}
		}
	}

	var ordered []fields.Name
	if tpl != nil {
		for _, name := range tpl.Fields {
			if _, ok := present[name]; ok && !slices.Contains(ordered, name) {
				ordered = append(ordered, name)
			}
		}
	}
	var rest []fields.Name
	for name := range present {
		if !slices.Contains(ordered, name) {
			rest = append(rest, name)
		}
	}
	slices.SortFunc(rest, func(a, b fields.Name) int {
		return a.Index() - b.Index()
	})
	ordered = append(ordered, rest...)

	for _, name := range ordered {
		e.Fields = append(e.Fields, FieldSelection{
			Name:    name,
			Unit:    lookupCaseless(units, name),
			Default: training.SetValue(lookupCaseless(first, name)),
		})
	}
	return e
}

func lookupCaseless[V any](m map[string]V, name fields.Name) V {
	if v, ok := m[name.String()]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, name.String()) {
			return v
		}
	}
	var zero V
	return zero
}

func containsField(selections []FieldSelection, name fields.Name) bool {
	return slices.ContainsFunc(selections, func(f FieldSelection) bool {
		return f.Name == name
	})
}
