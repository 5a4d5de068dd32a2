package draft

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Flynotfly/gymstat/internal/training"
	"github.com/Flynotfly/gymstat/internal/training/fields"

	"go.uber.org/multierr"
)

// TemplateNote is a note preset of a training template. Default is
// prefilled into trainings created from the template.
type TemplateNote struct {
	Name     string
	Field    fields.Kind
	Required bool
	Default  string
}

// TemplateDraft is the editable form of a training template.
type TemplateDraft struct {
	Name        string
	Description string
	Notes       []TemplateNote
	Exercises   []ExerciseDraft
}

func NewTemplate() TemplateDraft {
	return TemplateDraft{}
}

func (d TemplateDraft) SetName(name string) TemplateDraft {
	d.Name = name
	return d
}

func (d TemplateDraft) SetDescription(description string) TemplateDraft {
	d.Description = description
	return d
}

func (d TemplateDraft) AddNote(n TemplateNote) TemplateDraft {
	d.Notes = append(slices.Clone(d.Notes), n)
	return d
}

func (d TemplateDraft) UpdateNote(i int, n TemplateNote) (TemplateDraft, error) {
	if i < 0 || i >= len(d.Notes) {
		return d, indexErr("note", i, len(d.Notes))
	}
	d.Notes = updated(d.Notes, i, n)
	return d, nil
}

func (d TemplateDraft) RemoveNote(i int) (TemplateDraft, error) {
	if i < 0 || i >= len(d.Notes) {
		return d, indexErr("note", i, len(d.Notes))
	}
	d.Notes = slices.Delete(slices.Clone(d.Notes), i, i+1)
	return d, nil
}

func (d TemplateDraft) AddExercise(e ExerciseDraft) TemplateDraft {
	d.Exercises = append(slices.Clone(d.Exercises), e.clone())
	return d
}

func (d TemplateDraft) UpdateExercise(i int, e ExerciseDraft) (TemplateDraft, error) {
	if i < 0 || i >= len(d.Exercises) {
		return d, indexErr("exercise", i, len(d.Exercises))
	}
	d.Exercises = updated(d.Exercises, i, e.clone())
	return d, nil
}

func (d TemplateDraft) RemoveExercise(i int) (TemplateDraft, error) {
	if i < 0 || i >= len(d.Exercises) {
		return d, indexErr("exercise", i, len(d.Exercises))
	}
	d.Exercises = slices.Delete(slices.Clone(d.Exercises), i, i+1)
	return d, nil
}

// Errors validates note defaults as optional values: a required note may be
// left empty in the template and filled in on the training.
func (d TemplateDraft) Errors() Errors {
	errs := Errors{
		Notes:     make([]string, len(d.Notes)),
		Exercises: make([][]string, len(d.Exercises)),
	}
	for i, n := range d.Notes {
		errs.Notes[i] = fields.ValidateNote(n.Field, n.Default, false)
	}
	for i, e := range d.Exercises {
		errs.Exercises[i] = e.Errors()
	}
	return errs
}

func (d TemplateDraft) Validate() error {
	errs := d.Errors()

	var err error
	if strings.TrimSpace(d.Name) == "" {
		err = multierr.Append(err, fmt.Errorf("name: %s", fields.MsgRequired))
	}
	err = multierr.Append(err, notesError(errs.Notes, func(i int) string { return d.Notes[i].Name }))
	err = multierr.Append(err, exercisesError(d.Exercises, errs.Exercises))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	return nil
}

func (d TemplateDraft) CanSubmit() bool {
	return d.Validate() == nil
}

// Payload renders the draft as a training template. Exercises without a
// template are dropped.
func (d TemplateDraft) Payload() training.TrainingTemplate {
	tpl := training.TrainingTemplate{
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Data: training.TemplateData{
			Notes:     make([]training.TemplateNote, 0, len(d.Notes)),
			Exercises: make([]training.TemplateExercise, 0, len(d.Exercises)),
		},
	}

	for _, n := range d.Notes {
		tpl.Data.Notes = append(tpl.Data.Notes, training.TemplateNote{
			Name:     strings.TrimSpace(n.Name),
			Field:    n.Field,
			Required: training.BoolString(n.Required),
			Default:  n.Default,
		})
	}

	for _, e := range d.Exercises {
		if e.Template == nil {
			continue
		}
		tpl.Data.Exercises = append(tpl.Data.Exercises, training.TemplateExercise{
			Template: e.templateID(),
			Unit:     e.units(),
			Sets:     e.sets(),
		})
	}

	return tpl
}

// FromTrainingTemplate hydrates a template draft for editing.
func FromTrainingTemplate(t *training.TrainingTemplate, templates map[int]*training.ExerciseTemplate) TemplateDraft {
	d := TemplateDraft{
		Name:        t.Name,
		Description: t.Description,
	}
	for _, n := range t.Data.Notes {
		d.Notes = append(d.Notes, TemplateNote{
			Name:     n.Name,
			Field:    n.Field,
			Required: bool(n.Required),
			Default:  n.Default,
		})
	}
	for _, ex := range t.Data.Exercises {
		d.Exercises = append(d.Exercises, exerciseFromWire(templateOrRef(templates, ex.Template), ex.Unit, ex.Sets))
	}
	return d
}

// ToTraining starts a training draft from the template, with note defaults
// as values.
func (d TemplateDraft) ToTraining() TrainingDraft {
	t := TrainingDraft{
		Title:       d.Name,
		Description: d.Description,
	}
	for _, n := range d.Notes {
		t.Notes = append(t.Notes, Note{
			Name:     n.Name,
			Field:    n.Field,
			Required: n.Required,
			Value:    n.Default,
		})
	}
	for _, e := range d.Exercises {
		t.Exercises = append(t.Exercises, e.clone())
	}
	return t
}
