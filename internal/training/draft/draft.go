package draft

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Flynotfly/gymstat/internal/training"
	"github.com/Flynotfly/gymstat/internal/training/fields"

	"go.uber.org/multierr"
)

var (
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrFieldAlreadyUsed = errors.New("field already used in exercise")
	ErrUnitNotAllowed   = errors.New("unit not allowed for field")
	ErrUnknownField     = fields.ErrUnknownField
	ErrInvalidDraft     = errors.New("invalid draft")
)

// Note is a free-form training annotation with a declared kind.
type Note struct {
	Name     string
	Field    fields.Kind
	Required bool
	Value    string
}

// TrainingDraft is the editable form of a training. Every operation returns
// a new draft and leaves the receiver untouched. A zero Conducted means the
// time has not been set yet.
type TrainingDraft struct {
	Conducted   time.Time
	Title       string
	Description string
	Notes       []Note
	Exercises   []ExerciseDraft
}

// Errors holds the validation messages of a draft, index-aligned with its
// notes and exercise fields. Empty strings mean valid.
type Errors struct {
	Conducted string
	Notes     []string
	Exercises [][]string
}

func (e Errors) Empty() bool {
	if e.Conducted != "" {
		return false
	}
	for _, msg := range e.Notes {
		if msg != "" {
			return false
		}
	}
	for _, ex := range e.Exercises {
		for _, msg := range ex {
			if msg != "" {
				return false
			}
		}
	}
	return true
}

func New() TrainingDraft {
	return TrainingDraft{}
}

func (d TrainingDraft) SetConducted(t time.Time) TrainingDraft {
	d.Conducted = t
	return d
}

func (d TrainingDraft) SetTitle(title string) TrainingDraft {
	d.Title = title
	return d
}

func (d TrainingDraft) SetDescription(description string) TrainingDraft {
	d.Description = description
	return d
}

func (d TrainingDraft) AddNote(n Note) TrainingDraft {
	d.Notes = append(slices.Clone(d.Notes), n)
	return d
}

func (d TrainingDraft) UpdateNote(i int, n Note) (TrainingDraft, error) {
	if i < 0 || i >= len(d.Notes) {
		return d, indexErr("note", i, len(d.Notes))
	}
	d.Notes = updated(d.Notes, i, n)
	return d, nil
}

func (d TrainingDraft) RemoveNote(i int) (TrainingDraft, error) {
	if i < 0 || i >= len(d.Notes) {
		return d, indexErr("note", i, len(d.Notes))
	}
	d.Notes = slices.Delete(slices.Clone(d.Notes), i, i+1)
	return d, nil
}

func (d TrainingDraft) AddExercise(e ExerciseDraft) TrainingDraft {
	d.Exercises = append(slices.Clone(d.Exercises), e.clone())
	return d
}

func (d TrainingDraft) UpdateExercise(i int, e ExerciseDraft) (TrainingDraft, error) {
	if i < 0 || i >= len(d.Exercises) {
		return d, indexErr("exercise", i, len(d.Exercises))
	}
	d.Exercises = updated(d.Exercises, i, e.clone())
	return d, nil
}

func (d TrainingDraft) RemoveExercise(i int) (TrainingDraft, error) {
	if i < 0 || i >= len(d.Exercises) {
		return d, indexErr("exercise", i, len(d.Exercises))
	}
	d.Exercises = slices.Delete(slices.Clone(d.Exercises), i, i+1)
	return d, nil
}

func (d TrainingDraft) Errors() Errors {
	errs := Errors{
		Notes:     make([]string, len(d.Notes)),
		Exercises: make([][]string, len(d.Exercises)),
	}
	if d.Conducted.IsZero() {
		errs.Conducted = fields.MsgRequired
	}
	for i, n := range d.Notes {
		errs.Notes[i] = fields.ValidateNote(n.Field, n.Value, n.Required)
	}
	for i, e := range d.Exercises {
		errs.Exercises[i] = e.Errors()
	}
	return errs
}

// Validate returns nil for a submittable draft, otherwise an error wrapping
// ErrInvalidDraft and naming every failing row.
func (d TrainingDraft) Validate() error {
	errs := d.Errors()

	var err error
	if errs.Conducted != "" {
		err = multierr.Append(err, fmt.Errorf("conducted: %s", errs.Conducted))
	}
	err = multierr.Append(err, notesError(errs.Notes, func(i int) string { return d.Notes[i].Name }))
	err = multierr.Append(err, exercisesError(d.Exercises, errs.Exercises))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	return nil
}

// CanSubmit reports whether the conducted time is set and nothing fails validation.
func (d TrainingDraft) CanSubmit() bool {
	return d.Validate() == nil
}

// Payload renders the draft in the shape the trainings endpoint accepts.
// Exercises without a template are dropped; order keeps the position the
// exercise had in the draft.
func (d TrainingDraft) Payload() training.NewTraining {
	payload := training.NewTraining{
		Conducted:   d.Conducted,
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Notes:       make([]training.TrainingNote, 0, len(d.Notes)),
		Exercises:   make([]training.Exercise, 0, len(d.Exercises)),
	}

	for _, n := range d.Notes {
		payload.Notes = append(payload.Notes, training.TrainingNote{
			Name:     strings.TrimSpace(n.Name),
			Field:    n.Field,
			Required: training.BoolString(n.Required),
			Value:    n.Value,
		})
	}

	for i, e := range d.Exercises {
		if e.Template == nil {
			continue
		}
		payload.Exercises = append(payload.Exercises, training.Exercise{
			Template: e.Template.ID,
			Order:    i + 1,
			Units:    e.units(),
			Sets:     e.sets(),
		})
	}

	return payload
}

// FromTraining hydrates a draft from a stored training for editing.
// templates maps template ids to their definitions; exercises whose template
// is missing keep a bare reference to the id.
func FromTraining(t *training.Training, templates map[int]*training.ExerciseTemplate) TrainingDraft {
	d := TrainingDraft{
		Conducted:   t.Conducted,
		Title:       t.Title,
		Description: t.Description,
	}

	for _, n := range t.Notes {
		d.Notes = append(d.Notes, Note{
			Name:     n.Name,
			Field:    n.Field,
			Required: bool(n.Required),
			Value:    n.Value,
		})
	}

	exercises := slices.Clone(t.Exercises)
	sort.SliceStable(exercises, func(i, j int) bool {
		return exercises[i].Order < exercises[j].Order
	})
	for _, ex := range exercises {
		d.Exercises = append(d.Exercises, exerciseFromWire(templateOrRef(templates, ex.Template), ex.Units, ex.Sets))
	}

	return d
}

func templateOrRef(templates map[int]*training.ExerciseTemplate, id int) *training.ExerciseTemplate {
	if tpl, ok := templates[id]; ok && tpl != nil {
		return tpl
	}
	return &training.ExerciseTemplate{ID: id, Name: fmt.Sprintf("#%d", id)}
}

func notesError(msgs []string, name func(i int) string) error {
	var err error
	for i, msg := range msgs {
		if msg == "" {
			continue
		}
		err = multierr.Append(err, fmt.Errorf("note %d (%s): %s", i+1, name(i), msg))
	}
	return err
}

func exercisesError(exercises []ExerciseDraft, msgs [][]string) error {
	var err error
	for i, fieldMsgs := range msgs {
		for j, msg := range fieldMsgs {
			if msg == "" {
				continue
			}
			err = multierr.Append(err, fmt.Errorf("exercise %d field %s: %s", i+1, exercises[i].Fields[j].Name, msg))
		}
	}
	return err
}

// wireValue sends numeric text as a JSON number and anything else verbatim.
func wireValue(value string) any {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return value
	}
	return f
}

func updated[T any](s []T, i int, v T) []T {
	s = slices.Clone(s)
	s[i] = v
	return s
}

func indexErr(what string, i, n int) error {
	return fmt.Errorf("%w: %s %d of %d", ErrIndexOutOfRange, what, i, n)
}
