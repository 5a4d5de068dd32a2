package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Flynotfly/gymstat/internal/training"
	"github.com/Flynotfly/gymstat/internal/training/draft"
	"github.com/Flynotfly/gymstat/internal/training/fields"

	"gopkg.in/yaml.v3"
)

var errTemplateNotFound = errors.New("exercise template not found")

// scalar keeps any YAML scalar as its literal text, so `value: 80` and
// `value: "80"` read the same.
type scalar string

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	*s = scalar(node.Value)
	return nil
}

type noteFile struct {
	Name     string `yaml:"name"`
	Field    string `yaml:"field"`
	Required bool   `yaml:"required,omitempty"`
	Value    scalar `yaml:"value,omitempty"`
	Default  scalar `yaml:"default,omitempty"`
}

type exerciseFieldFile struct {
	Name    string `yaml:"name"`
	Unit    string `yaml:"unit,omitempty"`
	Default scalar `yaml:"default,omitempty"`
}

type exerciseFile struct {
	Template int                 `yaml:"template"`
	Fields   []exerciseFieldFile `yaml:"fields,omitempty"`
}

// draftFile is the YAML form of a training or training template draft.
// Trainings use conducted, title and note values; templates use name and
// note defaults.
type draftFile struct {
	Conducted   scalar         `yaml:"conducted,omitempty"`
	Title       string         `yaml:"title,omitempty"`
	Name        string         `yaml:"name,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Notes       []noteFile     `yaml:"notes,omitempty"`
	Exercises   []exerciseFile `yaml:"exercises,omitempty"`
}

type templateGetter interface {
	GetExerciseTemplate(ctx context.Context, id int) (*training.ExerciseTemplate, error)
}

// templateResolver fetches each exercise template at most once.
type templateResolver struct {
	getter templateGetter
	cache  map[int]*training.ExerciseTemplate
}

func newTemplateResolver(getter templateGetter) *templateResolver {
	return &templateResolver{
		getter: getter,
		cache:  make(map[int]*training.ExerciseTemplate),
	}
}

func (r *templateResolver) get(ctx context.Context, id int) (*training.ExerciseTemplate, error) {
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}
	tpl, err := r.getter.GetExerciseTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, training.ErrExerciseTemplateNotFound) {
			return nil, fmt.Errorf("%w: %d", errTemplateNotFound, id)
		}
		return nil, err
	}
	r.cache[id] = tpl
	return tpl, nil
}

func (r *templateResolver) all() map[int]*training.ExerciseTemplate {
	return r.cache
}

func readDraftFile(path string) (*draftFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open draft file: %w", err)
	}
	defer f.Close()
	return decodeDraftFile(f)
}

func decodeDraftFile(r io.Reader) (*draftFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var df draftFile
	if err := dec.Decode(&df); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("draft file is empty")
		}
		return nil, fmt.Errorf("decode draft file: %w", err)
	}
	return &df, nil
}

func (df *draftFile) trainingDraft(ctx context.Context, resolver *templateResolver) (draft.TrainingDraft, error) {
	d := draft.New().
		SetTitle(df.Title).
		SetDescription(df.Description)

	if df.Conducted != "" {
		conducted, err := time.ParseInLocation(fields.DatetimeLayout, strings.TrimSpace(string(df.Conducted)), time.Local)
		if err != nil {
			return d, fmt.Errorf("conducted: %s", fields.MsgDatetime)
		}
		d = d.SetConducted(conducted)
	}

	for i, n := range df.Notes {
		kind, err := parseKind(n.Field)
		if err != nil {
			return d, fmt.Errorf("note %d: %w", i+1, err)
		}
		d = d.AddNote(draft.Note{
			Name:     n.Name,
			Field:    kind,
			Required: n.Required,
			Value:    string(n.Value),
		})
	}

	for i, ex := range df.Exercises {
		e, err := ex.draft(ctx, resolver)
		if err != nil {
			return d, fmt.Errorf("exercise %d: %w", i+1, err)
		}
		d = d.AddExercise(e)
	}

	return d, nil
}

func (df *draftFile) templateDraft(ctx context.Context, resolver *templateResolver) (draft.TemplateDraft, error) {
	d := draft.NewTemplate().
		SetName(df.Name).
		SetDescription(df.Description)

	for i, n := range df.Notes {
		kind, err := parseKind(n.Field)
		if err != nil {
			return d, fmt.Errorf("note %d: %w", i+1, err)
		}
		d = d.AddNote(draft.TemplateNote{
			Name:     n.Name,
			Field:    kind,
			Required: n.Required,
			Default:  string(n.Default),
		})
	}

	for i, ex := range df.Exercises {
		e, err := ex.draft(ctx, resolver)
		if err != nil {
			return d, fmt.Errorf("exercise %d: %w", i+1, err)
		}
		d = d.AddExercise(e)
	}

	return d, nil
}

// draft starts from the template's own fields; listed fields not declared by
// the template are appended.
func (ef exerciseFile) draft(ctx context.Context, resolver *templateResolver) (draft.ExerciseDraft, error) {
	if ef.Template <= 0 {
		return draft.ExerciseDraft{}, errors.New("template id not set")
	}
	tpl, err := resolver.get(ctx, ef.Template)
	if err != nil {
		return draft.ExerciseDraft{}, err
	}

	e := draft.NewExercise(tpl)
	for _, f := range ef.Fields {
		name, err := fields.ParseName(f.Name)
		if err != nil {
			return e, err
		}

		idx := fieldIndex(e, name)
		if idx < 0 {
			if e, err = e.AddNamedField(name); err != nil {
				return e, err
			}
			idx = len(e.Fields) - 1
		}
		if f.Unit != "" {
			if e, err = e.SetUnit(idx, f.Unit); err != nil {
				return e, err
			}
		}
		if e, err = e.SetDefault(idx, string(f.Default)); err != nil {
			return e, err
		}
	}
	return e, nil
}

// dumpTrainingDraft renders d back into the draft file form.
func dumpTrainingDraft(w io.Writer, d draft.TrainingDraft) error {
	df := draftFile{
		Title:       d.Title,
		Description: d.Description,
	}
	if !d.Conducted.IsZero() {
		df.Conducted = scalar(d.Conducted.In(time.Local).Format(fields.DatetimeLayout))
	}
	for _, n := range d.Notes {
		df.Notes = append(df.Notes, noteFile{
			Name:     n.Name,
			Field:    string(n.Field),
			Required: n.Required,
			Value:    scalar(n.Value),
		})
	}
	df.Exercises = dumpExercises(d.Exercises)
	return encodeYAML(w, df)
}

func dumpTemplateDraft(w io.Writer, d draft.TemplateDraft) error {
	df := draftFile{
		Name:        d.Name,
		Description: d.Description,
	}
	for _, n := range d.Notes {
		df.Notes = append(df.Notes, noteFile{
			Name:     n.Name,
			Field:    string(n.Field),
			Required: n.Required,
			Default:  scalar(n.Default),
		})
	}
	df.Exercises = dumpExercises(d.Exercises)
	return encodeYAML(w, df)
}

func dumpExercises(exercises []draft.ExerciseDraft) []exerciseFile {
	var dumped []exerciseFile
	for _, e := range exercises {
		if e.Template == nil {
			continue
		}
		ef := exerciseFile{Template: e.Template.ID}
		for _, f := range e.Fields {
			ef.Fields = append(ef.Fields, exerciseFieldFile{
				Name:    f.Name.String(),
				Unit:    f.Unit,
				Default: scalar(f.Default),
			})
		}
		dumped = append(dumped, ef)
	}
	return dumped
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// parseKind accepts note kinds case-insensitively.
func parseKind(s string) (fields.Kind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fields.KindText, nil
	}
	for _, k := range fields.Kinds() {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown note field kind %q", s)
}

func fieldIndex(e draft.ExerciseDraft, name fields.Name) int {
	for i, f := range e.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
