package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Flynotfly/gymstat/internal/training"
	"github.com/Flynotfly/gymstat/internal/training/draft"
	"github.com/Flynotfly/gymstat/internal/training/fields"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTemplates struct {
	templates map[int]*training.ExerciseTemplate
	calls     int
}

func (f *fakeTemplates) GetExerciseTemplate(_ context.Context, id int) (*training.ExerciseTemplate, error) {
	f.calls++
	tpl, ok := f.templates[id]
	if !ok {
		return nil, training.ErrExerciseTemplateNotFound
	}
	return tpl, nil
}

func newFakeTemplates() *fakeTemplates {
	return &fakeTemplates{
		templates: map[int]*training.ExerciseTemplate{
			1: {ID: 1, Name: "Squat", Fields: []fields.Name{fields.Weight, fields.Reps}},
			2: {ID: 2, Name: "Rowing", Fields: []fields.Name{fields.Distance, fields.Time}},
		},
	}
}

const trainingYAML = `
conducted: 2024-05-01 18:30:00
title: Leg day
description: heavy
notes:
  - name: Mood
    field: 5STARS
    required: true
    value: 4
  - name: Comment
exercises:
  - template: 1
    fields:
      - name: Weight
        unit: lbs
        default: 225
      - name: reps
        default: "5"
      - name: tempo
        default: 3-1-1
  - template: 1
  - template: 2
    fields:
      - name: distance
        unit: km
        default: 2.5
`

func TestDecodeDraftFile(t *testing.T) {
	df, err := decodeDraftFile(strings.NewReader(trainingYAML))
	require.NoError(t, err)

	assert.Equal(t, scalar("2024-05-01 18:30:00"), df.Conducted)
	assert.Equal(t, "Leg day", df.Title)
	require.Len(t, df.Notes, 2)
	assert.Equal(t, scalar("4"), df.Notes[0].Value)
	assert.True(t, df.Notes[0].Required)
	require.Len(t, df.Exercises, 3)
	assert.Equal(t, scalar("225"), df.Exercises[0].Fields[0].Default)
	assert.Equal(t, scalar("2.5"), df.Exercises[2].Fields[0].Default)

	_, err = decodeDraftFile(strings.NewReader("title: x\ncolour: red\n"))
	assert.ErrorContains(t, err, "decode draft file")

	_, err = decodeDraftFile(strings.NewReader("title: [a, b]\n"))
	assert.Error(t, err)

	_, err = decodeDraftFile(strings.NewReader(""))
	assert.EqualError(t, err, "draft file is empty")
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]fields.Kind{
		"":          fields.KindText,
		"text":      fields.KindText,
		"DATETIME":  fields.KindDatetime,
		" Duration": fields.KindDuration,
		"number":    fields.KindNumber,
		"5Stars":    fields.KindFiveStar,
		"10stars":   fields.KindTenStar,
	} {
		got, err := parseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseKind("emoji")
	assert.ErrorContains(t, err, `unknown note field kind "emoji"`)
}

func TestDraftFile_TrainingDraft(t *testing.T) {
	templates := newFakeTemplates()
	df, err := decodeDraftFile(strings.NewReader(trainingYAML))
	require.NoError(t, err)

	d, err := df.trainingDraft(context.Background(), newTemplateResolver(templates))
	require.NoError(t, err)
	assert.Equal(t, 2, templates.calls, "each template is fetched once")

	assert.Equal(t, time.Date(2024, 5, 1, 18, 30, 0, 0, time.Local), d.Conducted)
	assert.Equal(t, "Leg day", d.Title)
	assert.Equal(t, []draft.Note{
		{Name: "Mood", Field: fields.KindFiveStar, Required: true, Value: "4"},
		{Name: "Comment", Field: fields.KindText},
	}, d.Notes)

	require.Len(t, d.Exercises, 3)
	assert.Equal(t, []draft.FieldSelection{
		{Name: fields.Weight, Unit: "lbs", Default: "225"},
		{Name: fields.Reps, Default: "5"},
		{Name: fields.Tempo, Default: "3-1-1"},
	}, d.Exercises[0].Fields)
	assert.Equal(t, []draft.FieldSelection{
		{Name: fields.Weight, Unit: "kg"},
		{Name: fields.Reps},
	}, d.Exercises[1].Fields)
	assert.Equal(t, "km", d.Exercises[2].Fields[0].Unit)
	require.NoError(t, d.Validate())

	payload := d.Payload()
	require.Len(t, payload.Exercises, 3)
	assert.Equal(t, []training.SetData{{"weight": 225.0, "reps": 5.0, "tempo": "3-1-1"}}, payload.Exercises[0].Sets)
	assert.Equal(t, []training.SetData{{}}, payload.Exercises[1].Sets)
	assert.Equal(t, 3, payload.Exercises[2].Order)
}

func TestDraftFile_TrainingDraft_Errors(t *testing.T) {
	ctx := context.Background()

	for name, tc := range map[string]struct {
		yaml    string
		wantErr error
		wantMsg string
	}{
		"bad conducted": {
			yaml:    "conducted: 2024-13-01 10:00:00\n",
			wantMsg: "conducted: " + fields.MsgDatetime,
		},
		"unknown note kind": {
			yaml:    "notes:\n  - name: x\n    field: emoji\n",
			wantMsg: "note 1: unknown note field kind",
		},
		"missing template": {
			yaml:    "exercises:\n  - fields: []\n",
			wantMsg: "exercise 1: template id not set",
		},
		"unknown template": {
			yaml:    "exercises:\n  - template: 404\n",
			wantErr: errTemplateNotFound,
		},
		"unknown field": {
			yaml:    "exercises:\n  - template: 1\n    fields:\n      - name: power\n",
			wantErr: fields.ErrUnknownField,
		},
		"unit not allowed": {
			yaml:    "exercises:\n  - template: 1\n    fields:\n      - name: weight\n        unit: km\n",
			wantErr: draft.ErrUnitNotAllowed,
		},
	} {
		t.Run(name, func(t *testing.T) {
			df, err := decodeDraftFile(strings.NewReader(tc.yaml))
			require.NoError(t, err)

			_, err = df.trainingDraft(ctx, newTemplateResolver(newFakeTemplates()))
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.wantMsg != "" {
				assert.ErrorContains(t, err, tc.wantMsg)
			}
		})
	}
}

func TestDraftFile_TemplateDraft(t *testing.T) {
	df, err := decodeDraftFile(strings.NewReader(`
name: Morning row
notes:
  - name: Sleep
    field: number
    default: 7.5
exercises:
  - template: 2
    fields:
      - name: distance
        default: 5
`))
	require.NoError(t, err)

	d, err := df.templateDraft(context.Background(), newTemplateResolver(newFakeTemplates()))
	require.NoError(t, err)
	require.NoError(t, d.Validate())

	payload := d.Payload()
	assert.Equal(t, "Morning row", payload.Name)
	assert.Equal(t, []training.TemplateNote{{Name: "Sleep", Field: fields.KindNumber, Default: "7.5"}}, payload.Data.Notes)
	require.Len(t, payload.Data.Exercises, 1)
	assert.Equal(t, 2, payload.Data.Exercises[0].Template)
	assert.Equal(t, []training.SetData{{"distance": 5.0}}, payload.Data.Exercises[0].Sets)
}

func TestDumpTrainingDraft_RoundTrip(t *testing.T) {
	templates := newFakeTemplates()
	df, err := decodeDraftFile(strings.NewReader(trainingYAML))
	require.NoError(t, err)
	original, err := df.trainingDraft(context.Background(), newTemplateResolver(templates))
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, dumpTrainingDraft(buf, original))
	assert.Contains(t, buf.String(), "2024-05-01 18:30:00")
	assert.Contains(t, buf.String(), "field: 5stars")

	reread, err := decodeDraftFile(buf)
	require.NoError(t, err)
	restored, err := reread.trainingDraft(context.Background(), newTemplateResolver(templates))
	require.NoError(t, err)

	assert.Equal(t, original.Payload(), restored.Payload())
}

func TestDumpTemplateDraft(t *testing.T) {
	d := draft.NewTemplate().
		SetName("Push").
		AddNote(draft.TemplateNote{Name: "Mood", Field: fields.KindTenStar, Default: "7"}).
		AddExercise(draft.NewExercise(newFakeTemplates().templates[1])).
		AddExercise(draft.ExerciseDraft{})

	buf := &bytes.Buffer{}
	require.NoError(t, dumpTemplateDraft(buf, d))

	reread, err := decodeDraftFile(buf)
	require.NoError(t, err)
	assert.Equal(t, "Push", reread.Name)
	assert.Equal(t, scalar("7"), reread.Notes[0].Default)
	require.Len(t, reread.Exercises, 1, "exercises without a template are not dumped")
	assert.Equal(t, 1, reread.Exercises[0].Template)
	assert.Equal(t, "kg", reread.Exercises[0].Fields[0].Unit)
}
