package training

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Flynotfly/gymstat/internal/api"
	"github.com/Flynotfly/gymstat/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

const (
	exerciseTemplatesPath = "training/exercises/"
	trainingTemplatesPath = "training/trainings/templates/"
	trainingsPath         = "training/trainings/"
)

var (
	ErrExerciseTemplateNotFound = errors.New("exercise template not found")
	ErrTrainingTemplateNotFound = errors.New("training template not found")
	ErrTrainingNotFound         = errors.New("training not found")
)

// Template visibility filters accepted by the exercise templates list.
const (
	TemplateTypeAll   = "all"
	TemplateTypeUser  = "user"
	TemplateTypeAdmin = "admin"
)

//go:generate mockgen -source=$GOFILE -destination=repo_mocks_test.go -package=training_test

type gateway interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

type ListTemplatesParams struct {
	Page   int
	Search string
	Type   string
	Tags   []string
}

func (p ListTemplatesParams) query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	q.Set("search", p.Search)
	q.Set("type", p.Type)
	q.Set("tags", strings.Join(p.Tags, ","))
	return q
}

type Repo struct {
	gw gateway
}

func NewRepo(gw gateway) *Repo {
	return &Repo{
		gw: gw,
	}
}

func (r *Repo) ListExerciseTemplates(ctx context.Context, params ListTemplatesParams) (_ api.Page[ExerciseTemplate], err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.exercise_templates.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("params.page", params.Page))
	if params.Search != "" {
		span.SetAttributes(attribute.String("params.search", params.Search))
	}

	var page api.Page[ExerciseTemplate]
	path := api.WithQuery(exerciseTemplatesPath, params.query())
	if err := r.gw.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return api.Page[ExerciseTemplate]{}, fmt.Errorf("list exercise templates: %w", err)
	}
	return page, nil
}

func (r *Repo) GetExerciseTemplate(ctx context.Context, id int) (_ *ExerciseTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.exercise_templates.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var tpl ExerciseTemplate
	if err := r.gw.Do(ctx, http.MethodGet, itemPath(exerciseTemplatesPath, id), nil, &tpl); err != nil {
		if api.IsNotFound(err) {
			return nil, ErrExerciseTemplateNotFound
		}
		return nil, fmt.Errorf("get exercise template %d: %w", id, err)
	}
	return &tpl, nil
}

func (r *Repo) CreateExerciseTemplate(ctx context.Context, tpl ExerciseTemplate) (_ *ExerciseTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.exercise_templates.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tpl.ID = 0
	var created ExerciseTemplate
	if err := r.gw.Do(ctx, http.MethodPost, exerciseTemplatesPath, tpl, &created); err != nil {
		return nil, fmt.Errorf("create exercise template: %w", err)
	}
	return &created, nil
}

func (r *Repo) UpdateExerciseTemplate(ctx context.Context, id int, tpl ExerciseTemplate) (_ *ExerciseTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.exercise_templates.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var updated ExerciseTemplate
	if err := r.gw.Do(ctx, http.MethodPut, itemPath(exerciseTemplatesPath, id), tpl, &updated); err != nil {
		if api.IsNotFound(err) {
			return nil, ErrExerciseTemplateNotFound
		}
		return nil, fmt.Errorf("update exercise template %d: %w", id, err)
	}
	return &updated, nil
}

func (r *Repo) DeleteExerciseTemplate(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.exercise_templates.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.gw.Do(ctx, http.MethodDelete, itemPath(exerciseTemplatesPath, id), nil, nil); err != nil {
		if api.IsNotFound(err) {
			return ErrExerciseTemplateNotFound
		}
		return fmt.Errorf("delete exercise template %d: %w", id, err)
	}
	return nil
}

func (r *Repo) ListTrainingTemplates(ctx context.Context, page int) (_ api.Page[TrainingTemplate], err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.training_templates.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var res api.Page[TrainingTemplate]
	if err := r.gw.Do(ctx, http.MethodGet, pagePath(trainingTemplatesPath, page), nil, &res); err != nil {
		return api.Page[TrainingTemplate]{}, fmt.Errorf("list training templates: %w", err)
	}
	return res, nil
}

func (r *Repo) GetTrainingTemplate(ctx context.Context, id int) (_ *TrainingTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.training_templates.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var tpl TrainingTemplate
	if err := r.gw.Do(ctx, http.MethodGet, itemPath(trainingTemplatesPath, id), nil, &tpl); err != nil {
		if api.IsNotFound(err) {
			return nil, ErrTrainingTemplateNotFound
		}
		return nil, fmt.Errorf("get training template %d: %w", id, err)
	}
	return &tpl, nil
}

func (r *Repo) CreateTrainingTemplate(ctx context.Context, tpl TrainingTemplate) (_ *TrainingTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.training_templates.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tpl.ID = 0
	var created TrainingTemplate
	if err := r.gw.Do(ctx, http.MethodPost, trainingTemplatesPath, tpl, &created); err != nil {
		return nil, fmt.Errorf("create training template: %w", err)
	}
	return &created, nil
}

func (r *Repo) UpdateTrainingTemplate(ctx context.Context, id int, tpl TrainingTemplate) (_ *TrainingTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.training_templates.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var updated TrainingTemplate
	if err := r.gw.Do(ctx, http.MethodPut, itemPath(trainingTemplatesPath, id), tpl, &updated); err != nil {
		if api.IsNotFound(err) {
			return nil, ErrTrainingTemplateNotFound
		}
		return nil, fmt.Errorf("update training template %d: %w", id, err)
	}
	return &updated, nil
}

func (r *Repo) DeleteTrainingTemplate(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.training_templates.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.gw.Do(ctx, http.MethodDelete, itemPath(trainingTemplatesPath, id), nil, nil); err != nil {
		if api.IsNotFound(err) {
			return ErrTrainingTemplateNotFound
		}
		return fmt.Errorf("delete training template %d: %w", id, err)
	}
	return nil
}

func (r *Repo) ListTrainings(ctx context.Context, page int) (_ api.Page[Training], err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.trainings.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var res api.Page[Training]
	if err := r.gw.Do(ctx, http.MethodGet, pagePath(trainingsPath, page), nil, &res); err != nil {
		return api.Page[Training]{}, fmt.Errorf("list trainings: %w", err)
	}
	return res, nil
}

func (r *Repo) GetTraining(ctx context.Context, id int) (_ *Training, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.trainings.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("training.id", id))

	var t Training
	if err := r.gw.Do(ctx, http.MethodGet, itemPath(trainingsPath, id), nil, &t); err != nil {
		if api.IsNotFound(err) {
			return nil, ErrTrainingNotFound
		}
		return nil, fmt.Errorf("get training %d: %w", id, err)
	}
	return &t, nil
}

func (r *Repo) CreateTraining(ctx context.Context, t NewTraining) (_ *Training, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.trainings.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("training.exercises", len(t.Exercises)))

	var created Training
	if err := r.gw.Do(ctx, http.MethodPost, trainingsPath, t, &created); err != nil {
		return nil, fmt.Errorf("create training: %w", err)
	}
	return &created, nil
}

func (r *Repo) UpdateTraining(ctx context.Context, id int, t NewTraining) (_ *Training, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.trainings.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("training.id", id))

	var updated Training
	if err := r.gw.Do(ctx, http.MethodPut, itemPath(trainingsPath, id), t, &updated); err != nil {
		if api.IsNotFound(err) {
			return nil, ErrTrainingNotFound
		}
		return nil, fmt.Errorf("update training %d: %w", id, err)
	}
	return &updated, nil
}

func (r *Repo) DeleteTraining(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.trainings.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.gw.Do(ctx, http.MethodDelete, itemPath(trainingsPath, id), nil, nil); err != nil {
		if api.IsNotFound(err) {
			return ErrTrainingNotFound
		}
		return fmt.Errorf("delete training %d: %w", id, err)
	}
	return nil
}

// TemplatesByID fetches the exercise templates referenced by a training,
// each at most once. Templates that no longer exist are skipped.
func (r *Repo) TemplatesByID(ctx context.Context, t *Training) (map[int]*ExerciseTemplate, error) {
	templates := make(map[int]*ExerciseTemplate)
	for _, ex := range t.Exercises {
		if _, ok := templates[ex.Template]; ok {
			continue
		}
		tpl, err := r.GetExerciseTemplate(ctx, ex.Template)
		if err != nil {
			if errors.Is(err, ErrExerciseTemplateNotFound) {
				continue
			}
			return nil, err
		}
		templates[ex.Template] = tpl
	}
	return templates, nil
}

func itemPath(prefix string, id int) string {
	return prefix + strconv.Itoa(id) + "/"
}

func pagePath(prefix string, page int) string {
	if page <= 1 {
		return prefix
	}
	return prefix + "?page=" + strconv.Itoa(page)
}
