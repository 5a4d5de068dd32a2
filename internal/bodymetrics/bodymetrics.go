package bodymetrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Flynotfly/gymstat/internal/api"
	"github.com/Flynotfly/gymstat/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

const (
	metricsPath = "metrics/metrics/"
	recordsPath = "metrics/records/"
)

var (
	ErrMetricNotFound = errors.New("metric not found")
	ErrRecordNotFound = errors.New("record not found")
	ErrMetricRequired = errors.New("metric id is required")
)

// Metric type filters for ListMetrics.
const (
	TypeAll   = "all"
	TypeUser  = "user"
	TypeAdmin = "admin"
)

type Metric struct {
	ID          int    `json:"id,omitempty"`
	Owner       int    `json:"owner,omitempty"`
	Name        string `json:"name"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
	Admin       bool   `json:"admin"`
}

type Record struct {
	ID       int       `json:"id,omitempty"`
	Owner    int       `json:"owner,omitempty"`
	Metric   int       `json:"metric"`
	Value    float64   `json:"value"`
	Datetime time.Time `json:"datetime"`
}

type gateway interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

type Repo struct {
	gw gateway
}

func NewRepo(gw gateway) *Repo {
	return &Repo{
		gw: gw,
	}
}

func (r *Repo) ListMetrics(ctx context.Context, metricType string, page int) (_ api.Page[Metric], err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodymetrics.metrics.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if metricType == "" {
		metricType = TypeAll
	}
	span.SetAttributes(attribute.String("params.type", metricType))

	q := url.Values{}
	q.Set("type", metricType)
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}

	var res api.Page[Metric]
	if err := r.gw.Do(ctx, http.MethodGet, api.WithQuery(metricsPath, q), nil, &res); err != nil {
		return api.Page[Metric]{}, fmt.Errorf("list metrics: %w", err)
	}
	return res, nil
}

func (r *Repo) GetMetric(ctx context.Context, id int) (_ *Metric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodymetrics.metrics.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var m Metric
	if err := r.gw.Do(ctx, http.MethodGet, itemPath(metricsPath, id), nil, &m); err != nil {
		if api.IsNotFound(err) {
			return nil, ErrMetricNotFound
		}
		return nil, fmt.Errorf("get metric %d: %w", id, err)
	}
	return &m, nil
}

func (r *Repo) CreateMetric(ctx context.Context, m Metric) (_ *Metric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodymetrics.metrics.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	m.ID = 0
	var created Metric
	if err := r.gw.Do(ctx, http.MethodPost, metricsPath, m, &created); err != nil {
		return nil, fmt.Errorf("create metric: %w", err)
	}
	return &created, nil
}

func (r *Repo) UpdateMetric(ctx context.Context, id int, m Metric) (_ *Metric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodymetrics.metrics.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var updated Metric
	if err := r.gw.Do(ctx, http.MethodPut, itemPath(metricsPath, id), m, &updated); err != nil {
		if api.IsNotFound(err) {
			return nil, ErrMetricNotFound
		}
		return nil, fmt.Errorf("update metric %d: %w", id, err)
	}
	return &updated, nil
}

func (r *Repo) DeleteMetric(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodymetrics.metrics.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.gw.Do(ctx, http.MethodDelete, itemPath(metricsPath, id), nil, nil); err != nil {
		if api.IsNotFound(err) {
			return ErrMetricNotFound
		}
		return fmt.Errorf("delete metric %d: %w", id, err)
	}
	return nil
}

// ListRecords lists the user's records of one metric, newest first.
// The backend refuses to list records across metrics.
func (r *Repo) ListRecords(ctx context.Context, metricID, page int) (_ api.Page[Record], err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodymetrics.records.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if metricID <= 0 {
		return api.Page[Record]{}, ErrMetricRequired
	}
	span.SetAttributes(attribute.Int("params.metric", metricID))

	q := url.Values{}
	q.Set("metric", strconv.Itoa(metricID))
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}

	var res api.Page[Record]
	if err := r.gw.Do(ctx, http.MethodGet, api.WithQuery(recordsPath, q), nil, &res); err != nil {
		return api.Page[Record]{}, fmt.Errorf("list records: %w", err)
	}
	return res, nil
}

func (r *Repo) GetRecord(ctx context.Context, id int) (_ *Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodymetrics.records.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var rec Record
	if err := r.gw.Do(ctx, http.MethodGet, itemPath(recordsPath, id), nil, &rec); err != nil {
		if api.IsNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get record %d: %w", id, err)
	}
	return &rec, nil
}

func (r *Repo) CreateRecord(ctx context.Context, rec Record) (_ *Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodymetrics.records.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if rec.Metric <= 0 {
		return nil, ErrMetricRequired
	}
	if rec.Datetime.IsZero() {
		rec.Datetime = time.Now().UTC().Truncate(time.Second)
	}
	rec.ID = 0

	var created Record
	if err := r.gw.Do(ctx, http.MethodPost, recordsPath, rec, &created); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return &created, nil
}

func (r *Repo) UpdateRecord(ctx context.Context, id int, rec Record) (_ *Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodymetrics.records.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var updated Record
	if err := r.gw.Do(ctx, http.MethodPut, itemPath(recordsPath, id), rec, &updated); err != nil {
		if api.IsNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("update record %d: %w", id, err)
	}
	return &updated, nil
}

func (r *Repo) DeleteRecord(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodymetrics.records.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.gw.Do(ctx, http.MethodDelete, itemPath(recordsPath, id), nil, nil); err != nil {
		if api.IsNotFound(err) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	return nil
}

func itemPath(prefix string, id int) string {
	return prefix + strconv.Itoa(id) + "/"
}
