package picker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Flynotfly/gymstat/internal/api"
	"github.com/Flynotfly/gymstat/internal/telemetry/metrics"
	"github.com/Flynotfly/gymstat/internal/telemetry/tracing"
	"github.com/Flynotfly/gymstat/internal/training"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	megabyte        = 1024 * 1024
	DefaultCacheTTL = time.Minute
)

// ErrStaleResponse is returned by Search and LoadMore when a newer search
// started while the request was in flight. The response is dropped.
var ErrStaleResponse = errors.New("stale picker response discarded")

//go:generate mockgen -source=$GOFILE -destination=picker_mocks_test.go -package=picker_test

type templatesFetcher interface {
	ListExerciseTemplates(ctx context.Context, params training.ListTemplatesParams) (api.Page[training.ExerciseTemplate], error)
}

type Params struct {
	// Type filters templates by owner, one of the training.TemplateType* values.
	Type string
	Tags []string
	// CacheSizeMB of 0 disables the page cache.
	CacheSizeMB int
	CacheTTL    time.Duration
	Metrics     *metrics.Manager
}

// Picker is a searchable, paginated view over the exercise templates of the
// backend. It is safe for concurrent use; fetches run outside the lock and
// are applied only if no newer search started in the meantime.
type Picker struct {
	fetcher  templatesFetcher
	tplType  string
	tags     []string
	cache    *freecache.Cache
	cacheTTL int
	metrics  *metrics.Manager

	mu      sync.Mutex
	search  string
	options []training.ExerciseTemplate
	page    int
	hasMore bool
	loading bool
	token   uint64
}

func NewPicker(fetcher templatesFetcher, params Params) *Picker {
	p := &Picker{
		fetcher: fetcher,
		tplType: params.Type,
		tags:    params.Tags,
		metrics: params.Metrics,
		hasMore: true,
	}

	if params.CacheSizeMB > 0 {
		p.cache = freecache.NewCache(params.CacheSizeMB * megabyte)
		ttl := params.CacheTTL
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		p.cacheTTL = int(ttl.Seconds())
	}
	if p.metrics == nil {
		p.metrics = metrics.NewTestManager()
	}

	return p
}

// Search resets the picker to the first page of templates matching text and
// replaces the options with it. On failure the options stay as they were.
func (p *Picker) Search(ctx context.Context, text string) (_ []training.ExerciseTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "picker.search")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("picker.search", text))

	p.mu.Lock()
	p.token++
	token := p.token
	p.search = text
	p.loading = true
	p.mu.Unlock()

	page, err := p.fetch(ctx, text, 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	if token != p.token {
		p.discard(text, 1)
		return nil, ErrStaleResponse
	}
	p.loading = false
	if err != nil {
		log.Errorf("picker: search %q: %s", text, err)
		return nil, err
	}

	p.options = append([]training.ExerciseTemplate(nil), page.Results...)
	p.page = 1
	p.hasMore = page.HasMore()

	return p.optionsLocked(), nil
}

// LoadMore appends the next page of the current search. It issues no request
// while another fetch is in flight or when the last page was reached, and
// returns the current options in that case.
func (p *Picker) LoadMore(ctx context.Context) (_ []training.ExerciseTemplate, err error) {
	p.mu.Lock()
	if p.loading || !p.hasMore {
		opts := p.optionsLocked()
		p.mu.Unlock()
		return opts, nil
	}
	token := p.token
	search := p.search
	next := p.page + 1
	p.loading = true
	p.mu.Unlock()

	ctx, span := tracing.GlobalTracer.Start(ctx, "picker.loadMore")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("picker.page", next))

	page, err := p.fetch(ctx, search, next)

	p.mu.Lock()
	defer p.mu.Unlock()

	if token != p.token {
		p.discard(search, next)
		return nil, ErrStaleResponse
	}
	p.loading = false
	if err != nil {
		log.Errorf("picker: load page %d of %q: %s", next, search, err)
		return nil, err
	}

	p.options = append(p.options, page.Results...)
	p.page = next
	p.hasMore = page.HasMore()

	return p.optionsLocked(), nil
}

// Invalidate drops every cached page, e.g. after a template was created or
// deleted.
func (p *Picker) Invalidate() {
	if p.cache != nil {
		p.cache.Clear()
	}
}

func (p *Picker) Options() []training.ExerciseTemplate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.optionsLocked()
}

// Find returns a copy of the loaded option with the given id.
func (p *Picker) Find(id int) (*training.ExerciseTemplate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, tpl := range p.options {
		if tpl.ID == id {
			found := tpl
			return &found, true
		}
	}
	return nil, false
}

func (p *Picker) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

func (p *Picker) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

func (p *Picker) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.search
}

func (p *Picker) optionsLocked() []training.ExerciseTemplate {
	return append([]training.ExerciseTemplate(nil), p.options...)
}

func (p *Picker) discard(search string, page int) {
	p.metrics.CounterPickerStale.Inc()
	log.Debugf("picker: discarding stale page %d of %q, current search is %q", page, search, p.search)
}

func (p *Picker) fetch(ctx context.Context, search string, page int) (api.Page[training.ExerciseTemplate], error) {
	cacheKey := []byte(fmt.Sprintf("%s::%s::%d", p.tplType, search, page))
	if p.cache != nil {
		if cached, err := p.cache.Get(cacheKey); err == nil {
			var res api.Page[training.ExerciseTemplate]
			if err := json.Unmarshal(cached, &res); err == nil {
				p.metrics.CounterPickerCacheHits.Inc()
				log.Tracef("picker: page %d of %q served from cache", page, search)
				return res, nil
			} else {
				log.Errorf("picker: unmarshal cached page %d of %q: %s", page, search, err)
			}
		}
		p.metrics.CounterPickerCacheMisses.Inc()
	}

	p.metrics.CounterPickerFetches.Inc()
	res, err := p.fetcher.ListExerciseTemplates(ctx, training.ListTemplatesParams{
		Page:   page,
		Search: search,
		Type:   p.tplType,
		Tags:   p.tags,
	})
	if err != nil {
		return api.Page[training.ExerciseTemplate]{}, fmt.Errorf("fetch templates [page %d]: %w", page, err)
	}

	if p.cache != nil {
		if raw, err := json.Marshal(res); err != nil {
			log.Errorf("picker: marshal page %d of %q: %s", page, search, err)
		} else if err := p.cache.Set(cacheKey, raw, p.cacheTTL); err != nil {
			log.Errorf("picker: cache page %d of %q: %s", page, search, err)
		}
	}

	return res, nil
}
