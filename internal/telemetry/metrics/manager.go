package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterRequestErrors       prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter
	CounterPickerFetches       prometheus.Counter
	CounterPickerStale         prometheus.Counter
	CounterPickerCacheHits     prometheus.Counter
	CounterPickerCacheMisses   prometheus.Counter
	CounterSessionEvents       *prometheus.CounterVec

	// gauges
	GaugeRequests prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("gymstat", "test_client", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("gymstat", "test_client", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of outgoing API requests",
	}, []string{"method", "status"})
	counterRequestErrors := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_errors",
		Help:      "The total number of API requests that failed before a response was read",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of requests rejected by the outbound rate limiter",
	})
	counterPickerFetches := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "picker_fetches",
		Help:      "The total number of exercise template pages fetched by the picker",
	})
	counterPickerStale := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "picker_stale_responses",
		Help:      "The total number of picker responses discarded as stale",
	})
	counterPickerCacheHits := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "picker_cache_hits",
		Help:      "The total number of picker pages served from cache",
	})
	counterPickerCacheMisses := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "picker_cache_misses",
		Help:      "The total number of picker pages not found in cache",
	})
	counterSessionEvents := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "session_events",
		Help:      "The total number of broadcast session events",
	}, []string{"type"})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of API requests in flight",
	})

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of API response time in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "status_code"})

	return &Manager{
		CounterRequests:            counterRequests,
		CounterRequestErrors:       counterRequestErrors,
		CounterRateLimitedRequests: counterRateLimitedRequests,
		CounterPickerFetches:       counterPickerFetches,
		CounterPickerStale:         counterPickerStale,
		CounterPickerCacheHits:     counterPickerCacheHits,
		CounterPickerCacheMisses:   counterPickerCacheMisses,
		CounterSessionEvents:       counterSessionEvents,
		GaugeRequests:              gaugeRequests,
		HistogramRequestDuration:   histogramRequestDuration,
	}
}
