package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Flynotfly/gymstat/internal/telemetry/metrics"
	"github.com/Flynotfly/gymstat/internal/telemetry/tracing"

	"github.com/go-redis/redis_rate/v9"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultCSRFPath    = "user/csrf/"
	DefaultTimeout     = 15 * time.Second
	CSRFCookieName     = "csrftoken"
	CSRFHeaderName     = "X-CSRFToken"
	RequestIDHeader    = "X-Request-ID"
	rateLimitKeyPrefix = "gymstat::api::"
)

var ErrRateLimited = errors.New("outbound rate limit reached")

//go:generate mockgen -source=$GOFILE -destination=client_mocks_test.go -package=api_test

// RateLimiter is satisfied by *redis_rate.Limiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

type ClientParams struct {
	BaseURL string
	// HTTPClient is used as-is when set; its Jar is replaced only when nil.
	HTTPClient *http.Client
	Timeout    time.Duration
	Metrics    *metrics.Manager
	// RateLimiter is optional, RateLimitPerMin must be > 0 for it to be used.
	RateLimiter     RateLimiter
	RateLimitPerMin int
	CSRFPath        string
}

// Client is a JSON gateway to the GymStat REST API. Cookies (session and
// CSRF) are kept in a jar, so one client represents one browser-like session.
// It is safe for concurrent use.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	metrics         *metrics.Manager
	rateLimiter     RateLimiter
	rateLimitPerMin int
	csrfPath        string

	primeMu sync.Mutex
}

func NewClient(params ClientParams) (*Client, error) {
	base := strings.TrimSpace(params.BaseURL)
	if base == "" {
		return nil, errors.New("base url not set")
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %s", params.BaseURL)
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		timeout := params.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("new cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	m := params.Metrics
	if m == nil {
		m = metrics.NewTestManager()
	}

	csrfPath := params.CSRFPath
	if csrfPath == "" {
		csrfPath = DefaultCSRFPath
	}

	return &Client{
		baseURL:         baseURL,
		httpClient:      httpClient,
		metrics:         m,
		rateLimiter:     params.RateLimiter,
		rateLimitPerMin: params.RateLimitPerMin,
		csrfPath:        csrfPath,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do performs a JSON request against path (relative to the base URL).
// body is encoded as JSON unless nil or the method is GET/HEAD; a 2xx response
// is decoded into out when out is not nil. Non-2xx responses return *Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "api.do")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	method = strings.ToUpper(method)
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("api.path", path),
	)

	if err := c.allow(ctx); err != nil {
		return err
	}

	if !isSafeMethod(method) && c.CSRFToken() == "" {
		if err := c.primeCSRF(ctx); err != nil {
			return err
		}
	}

	reqURL, err := c.resolve(path)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil && method != http.MethodGet && method != http.MethodHead {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api request [marshal body]: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reqBody)
	if err != nil {
		return fmt.Errorf("api request [new request]: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	// django checks the referer of unsafe requests over https
	req.Header.Set("Referer", c.baseURL.String())
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	if !isSafeMethod(method) {
		if token := c.CSRFToken(); token != "" {
			req.Header.Set(CSRFHeaderName, token)
		}
	}
	span.SetAttributes(attribute.String("request.id", requestID))

	c.metrics.GaugeRequests.Inc()
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GaugeRequests.Dec()
	if err != nil {
		c.metrics.CounterRequestErrors.Inc()
		return fmt.Errorf("api request [%s %s]: %w", method, path, err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	c.metrics.CounterRequests.WithLabelValues(method, status).Inc()
	c.metrics.HistogramRequestDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api request [read body]: %w", err)
	}

	log.Tracef("api: %s %s -> %d [%s]", method, path, resp.StatusCode, requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("api request [unmarshal response]: %w", err)
	}

	return nil
}

// FetchCSRF asks the backend to set the CSRF cookie and returns its value.
func (c *Client) FetchCSRF(ctx context.Context) (string, error) {
	if err := c.Do(ctx, http.MethodGet, c.csrfPath, nil, nil); err != nil {
		return "", fmt.Errorf("fetch csrf: %w", err)
	}
	token := c.CSRFToken()
	if token == "" {
		return "", errors.New("fetch csrf: no csrf cookie received")
	}
	return token, nil
}

// CSRFToken returns the current csrftoken cookie value, "" if not set.
func (c *Client) CSRFToken() string {
	for _, cookie := range c.httpClient.Jar.Cookies(c.baseURL) {
		if cookie.Name == CSRFCookieName {
			return cookie.Value
		}
	}
	return ""
}

// Cookies returns the cookies the jar would send to the API.
func (c *Client) Cookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.baseURL)
}

func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.httpClient.Jar.SetCookies(c.baseURL, cookies)
}

func (c *Client) primeCSRF(ctx context.Context) error {
	c.primeMu.Lock()
	defer c.primeMu.Unlock()

	// another goroutine might have primed it meanwhile
	if c.CSRFToken() != "" {
		return nil
	}
	log.Debugln("api: no csrf cookie, priming")
	if _, err := c.FetchCSRF(ctx); err != nil {
		return err
	}
	return nil
}

func (c *Client) allow(ctx context.Context) error {
	if c.rateLimiter == nil || c.rateLimitPerMin <= 0 {
		return nil
	}

	res, err := c.rateLimiter.Allow(ctx, rateLimitKeyPrefix+c.baseURL.Host, redis_rate.PerMinute(c.rateLimitPerMin))
	if err != nil {
		// limiter backend down, do not block the user on it
		log.Errorf("api: rate limiter: %s", err)
		return nil
	}
	if res.Allowed == 0 {
		c.metrics.CounterRateLimitedRequests.Inc()
		return fmt.Errorf("%w, retry after %s", ErrRateLimited, res.RetryAfter)
	}
	return nil
}

func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("api request [parse path %q]: %w", path, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
