package testinternals

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Flynotfly/gymstat/internal/api"
	"github.com/Flynotfly/gymstat/internal/bodymetrics"
	"github.com/Flynotfly/gymstat/internal/training"
	"github.com/Flynotfly/gymstat/pkg"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

const (
	TestUsername  = "athlete"
	TestPassword  = "hunter22"
	TestUserID    = 11
	TestCSRFToken = "test-csrf-token-0123456789"

	SessionCookieName = "sessionid"
	SessionPath       = "/_allauth/browser/v1/auth/session"

	defaultPageSize = 3
)

type RecordedRequest struct {
	Method    string
	Path      string
	Query     string
	CSRF      string
	RequestID string
	Body      []byte
}

type injectedFailure struct {
	status int
	detail string
	raw    string
}

// Backend is an in-memory stand-in for the GymStat REST API, mirroring its
// routes, pagination, CSRF and session checks.
type Backend struct {
	Server   *httptest.Server
	PageSize int

	mu                sync.Mutex
	nextID            int
	sessions          map[string]string
	exerciseTemplates []training.ExerciseTemplate
	trainingTemplates []training.TrainingTemplate
	trainings         []training.Training
	metrics           []bodymetrics.Metric
	records           []bodymetrics.Record
	requests          []RecordedRequest
	failures          []injectedFailure
}

func NewBackend() *Backend {
	b := &Backend{
		PageSize: defaultPageSize,
		nextID:   100,
		sessions: make(map[string]string),
	}

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("gymstat-test-backend"))
	r.Use(b.recordMiddleware, b.failureMiddleware, b.csrfMiddleware)

	r.HandleFunc("/user/csrf/", b.handleCSRF).Methods("GET")
	r.HandleFunc("/user/login/", b.handleLogin).Methods("POST")
	r.HandleFunc(SessionPath, b.handleGetSession).Methods("GET")
	r.HandleFunc(SessionPath, b.handleDeleteSession).Methods("DELETE")

	authRouter := r.NewRoute().Subrouter()
	authRouter.Use(b.authMiddleware)

	authRouter.HandleFunc("/training/exercises/", b.handleListExerciseTemplates).Methods("GET")
	authRouter.HandleFunc("/training/exercises/", b.handleCreateExerciseTemplate).Methods("POST")
	authRouter.HandleFunc("/training/exercises/{id:[0-9]+}/", b.handleExerciseTemplate).Methods("GET", "PUT", "DELETE")

	authRouter.HandleFunc("/training/trainings/templates/", b.handleListTrainingTemplates).Methods("GET")
	authRouter.HandleFunc("/training/trainings/templates/", b.handleCreateTrainingTemplate).Methods("POST")
	authRouter.HandleFunc("/training/trainings/templates/{id:[0-9]+}/", b.handleTrainingTemplate).Methods("GET", "PUT", "DELETE")

	authRouter.HandleFunc("/training/trainings/", b.handleListTrainings).Methods("GET")
	authRouter.HandleFunc("/training/trainings/", b.handleCreateTraining).Methods("POST")
	authRouter.HandleFunc("/training/trainings/{id:[0-9]+}/", b.handleTraining).Methods("GET", "PUT", "DELETE")

	authRouter.HandleFunc("/metrics/metrics/", b.handleListMetrics).Methods("GET")
	authRouter.HandleFunc("/metrics/metrics/", b.handleCreateMetric).Methods("POST")
	authRouter.HandleFunc("/metrics/metrics/{id:[0-9]+}/", b.handleMetric).Methods("GET", "PUT", "DELETE")
	authRouter.HandleFunc("/metrics/records/", b.handleListRecords).Methods("GET")
	authRouter.HandleFunc("/metrics/records/", b.handleCreateRecord).Methods("POST")
	authRouter.HandleFunc("/metrics/records/{id:[0-9]+}/", b.handleRecord).Methods("GET", "PUT", "DELETE")

	b.Server = httptest.NewServer(r)
	return b
}

func (b *Backend) URL() string {
	return b.Server.URL + "/"
}

func (b *Backend) Close() {
	b.Server.Close()
}

// HTTPClient returns a fresh http.Client (with its own cookie jar once
// handed to api.NewClient) using the test server transport.
func (b *Backend) HTTPClient() *http.Client {
	return &http.Client{Transport: b.Server.Client().Transport}
}

// NewClient returns a gateway client pointed at the backend.
func (b *Backend) NewClient() *api.Client {
	client, err := api.NewClient(api.ClientParams{
		BaseURL:    b.URL(),
		HTTPClient: b.HTTPClient(),
	})
	if err != nil {
		panic(err)
	}
	return client
}

// NewLoggedInClient returns a client already carrying a valid session cookie.
func (b *Backend) NewLoggedInClient() *api.Client {
	client := b.NewClient()
	client.SetCookies([]*http.Cookie{{Name: SessionCookieName, Value: b.newSession(TestUsername)}})
	return client
}

func (b *Backend) SeedExerciseTemplates(templates ...training.ExerciseTemplate) []training.ExerciseTemplate {
	b.mu.Lock()
	defer b.mu.Unlock()
	var seeded []training.ExerciseTemplate
	for _, tpl := range templates {
		tpl.ID = b.newID()
		b.exerciseTemplates = append(b.exerciseTemplates, tpl)
		seeded = append(seeded, tpl)
	}
	return seeded
}

func (b *Backend) SeedTraining(t training.NewTraining) training.Training {
	b.mu.Lock()
	defer b.mu.Unlock()
	created := b.newTraining(t)
	b.trainings = append(b.trainings, created)
	return created
}

func (b *Backend) SeedMetric(m bodymetrics.Metric) bodymetrics.Metric {
	b.mu.Lock()
	defer b.mu.Unlock()
	m.ID = b.newID()
	m.Owner = TestUserID
	b.metrics = append(b.metrics, m)
	return m
}

// FailNext makes the next request fail with the given status and detail.
// An empty detail produces a body without the detail key.
func (b *Backend) FailNext(status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, injectedFailure{status: status, detail: detail})
}

// FailNextRaw makes the next request fail with a raw, possibly non-JSON body.
func (b *Backend) FailNextRaw(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, injectedFailure{status: status, raw: body})
}

func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// LastRequest returns the last request matching method and path prefix.
func (b *Backend) LastRequest(method, pathPrefix string) (RecordedRequest, bool) {
	reqs := b.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && strings.HasPrefix(reqs[i].Path, pathPrefix) {
			return reqs[i], true
		}
	}
	return RecordedRequest{}, false
}

func (b *Backend) CountRequests(method, pathPrefix string) int {
	count := 0
	for _, r := range b.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			count++
		}
	}
	return count
}

func (b *Backend) newID() int {
	b.nextID++
	return b.nextID
}

func (b *Backend) newSession(username string) string {
	sessionID, err := pkg.GenerateRandomString(32)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[sessionID] = username
	return sessionID
}

func (b *Backend) newTraining(t training.NewTraining) training.Training {
	now := time.Now().UTC().Truncate(time.Second)
	return training.Training{
		NewTraining: t,
		ID:          b.newID(),
		Owner:       TestUserID,
		CreatedAt:   now,
		EditedAt:    now,
	}
}

func (b *Backend) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			CSRF:      r.Header.Get(api.CSRFHeaderName),
			RequestID: r.Header.Get(api.RequestIDHeader),
			Body:      body,
		})
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		var failure *injectedFailure
		if len(b.failures) > 0 {
			failure = &b.failures[0]
			b.failures = b.failures[1:]
		}
		b.mu.Unlock()

		switch {
		case failure == nil:
			next.ServeHTTP(w, r)
		case failure.raw != "":
			pkg.WriteResponseBytes(w, pkg.ContentType.Text, []byte(failure.raw), failure.status)
		case failure.detail == "":
			pkg.WriteJSON(w, failure.status, map[string]string{})
		default:
			pkg.WriteDetail(w, failure.status, failure.detail)
		}
	})
}

func (b *Backend) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(api.CSRFCookieName)
		if err != nil {
			pkg.WriteDetail(w, http.StatusForbidden, "CSRF Failed: CSRF cookie not set.")
			return
		}
		if r.Header.Get(api.CSRFHeaderName) != cookie.Value {
			pkg.WriteDetail(w, http.StatusForbidden, "CSRF Failed: CSRF token incorrect.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.sessionUser(r); !ok {
			pkg.WriteDetail(w, http.StatusForbidden, "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) sessionUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	username, ok := b.sessions[cookie.Value]
	return username, ok
}

func (b *Backend) handleCSRF(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: api.CSRFCookieName, Value: TestCSRFToken, Path: "/"})
	pkg.WriteDetail(w, http.StatusOK, "CSRF cookie set")
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		pkg.WriteDetail(w, http.StatusBadRequest, "Malformed request")
		return
	}
	if creds.Username != TestUsername || creds.Password != TestPassword {
		pkg.WriteDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	sessionID := b.newSession(creds.Username)
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: sessionID, Path: "/", HttpOnly: true})
	pkg.WriteDetail(w, http.StatusOK, "Login successful")
}

func (b *Backend) handleGetSession(w http.ResponseWriter, r *http.Request) {
	username, ok := b.sessionUser(r)
	if !ok {
		writeAnonymousSession(w)
		return
	}
	pkg.WriteJSON(w, http.StatusOK, map[string]any{
		"status": http.StatusOK,
		"data": map[string]any{
			"user": map[string]any{
				"id":       TestUserID,
				"display":  username,
				"username": username,
				"email":    username + "@gymstat.test",
			},
			"methods": []map[string]any{
				{"method": "password", "at": time.Now().Unix(), "username": username},
			},
		},
		"meta": map[string]any{"is_authenticated": true},
	})
}

func (b *Backend) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		b.mu.Lock()
		delete(b.sessions, cookie.Value)
		b.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1})
	writeAnonymousSession(w)
}

func writeAnonymousSession(w http.ResponseWriter) {
	pkg.WriteJSON(w, http.StatusUnauthorized, map[string]any{
		"status": http.StatusUnauthorized,
		"data": map[string]any{
			"flows": []map[string]string{{"id": "login"}, {"id": "signup"}},
		},
		"meta": map[string]any{"is_authenticated": false},
	})
}

func (b *Backend) handleListExerciseTemplates(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(r.URL.Query().Get("search"))
	tplType := r.URL.Query().Get("type")

	b.mu.Lock()
	var matched []training.ExerciseTemplate
	for _, tpl := range b.exerciseTemplates {
		if search != "" && !strings.Contains(strings.ToLower(tpl.Name), search) {
			continue
		}
		if tplType == training.TemplateTypeAdmin && !tpl.IsAdmin {
			continue
		}
		if tplType == training.TemplateTypeUser && tpl.IsAdmin {
			continue
		}
		matched = append(matched, tpl)
	}
	b.mu.Unlock()

	writePageOf(w, r, b.URL(), b.PageSize, matched)
}

func (b *Backend) handleCreateExerciseTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl training.ExerciseTemplate
	if !decodeBody(w, r, &tpl) {
		return
	}
	if tpl.Name == "" {
		pkg.WriteJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field is required."}})
		return
	}

	b.mu.Lock()
	tpl.ID = b.newID()
	b.exerciseTemplates = append(b.exerciseTemplates, tpl)
	b.mu.Unlock()

	pkg.WriteJSON(w, http.StatusCreated, tpl)
}

func (b *Backend) handleExerciseTemplate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	b.mu.Lock()
	idx := indexOf(b.exerciseTemplates, func(t training.ExerciseTemplate) bool { return t.ID == id })
	b.mu.Unlock()
	if idx < 0 {
		pkg.WriteDetail(w, http.StatusNotFound, "No ExerciseTemplate matches the given query.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		b.mu.Lock()
		tpl := b.exerciseTemplates[idx]
		b.mu.Unlock()
		pkg.WriteJSON(w, http.StatusOK, tpl)
	case http.MethodPut:
		var tpl training.ExerciseTemplate
		if !decodeBody(w, r, &tpl) {
			return
		}
		tpl.ID = id
		b.mu.Lock()
		b.exerciseTemplates[idx] = tpl
		b.mu.Unlock()
		pkg.WriteJSON(w, http.StatusOK, tpl)
	case http.MethodDelete:
		b.mu.Lock()
		b.exerciseTemplates = append(b.exerciseTemplates[:idx], b.exerciseTemplates[idx+1:]...)
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *Backend) handleListTrainingTemplates(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	templates := append([]training.TrainingTemplate(nil), b.trainingTemplates...)
	b.mu.Unlock()
	writePageOf(w, r, b.URL(), b.PageSize, templates)
}

func (b *Backend) handleCreateTrainingTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl training.TrainingTemplate
	if !decodeBody(w, r, &tpl) {
		return
	}
	if tpl.Name == "" {
		pkg.WriteJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field is required."}})
		return
	}

	b.mu.Lock()
	tpl.ID = b.newID()
	tpl.Owner = TestUserID
	b.trainingTemplates = append(b.trainingTemplates, tpl)
	b.mu.Unlock()

	pkg.WriteJSON(w, http.StatusCreated, tpl)
}

func (b *Backend) handleTrainingTemplate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	b.mu.Lock()
	idx := indexOf(b.trainingTemplates, func(t training.TrainingTemplate) bool { return t.ID == id })
	b.mu.Unlock()
	if idx < 0 {
		pkg.WriteDetail(w, http.StatusNotFound, "No TrainingTemplate matches the given query.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		b.mu.Lock()
		tpl := b.trainingTemplates[idx]
		b.mu.Unlock()
		pkg.WriteJSON(w, http.StatusOK, tpl)
	case http.MethodPut:
		var tpl training.TrainingTemplate
		if !decodeBody(w, r, &tpl) {
			return
		}
		tpl.ID = id
		tpl.Owner = TestUserID
		b.mu.Lock()
		b.trainingTemplates[idx] = tpl
		b.mu.Unlock()
		pkg.WriteJSON(w, http.StatusOK, tpl)
	case http.MethodDelete:
		b.mu.Lock()
		b.trainingTemplates = append(b.trainingTemplates[:idx], b.trainingTemplates[idx+1:]...)
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *Backend) handleListTrainings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	trainings := append([]training.Training(nil), b.trainings...)
	b.mu.Unlock()

	// newest first
	sort.SliceStable(trainings, func(i, j int) bool {
		return trainings[i].Conducted.After(trainings[j].Conducted)
	})
	writePageOf(w, r, b.URL(), b.PageSize, trainings)
}

func (b *Backend) handleCreateTraining(w http.ResponseWriter, r *http.Request) {
	var t training.NewTraining
	if !decodeBody(w, r, &t) {
		return
	}
	if t.Conducted.IsZero() {
		pkg.WriteJSON(w, http.StatusBadRequest, map[string][]string{"conducted": {"This field is required."}})
		return
	}

	b.mu.Lock()
	created := b.newTraining(t)
	b.trainings = append(b.trainings, created)
	b.mu.Unlock()

	pkg.WriteJSON(w, http.StatusCreated, created)
}

func (b *Backend) handleTraining(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	b.mu.Lock()
	idx := indexOf(b.trainings, func(t training.Training) bool { return t.ID == id })
	b.mu.Unlock()
	if idx < 0 {
		pkg.WriteDetail(w, http.StatusNotFound, "No Training matches the given query.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		b.mu.Lock()
		t := b.trainings[idx]
		b.mu.Unlock()
		pkg.WriteJSON(w, http.StatusOK, t)
	case http.MethodPut:
		var t training.NewTraining
		if !decodeBody(w, r, &t) {
			return
		}
		b.mu.Lock()
		updated := b.trainings[idx]
		updated.NewTraining = t
		updated.EditedAt = time.Now().UTC().Truncate(time.Second)
		b.trainings[idx] = updated
		b.mu.Unlock()
		pkg.WriteJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		b.mu.Lock()
		b.trainings = append(b.trainings[:idx], b.trainings[idx+1:]...)
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *Backend) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	metricType := r.URL.Query().Get("type")
	if metricType == "" {
		metricType = bodymetrics.TypeAll
	}

	b.mu.Lock()
	var matched []bodymetrics.Metric
	for _, m := range b.metrics {
		switch metricType {
		case bodymetrics.TypeUser:
			if m.Owner != TestUserID {
				continue
			}
		case bodymetrics.TypeAdmin:
			if !m.Admin {
				continue
			}
		case bodymetrics.TypeAll:
		default:
			continue
		}
		matched = append(matched, m)
	}
	b.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	writePageOf(w, r, b.URL(), b.PageSize, matched)
}

func (b *Backend) handleCreateMetric(w http.ResponseWriter, r *http.Request) {
	var m bodymetrics.Metric
	if !decodeBody(w, r, &m) {
		return
	}
	b.mu.Lock()
	m.ID = b.newID()
	m.Owner = TestUserID
	b.metrics = append(b.metrics, m)
	b.mu.Unlock()
	pkg.WriteJSON(w, http.StatusCreated, m)
}

func (b *Backend) handleMetric(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	b.mu.Lock()
	idx := indexOf(b.metrics, func(m bodymetrics.Metric) bool { return m.ID == id })
	b.mu.Unlock()
	if idx < 0 {
		pkg.WriteDetail(w, http.StatusNotFound, "No Metric matches the given query.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		b.mu.Lock()
		m := b.metrics[idx]
		b.mu.Unlock()
		pkg.WriteJSON(w, http.StatusOK, m)
	case http.MethodPut:
		var m bodymetrics.Metric
		if !decodeBody(w, r, &m) {
			return
		}
		m.ID = id
		m.Owner = TestUserID
		b.mu.Lock()
		b.metrics[idx] = m
		b.mu.Unlock()
		pkg.WriteJSON(w, http.StatusOK, m)
	case http.MethodDelete:
		b.mu.Lock()
		b.metrics = append(b.metrics[:idx], b.metrics[idx+1:]...)
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *Backend) handleListRecords(w http.ResponseWriter, r *http.Request) {
	metricID, err := strconv.Atoi(r.URL.Query().Get("metric"))
	if err != nil {
		pkg.WriteJSON(w, http.StatusBadRequest, map[string]string{"metric": "This query parameter is required."})
		return
	}

	b.mu.Lock()
	var matched []bodymetrics.Record
	for _, rec := range b.records {
		if rec.Metric == metricID {
			matched = append(matched, rec)
		}
	}
	b.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Datetime.After(matched[j].Datetime) })
	writePageOf(w, r, b.URL(), b.PageSize, matched)
}

func (b *Backend) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var rec bodymetrics.Record
	if !decodeBody(w, r, &rec) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if indexOf(b.metrics, func(m bodymetrics.Metric) bool { return m.ID == rec.Metric }) < 0 {
		pkg.WriteDetail(w, http.StatusForbidden, "Cannot create record for unauthorized metric.")
		return
	}
	rec.ID = b.newID()
	rec.Owner = TestUserID
	b.records = append(b.records, rec)
	pkg.WriteJSON(w, http.StatusCreated, rec)
}

func (b *Backend) handleRecord(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	b.mu.Lock()
	idx := indexOf(b.records, func(rec bodymetrics.Record) bool { return rec.ID == id })
	b.mu.Unlock()
	if idx < 0 {
		pkg.WriteDetail(w, http.StatusNotFound, "No Record matches the given query.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		b.mu.Lock()
		rec := b.records[idx]
		b.mu.Unlock()
		pkg.WriteJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		var rec bodymetrics.Record
		if !decodeBody(w, r, &rec) {
			return
		}
		rec.ID = id
		rec.Owner = TestUserID
		b.mu.Lock()
		b.records[idx] = rec
		b.mu.Unlock()
		pkg.WriteJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		b.mu.Lock()
		b.records = append(b.records[:idx], b.records[idx+1:]...)
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func writePageOf[T any](w http.ResponseWriter, r *http.Request, baseURL string, pageSize int, items []T) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		var err error
		page, err = strconv.Atoi(p)
		if err != nil || page < 1 {
			pkg.WriteDetail(w, http.StatusNotFound, "Invalid page.")
			return
		}
	}

	start := (page - 1) * pageSize
	if start > len(items) || (start == len(items) && page > 1) {
		pkg.WriteDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}
	end := min(start+pageSize, len(items))

	res := api.Page[T]{
		Count:   len(items),
		Results: append(make([]T, 0, end-start), items[start:end]...),
	}
	pageURL := func(n int) string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(n))
		return strings.TrimSuffix(baseURL, "/") + r.URL.Path + "?" + q.Encode()
	}
	if end < len(items) {
		res.Next = pageURL(page + 1)
	}
	if page > 1 {
		res.Previous = pageURL(page - 1)
	}
	pkg.WriteJSON(w, http.StatusOK, res)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		pkg.WriteDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}
