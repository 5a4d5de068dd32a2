package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Flynotfly/gymstat/internal/api"
	"github.com/Flynotfly/gymstat/internal/telemetry/metrics"
	"github.com/Flynotfly/gymstat/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultSessionPath = "_allauth/browser/v1/auth/session"
	DefaultLoginPath   = "user/login/"

	subscriberBuffer = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrClosed             = errors.New("session state closed")
)

type EventType string

const (
	EventLogin      EventType = "login"
	EventLogout     EventType = "logout"
	EventAuthChange EventType = "auth_change"
)

type User struct {
	ID       int    `json:"id"`
	Display  string `json:"display"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Method struct {
	Method   string  `json:"method"`
	At       float64 `json:"at"`
	Username string  `json:"username,omitempty"`
}

// AuthData is what the client knows about the current session. User is nil
// for anonymous sessions.
type AuthData struct {
	Authenticated bool
	User          *User
	Methods       []Method
}

type Event struct {
	Type EventType
	Auth AuthData
}

type sessionResponse struct {
	Status int `json:"status"`
	Data   struct {
		User    *User    `json:"user"`
		Methods []Method `json:"methods"`
	} `json:"data"`
	Meta struct {
		IsAuthenticated bool `json:"is_authenticated"`
	} `json:"meta"`
}

//go:generate mockgen -source=$GOFILE -destination=session_mocks_test.go -package=session_test

type gateway interface {
	Do(ctx context.Context, method, path string, body, out any) error
	FetchCSRF(ctx context.Context) (string, error)
	Cookies() []*http.Cookie
	SetCookies(cookies []*http.Cookie)
}

type Params struct {
	// Store persists the session cookies between runs. Optional.
	Store       CookieStore
	Metrics     *metrics.Manager
	SessionPath string
	LoginPath   string
}

// State is the process-wide view of the auth session. Changes are broadcast
// to subscribers; a slow subscriber misses events rather than blocking.
type State struct {
	gw          gateway
	store       CookieStore
	metrics     *metrics.Manager
	sessionPath string
	loginPath   string

	mu          sync.RWMutex
	auth        AuthData
	subscribers map[int]chan Event
	nextSubID   int
	closed      bool
}

func NewState(gw gateway, params Params) *State {
	s := &State{
		gw:          gw,
		store:       params.Store,
		metrics:     params.Metrics,
		sessionPath: params.SessionPath,
		loginPath:   params.LoginPath,
		subscribers: make(map[int]chan Event),
	}
	if s.metrics == nil {
		s.metrics = metrics.NewTestManager()
	}
	if s.sessionPath == "" {
		s.sessionPath = DefaultSessionPath
	}
	if s.loginPath == "" {
		s.loginPath = DefaultLoginPath
	}
	return s
}

// Init restores stored cookies and asks the backend who we are. An
// anonymous session is not an error.
func (s *State) Init(ctx context.Context) (_ AuthData, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.init")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if s.store != nil {
		cookies, err := s.store.Load(ctx)
		if err != nil {
			return AuthData{}, fmt.Errorf("session init [load cookies]: %w", err)
		}
		if len(cookies) > 0 {
			s.gw.SetCookies(cookies)
			log.Debugf("session: restored %d cookies", len(cookies))
		}
	}

	auth, err := s.fetch(ctx)
	if err != nil {
		return AuthData{}, fmt.Errorf("session init: %w", err)
	}

	s.mu.Lock()
	changed := s.auth.Authenticated != auth.Authenticated
	s.auth = auth
	s.mu.Unlock()

	if changed {
		s.broadcast(Event{Type: EventAuthChange, Auth: auth})
	}
	return auth, nil
}

func (s *State) Login(ctx context.Context, username, password string) (_ AuthData, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.login")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := s.gw.FetchCSRF(ctx); err != nil {
		return AuthData{}, fmt.Errorf("login [csrf]: %w", err)
	}

	creds := map[string]string{
		"username": username,
		"password": password,
	}
	if err := s.gw.Do(ctx, http.MethodPost, s.loginPath, creds, nil); err != nil {
		if api.StatusCode(err) == http.StatusUnauthorized {
			return AuthData{}, fmt.Errorf("login: %w", ErrInvalidCredentials)
		}
		return AuthData{}, fmt.Errorf("login [post]: %w", err)
	}

	auth, err := s.fetch(ctx)
	if err != nil {
		return AuthData{}, fmt.Errorf("login [session]: %w", err)
	}

	s.mu.Lock()
	s.auth = auth
	s.mu.Unlock()

	s.persist(ctx)
	s.broadcast(Event{Type: EventLogin, Auth: auth})
	log.Infof("session: logged in as %s", username)

	return auth, nil
}

// Logout ends the backend session. The backend answers a successful logout
// with 401, which is not treated as an error.
func (s *State) Logout(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.logout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := s.gw.Do(ctx, http.MethodDelete, s.sessionPath, nil, nil); err != nil {
		if api.StatusCode(err) != http.StatusUnauthorized {
			return fmt.Errorf("logout: %w", err)
		}
	}

	s.mu.Lock()
	s.auth = AuthData{}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Clear(ctx); err != nil {
			log.Errorf("session: clear stored cookies: %s", err)
		}
	}
	s.broadcast(Event{Type: EventLogout})
	log.Infoln("session: logged out")

	return nil
}

func (s *State) Auth() AuthData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

func (s *State) IsAuthenticated() bool {
	return s.Auth().Authenticated
}

// Subscribe returns a channel receiving every later event and a func to stop
// receiving. The channel is closed on unsubscribe or Close.
func (s *State) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

func (s *State) fetch(ctx context.Context) (AuthData, error) {
	var res sessionResponse
	if err := s.gw.Do(ctx, http.MethodGet, s.sessionPath, nil, &res); err != nil {
		if api.StatusCode(err) == http.StatusUnauthorized {
			return AuthData{}, nil
		}
		return AuthData{}, err
	}
	if !res.Meta.IsAuthenticated {
		return AuthData{}, nil
	}
	return AuthData{
		Authenticated: true,
		User:          res.Data.User,
		Methods:       res.Data.Methods,
	}, nil
}

func (s *State) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.gw.Cookies()); err != nil {
		log.Errorf("session: save cookies: %s", err)
	}
}

func (s *State) broadcast(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	s.metrics.CounterSessionEvents.WithLabelValues(string(e.Type)).Inc()
	for id, ch := range s.subscribers {
		select {
		case ch <- e:
		default:
			log.Warnf("session: subscriber %d is full, dropping %s event", id, e.Type)
		}
	}
}
