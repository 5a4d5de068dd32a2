package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Flynotfly/gymstat/internal/api"
	"github.com/Flynotfly/gymstat/internal/bodymetrics"
	"github.com/Flynotfly/gymstat/internal/config"
	"github.com/Flynotfly/gymstat/internal/session"
	"github.com/Flynotfly/gymstat/internal/telemetry/metrics"
	"github.com/Flynotfly/gymstat/internal/testinternals"
	"github.com/Flynotfly/gymstat/internal/training"
	"github.com/Flynotfly/gymstat/internal/training/draft"
	"github.com/Flynotfly/gymstat/internal/training/fields"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type testEnv struct {
	internals *testinternals.Internals
	storePath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	internals := testinternals.NewTestingInternals()
	t.Cleanup(internals.Close)
	return &testEnv{
		internals: internals,
		storePath: filepath.Join(t.TempDir(), "session", "cookies.json"),
	}
}

// newApp wires a fresh client to the backend, sharing the cookie file with
// every other app of the env, like consecutive CLI runs do.
func (e *testEnv) newApp(t *testing.T, stdin string) (*app, *bytes.Buffer) {
	t.Helper()
	client := e.internals.Backend.NewClient()
	m := metrics.NewTestManager()
	state := session.NewState(client, session.Params{
		Store:   session.NewFileStore(e.storePath),
		Metrics: m,
	})
	t.Cleanup(state.Close)

	out := &bytes.Buffer{}
	return &app{
		out: out,
		in:  strings.NewReader(stdin),
		cfg: &config.Config{
			PickerDebounce:    10 * time.Millisecond,
			PickerCacheTTL:    time.Minute,
			PickerCacheSizeMB: 1,
		},
		session:     state,
		training:    training.NewRepo(client),
		bodyMetrics: bodymetrics.NewRepo(client),
		metrics:     m,
	}, out
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a, out := e.newApp(t, "")
	err := a.run(context.Background(), args)
	return out.String(), err
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	_, err := e.run(t, "login", "-u", testinternals.TestUsername, "-p", testinternals.TestPassword)
	require.NoError(t, err)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func createdID(t *testing.T, out, what string) int {
	t.Helper()
	var id int
	_, err := fmt.Sscanf(out, "created "+what+" %d", &id)
	require.NoError(t, err, out)
	return id
}

func TestLoginWhoamiLogout(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "anonymous\n", out)

	out, err = env.run(t, "login", "-u", testinternals.TestUsername, "-p", "wrong")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Empty(t, out)

	out, err = env.run(t, "login", "-u", testinternals.TestUsername, "-p", testinternals.TestPassword)
	require.NoError(t, err)
	assert.Equal(t, "logged in as athlete\n", out)

	out, err = env.run(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "athlete <athlete@gymstat.test>\n", out)

	out, err = env.run(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "logged out\n", out)

	out, err = env.run(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "anonymous\n", out)
}

func TestLogin_PasswordFromEnv(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "login", "-u", testinternals.TestUsername)
	assert.ErrorContains(t, err, "password not set")

	t.Setenv(passwordEnvVar, testinternals.TestPassword)
	out, err := env.run(t, "login", "-u", testinternals.TestUsername)
	require.NoError(t, err)
	assert.Equal(t, "logged in as athlete\n", out)

	_, err = env.run(t, "login")
	assert.ErrorContains(t, err, "username not set")
}

func TestRun_UnknownCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "dance")
	assert.ErrorIs(t, err, errUnknownCommand)
	assert.Contains(t, out, "usage: gymstat")
	assert.Contains(t, out, "add-training (-f draft.yaml | -template <id> [-conducted ts])")

	_, err = env.run(t)
	assert.ErrorIs(t, err, errUnknownCommand)
}

func TestCommands_RequireLogin(t *testing.T) {
	env := newTestEnv(t)

	for _, args := range [][]string{
		{"templates"},
		{"trainings"},
		{"training", "-id", "1"},
		{"metrics"},
		{"records", "-metric", "1"},
	} {
		_, err := env.run(t, args...)
		assert.ErrorIs(t, err, errNotLoggedIn, args[0])
	}
	assert.Zero(t, env.internals.Backend.CountRequests(http.MethodGet, "/training/"))
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, err := env.run(t, "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "Bench press")
	assert.Contains(t, out, "weight,reps")
	assert.Contains(t, out, "Plank *")
	assert.NotContains(t, out, "more available")

	env.internals.Backend.PageSize = 2
	out, err = env.run(t, "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "Running")
	assert.NotContains(t, out, "Plank")
	assert.Contains(t, out, "... more available")

	out, err = env.run(t, "templates", "-pages", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Plank *")
	assert.NotContains(t, out, "more available")

	out, err = env.run(t, "templates", "-search", "RUN")
	require.NoError(t, err)
	assert.Contains(t, out, "Running")
	assert.NotContains(t, out, "Bench press")

	out, err = env.run(t, "templates", "-type", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "Plank *")
	assert.NotContains(t, out, "Running")

	last, ok := env.internals.Backend.LastRequest(http.MethodGet, "/training/exercises/")
	require.True(t, ok)
	assert.Equal(t, "page=1&type=admin", last.Query)
}

func TestTemplates_Interactive(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	a, out := env.newApp(t, "b\nbe\nbench\n")
	require.NoError(t, a.run(context.Background(), []string{"templates", "-i"}))

	assert.Equal(t, 1, strings.Count(out.String(), "> bench\n"), out.String())
	assert.Contains(t, out.String(), "Bench press")
}

func TestTrainings(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	initial := env.internals.InitialTraining

	out, err := env.run(t, "trainings")
	require.NoError(t, err)
	assert.Contains(t, out, strconv.Itoa(initial.ID))
	assert.Contains(t, out, "Push day")
	assert.Contains(t, out, "page 1, 1 total\n")

	out, err = env.run(t, "training", "-id", strconv.Itoa(initial.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "title: Push day")
	assert.Contains(t, out, "template: "+strconv.Itoa(env.internals.BenchPress.ID))
	assert.Contains(t, out, "unit: kg")
	assert.Contains(t, out, "field: 5stars")

	_, err = env.run(t, "training", "-id", "9999")
	assert.ErrorIs(t, err, training.ErrTrainingNotFound)

	_, err = env.run(t, "training")
	assert.ErrorContains(t, err, "training id not set")
}

func TestAddTraining_FromFile(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	bench := env.internals.BenchPress

	path := writeFile(t, "training.yaml", fmt.Sprintf(`
conducted: 2024-06-01 07:15:00
title: Morning
notes:
  - name: Mood
    field: 5stars
    required: true
    value: 5
exercises:
  - template: %d
    fields:
      - name: weight
        unit: lbs
        default: 100
      - name: reps
        default: 5
`, bench.ID))

	out, err := env.run(t, "add-training", "-f", path)
	require.NoError(t, err)
	id := createdID(t, out, "training")

	req, ok := env.internals.Backend.LastRequest(http.MethodPost, "/training/trainings/")
	require.True(t, ok)
	var posted training.NewTraining
	require.NoError(t, json.Unmarshal(req.Body, &posted))
	assert.Equal(t, "Morning", posted.Title)
	assert.True(t, posted.Conducted.Equal(time.Date(2024, 6, 1, 7, 15, 0, 0, time.Local)))
	assert.Equal(t, []training.TrainingNote{{Name: "Mood", Field: fields.KindFiveStar, Required: true, Value: "5"}}, posted.Notes)
	require.Len(t, posted.Exercises, 1)
	assert.Equal(t, training.Exercise{
		Template: bench.ID,
		Order:    1,
		Units:    map[string]string{"weight": "lbs"},
		Sets:     []training.SetData{{"weight": 100.0, "reps": 5.0}},
	}, posted.Exercises[0])

	out, err = env.run(t, "trainings")
	require.NoError(t, err)
	assert.Contains(t, out, strconv.Itoa(id))
	assert.Contains(t, out, "page 1, 2 total")
}

func TestAddTraining_Invalid(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	invalid := writeFile(t, "invalid.yaml", `
title: no date
notes:
  - name: Mood
    field: 5stars
    value: 6
`)
	_, err := env.run(t, "add-training", "-f", invalid)
	assert.ErrorIs(t, err, draft.ErrInvalidDraft)
	assert.ErrorContains(t, err, "conducted: "+fields.MsgRequired)
	assert.ErrorContains(t, err, fields.MsgFiveStar)
	assert.Zero(t, env.internals.Backend.CountRequests(http.MethodPost, "/training/trainings/"))

	_, err = env.run(t, "add-training")
	assert.ErrorContains(t, err, "set exactly one of -f and -template")

	_, err = env.run(t, "add-training", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "open draft file")
}

func TestEditTraining(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	id := strconv.Itoa(env.internals.InitialTraining.ID)

	dumped, err := env.run(t, "edit-training", "-id", id)
	require.NoError(t, err)
	require.Contains(t, dumped, "title: Push day")

	path := writeFile(t, "edit.yaml", strings.Replace(dumped, "title: Push day", "title: Pull day", 1))
	out, err := env.run(t, "edit-training", "-id", id, "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "updated training "+id+"\n", out)

	req, ok := env.internals.Backend.LastRequest(http.MethodPut, "/training/trainings/")
	require.True(t, ok)
	var posted training.NewTraining
	require.NoError(t, json.Unmarshal(req.Body, &posted))
	assert.Equal(t, "Pull day", posted.Title)
	assert.Equal(t, env.internals.InitialTraining.Exercises[0].Sets, posted.Exercises[0].Sets)
	assert.True(t, posted.Conducted.Equal(env.internals.InitialTraining.Conducted))

	out, err = env.run(t, "training", "-id", id)
	require.NoError(t, err)
	assert.Contains(t, out, "title: Pull day")

	out, err = env.run(t, "delete-training", "-id", id)
	require.NoError(t, err)
	assert.Equal(t, "deleted training "+id+"\n", out)
	_, err = env.run(t, "training", "-id", id)
	assert.ErrorIs(t, err, training.ErrTrainingNotFound)
}

func TestAddTemplate_ThenTraining(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	running := env.internals.Running

	path := writeFile(t, "template.yaml", fmt.Sprintf(`
name: Easy run
notes:
  - name: Mood
    field: 5stars
    required: true
    default: 3
exercises:
  - template: %d
    fields:
      - name: distance
        unit: km
        default: 5
`, running.ID))

	out, err := env.run(t, "add-template", "-f", path)
	require.NoError(t, err)
	templateID := createdID(t, out, "training template")

	out, err = env.run(t, "training-templates")
	require.NoError(t, err)
	assert.Contains(t, out, "Easy run")

	out, err = env.run(t, "add-training", "-template", strconv.Itoa(templateID), "-conducted", "2024-06-02 06:00:00")
	require.NoError(t, err)
	createdID(t, out, "training")

	req, ok := env.internals.Backend.LastRequest(http.MethodPost, "/training/trainings/")
	require.True(t, ok)
	var posted training.NewTraining
	require.NoError(t, json.Unmarshal(req.Body, &posted))
	assert.Equal(t, "Easy run", posted.Title)
	assert.True(t, posted.Conducted.Equal(time.Date(2024, 6, 2, 6, 0, 0, 0, time.Local)))
	assert.Equal(t, "3", posted.Notes[0].Value)
	require.Len(t, posted.Exercises, 1)
	assert.Equal(t, running.ID, posted.Exercises[0].Template)
	assert.Equal(t, "km", posted.Exercises[0].Units["distance"])
	assert.Equal(t, 5.0, posted.Exercises[0].Sets[0]["distance"])

	_, err = env.run(t, "add-template", "-f", writeFile(t, "bad.yaml", "name: x\nexercises:\n  - template: 9999\n"))
	assert.ErrorIs(t, err, errTemplateNotFound)
}

func TestMetricsAndRecords(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	metricID := strconv.Itoa(env.internals.BodyWeight.ID)

	out, err := env.run(t, "metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "Body weight")
	assert.Contains(t, out, "kg")

	out, err = env.run(t, "add-record", "-metric", metricID, "-value", "81.5", "-at", "2024-05-02 07:00:00")
	require.NoError(t, err)
	createdID(t, out, "record")

	out, err = env.run(t, "records", "-metric", metricID)
	require.NoError(t, err)
	assert.Contains(t, out, "81.5")
	assert.Contains(t, out, "2024-05-02 07:00:00")

	_, err = env.run(t, "add-record", "-metric", metricID, "-value", "heavy")
	assert.ErrorContains(t, err, "value: "+fields.MsgNumber)

	_, err = env.run(t, "add-record", "-metric", metricID, "-value", "80", "-at", "yesterday")
	assert.ErrorContains(t, err, "at: "+fields.MsgDatetime)

	_, err = env.run(t, "add-record", "-metric", "4242", "-value", "80")
	assert.True(t, api.IsUnauthorized(err), err)

	_, err = env.run(t, "records")
	assert.ErrorIs(t, err, bodymetrics.ErrMetricRequired)
}

func TestDescribeAPIError(t *testing.T) {
	err := describeAPIError(&api.Error{
		StatusCode: http.StatusBadRequest,
		Detail:     "API request failed",
		Body:       []byte(`{"title":["Too long."],"conducted":["This field is required."]}`),
	})
	assert.EqualError(t, err, "api error 400: API request failed (conducted: This field is required.; title: Too long.)")
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))

	detailOnly := &api.Error{StatusCode: http.StatusForbidden, Detail: "nope", Body: []byte(`{"detail":"nope"}`)}
	assert.Same(t, detailOnly, describeAPIError(detailOnly))
}

func TestSplitTags(t *testing.T) {
	assert.Nil(t, splitTags(""))
	assert.Equal(t, []string{"back", "legs"}, splitTags(" back, ,legs "))
}
