package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Flynotfly/gymstat/internal/api"
	"github.com/Flynotfly/gymstat/internal/bodymetrics"
	"github.com/Flynotfly/gymstat/internal/config"
	"github.com/Flynotfly/gymstat/internal/session"
	"github.com/Flynotfly/gymstat/internal/telemetry/metrics"
	"github.com/Flynotfly/gymstat/internal/training"
	"github.com/Flynotfly/gymstat/internal/training/draft"
	"github.com/Flynotfly/gymstat/internal/training/fields"
	"github.com/Flynotfly/gymstat/internal/training/picker"

	log "github.com/sirupsen/logrus"
)

const passwordEnvVar = "GYMSTAT_PASSWORD"

var (
	errNotLoggedIn    = errors.New("not logged in, run: gymstat login")
	errUnknownCommand = errors.New("unknown command")
)

// app runs one CLI command against the API.
type app struct {
	out io.Writer
	in  io.Reader

	cfg         *config.Config
	session     *session.State
	training    *training.Repo
	bodyMetrics *bodymetrics.Repo
	metrics     *metrics.Manager
}

type command struct {
	usage string
	run   func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"login":              {"login -u <username> [-p <password>]", (*app).login},
	"logout":             {"logout", (*app).logout},
	"whoami":             {"whoami", (*app).whoami},
	"templates":          {"templates [-search s] [-type all|user|admin] [-tags a,b] [-pages n] [-i]", (*app).templates},
	"training-templates": {"training-templates [-page n]", (*app).trainingTemplates},
	"trainings":          {"trainings [-page n]", (*app).trainings},
	"training":           {"training -id <id>", (*app).showTraining},
	"add-training":       {"add-training (-f draft.yaml | -template <id> [-conducted ts])", (*app).addTraining},
	"edit-training":      {"edit-training -id <id> [-f draft.yaml]", (*app).editTraining},
	"delete-training":    {"delete-training -id <id>", (*app).deleteTraining},
	"add-template":       {"add-template -f template.yaml", (*app).addTemplate},
	"metrics":            {"metrics [-type all|user|admin] [-page n]", (*app).listMetrics},
	"records":            {"records -metric <id> [-page n]", (*app).listRecords},
	"add-record":         {"add-record -metric <id> -value <v> [-at ts]", (*app).addRecord},
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return errUnknownCommand
	}
	cmd, ok := commands[args[0]]
	if !ok {
		a.usage()
		return fmt.Errorf("%w: %s", errUnknownCommand, args[0])
	}
	log.Debugf("running command [%s]", args[0])
	return cmd.run(a, ctx, args[1:])
}

func (a *app) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.out, "usage: gymstat [-env dev|prod] [-config ./config.toml] <command> [flags]")
	fmt.Fprintln(a.out, "commands:")
	for _, name := range names {
		fmt.Fprintf(a.out, "  %s\n", commands[name].usage)
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// requireAuth restores the stored session and fails when it is anonymous.
func (a *app) requireAuth(ctx context.Context) error {
	auth, err := a.session.Init(ctx)
	if err != nil {
		return err
	}
	if !auth.Authenticated {
		return errNotLoggedIn
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password, defaults to the "+passwordEnvVar+" env var")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("username not set, use -u")
	}
	if *password == "" {
		*password = os.Getenv(passwordEnvVar)
	}
	if *password == "" {
		return fmt.Errorf("password not set, use -p or %s", passwordEnvVar)
	}

	auth, err := a.session.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n", displayName(auth))
	return nil
}

func (a *app) logout(ctx context.Context, _ []string) error {
	if _, err := a.session.Init(ctx); err != nil {
		return err
	}
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func (a *app) whoami(ctx context.Context, _ []string) error {
	auth, err := a.session.Init(ctx)
	if err != nil {
		return err
	}
	if !auth.Authenticated {
		fmt.Fprintln(a.out, "anonymous")
		return nil
	}
	fmt.Fprintf(a.out, "%s", displayName(auth))
	if auth.User != nil && auth.User.Email != "" {
		fmt.Fprintf(a.out, " <%s>", auth.User.Email)
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) newPicker(tplType string, tags []string) *picker.Picker {
	return picker.NewPicker(a.training, picker.Params{
		Type:        tplType,
		Tags:        tags,
		CacheSizeMB: a.cfg.PickerCacheSizeMB,
		CacheTTL:    a.cfg.PickerCacheTTL,
		Metrics:     a.metrics,
	})
}

func (a *app) templates(ctx context.Context, args []string) error {
	fs := a.flagSet("templates")
	search := fs.String("search", "", "search text")
	tplType := fs.String("type", training.TemplateTypeAll, "all | user | admin")
	tags := fs.String("tags", "", "comma separated tags")
	pages := fs.Int("pages", 1, "number of pages to load")
	interactive := fs.Bool("i", false, "read search text from stdin, one query per line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	p := a.newPicker(*tplType, splitTags(*tags))
	if *interactive {
		return a.interactiveTemplates(ctx, p)
	}

	opts, err := p.Search(ctx, *search)
	if err != nil {
		return err
	}
	for i := 1; i < *pages && p.HasMore(); i++ {
		if opts, err = p.LoadMore(ctx); err != nil {
			return err
		}
	}
	a.printTemplates(opts, p.HasMore())
	return nil
}

// interactiveTemplates treats every stdin line as the search box content.
// Searches are debounced; ":more" loads the next page.
func (a *app) interactiveTemplates(ctx context.Context, p *picker.Picker) error {
	var (
		mu        sync.Mutex
		finished  bool
		lastInput string
		shown     = true
	)

	show := func(text string) {
		opts, err := p.Search(ctx, text)
		if errors.Is(err, picker.ErrStaleResponse) {
			return
		}
		shown = text == lastInput
		if err != nil {
			fmt.Fprintf(a.out, "search %q failed: %s\n", text, err)
			return
		}
		fmt.Fprintf(a.out, "> %s\n", text)
		a.printTemplates(opts, p.HasMore())
	}

	debouncer := picker.NewDebouncer(a.cfg.PickerDebounce, func(text string) {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		show(text)
	})

	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == ":more" {
			mu.Lock()
			opts, err := p.LoadMore(ctx)
			if err != nil {
				fmt.Fprintf(a.out, "load more failed: %s\n", err)
			} else {
				a.printTemplates(opts, p.HasMore())
			}
			mu.Unlock()
			continue
		}

		mu.Lock()
		lastInput = line
		shown = false
		mu.Unlock()
		debouncer.Input(line)
	}
	debouncer.Stop()

	mu.Lock()
	defer mu.Unlock()
	finished = true
	if !shown {
		show(lastInput)
	}
	return scanner.Err()
}

func (a *app) printTemplates(opts []training.ExerciseTemplate, hasMore bool) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFIELDS\tTAGS")
	for _, tpl := range opts {
		names := make([]string, 0, len(tpl.Fields))
		for _, f := range tpl.Fields {
			names = append(names, f.String())
		}
		name := tpl.Name
		if tpl.IsAdmin {
			name += " *"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", tpl.ID, name, strings.Join(names, ","), strings.Join(tpl.Tags, ","))
	}
	_ = tw.Flush()
	if hasMore {
		fmt.Fprintln(a.out, "... more available")
	}
}

func (a *app) trainingTemplates(ctx context.Context, args []string) error {
	fs := a.flagSet("training-templates")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	res, err := a.training.ListTrainingTemplates(ctx, *page)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tNOTES\tEXERCISES")
	for _, tpl := range res.Results {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", tpl.ID, tpl.Name, len(tpl.Data.Notes), len(tpl.Data.Exercises))
	}
	_ = tw.Flush()
	printPageFooter(a.out, *page, res)
	return nil
}

func (a *app) trainings(ctx context.Context, args []string) error {
	fs := a.flagSet("trainings")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	res, err := a.training.ListTrainings(ctx, *page)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCONDUCTED\tTITLE\tEXERCISES")
	for _, t := range res.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", t.ID, t.Conducted.In(time.Local).Format(fields.DatetimeLayout), t.Title, len(t.Exercises))
	}
	_ = tw.Flush()
	printPageFooter(a.out, *page, res)
	return nil
}

func (a *app) showTraining(ctx context.Context, args []string) error {
	fs := a.flagSet("training")
	id := fs.Int("id", 0, "training id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("training id not set, use -id")
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	d, err := a.loadTrainingDraft(ctx, *id)
	if err != nil {
		return err
	}
	return dumpTrainingDraft(a.out, d)
}

func (a *app) loadTrainingDraft(ctx context.Context, id int) (draft.TrainingDraft, error) {
	t, err := a.training.GetTraining(ctx, id)
	if err != nil {
		return draft.TrainingDraft{}, err
	}
	templates, err := a.training.TemplatesByID(ctx, t)
	if err != nil {
		return draft.TrainingDraft{}, err
	}
	return draft.FromTraining(t, templates), nil
}

func (a *app) addTraining(ctx context.Context, args []string) error {
	fs := a.flagSet("add-training")
	file := fs.String("f", "", "draft YAML file")
	templateID := fs.Int("template", 0, "start from a training template")
	conducted := fs.String("conducted", "", "conducted at, "+fields.DatetimeLayout+", defaults to now")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*file == "") == (*templateID == 0) {
		return errors.New("set exactly one of -f and -template")
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	var (
		d   draft.TrainingDraft
		err error
	)
	if *file != "" {
		d, err = a.trainingDraftFromFile(ctx, *file)
	} else {
		d, err = a.trainingDraftFromTemplate(ctx, *templateID, *conducted)
	}
	if err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	created, err := a.training.CreateTraining(ctx, d.Payload())
	if err != nil {
		return describeAPIError(err)
	}
	fmt.Fprintf(a.out, "created training %d\n", created.ID)
	return nil
}

func (a *app) trainingDraftFromFile(ctx context.Context, path string) (draft.TrainingDraft, error) {
	df, err := readDraftFile(path)
	if err != nil {
		return draft.TrainingDraft{}, err
	}
	return df.trainingDraft(ctx, newTemplateResolver(a.training))
}

func (a *app) trainingDraftFromTemplate(ctx context.Context, id int, conducted string) (draft.TrainingDraft, error) {
	tt, err := a.training.GetTrainingTemplate(ctx, id)
	if err != nil {
		return draft.TrainingDraft{}, err
	}

	resolver := newTemplateResolver(a.training)
	for _, ex := range tt.Data.Exercises {
		if _, err := resolver.get(ctx, ex.Template); err != nil && !errors.Is(err, errTemplateNotFound) {
			return draft.TrainingDraft{}, err
		}
	}

	at := time.Now().Truncate(time.Second)
	if conducted != "" {
		if at, err = time.ParseInLocation(fields.DatetimeLayout, conducted, time.Local); err != nil {
			return draft.TrainingDraft{}, fmt.Errorf("conducted: %s", fields.MsgDatetime)
		}
	}
	return draft.FromTrainingTemplate(tt, resolver.all()).ToTraining().SetConducted(at), nil
}

func (a *app) editTraining(ctx context.Context, args []string) error {
	fs := a.flagSet("edit-training")
	id := fs.Int("id", 0, "training id")
	file := fs.String("f", "", "draft YAML file; without it the current draft is printed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("training id not set, use -id")
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	if *file == "" {
		d, err := a.loadTrainingDraft(ctx, *id)
		if err != nil {
			return err
		}
		return dumpTrainingDraft(a.out, d)
	}

	d, err := a.trainingDraftFromFile(ctx, *file)
	if err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}
	updated, err := a.training.UpdateTraining(ctx, *id, d.Payload())
	if err != nil {
		return describeAPIError(err)
	}
	fmt.Fprintf(a.out, "updated training %d\n", updated.ID)
	return nil
}

func (a *app) deleteTraining(ctx context.Context, args []string) error {
	fs := a.flagSet("delete-training")
	id := fs.Int("id", 0, "training id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("training id not set, use -id")
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}
	if err := a.training.DeleteTraining(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted training %d\n", *id)
	return nil
}

func (a *app) addTemplate(ctx context.Context, args []string) error {
	fs := a.flagSet("add-template")
	file := fs.String("f", "", "template YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("template file not set, use -f")
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	df, err := readDraftFile(*file)
	if err != nil {
		return err
	}
	d, err := df.templateDraft(ctx, newTemplateResolver(a.training))
	if err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	created, err := a.training.CreateTrainingTemplate(ctx, d.Payload())
	if err != nil {
		return describeAPIError(err)
	}
	fmt.Fprintf(a.out, "created training template %d\n", created.ID)
	return nil
}

func (a *app) listMetrics(ctx context.Context, args []string) error {
	fs := a.flagSet("metrics")
	metricType := fs.String("type", bodymetrics.TypeAll, "all | user | admin")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	res, err := a.bodyMetrics.ListMetrics(ctx, *metricType, *page)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUNIT\tADMIN")
	for _, m := range res.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", m.ID, m.Name, m.Unit, m.Admin)
	}
	_ = tw.Flush()
	printPageFooter(a.out, *page, res)
	return nil
}

func (a *app) listRecords(ctx context.Context, args []string) error {
	fs := a.flagSet("records")
	metricID := fs.Int("metric", 0, "metric id")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	res, err := a.bodyMetrics.ListRecords(ctx, *metricID, *page)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATETIME\tVALUE")
	for _, rec := range res.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", rec.ID, rec.Datetime.In(time.Local).Format(fields.DatetimeLayout), strconv.FormatFloat(rec.Value, 'f', -1, 64))
	}
	_ = tw.Flush()
	printPageFooter(a.out, *page, res)
	return nil
}

func (a *app) addRecord(ctx context.Context, args []string) error {
	fs := a.flagSet("add-record")
	metricID := fs.Int("metric", 0, "metric id")
	value := fs.String("value", "", "measured value")
	at := fs.String("at", "", "measured at, "+fields.DatetimeLayout+", defaults to now")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if msg := fields.ValidateNote(fields.KindNumber, *value, true); msg != "" {
		return fmt.Errorf("value: %s", msg)
	}
	v, _ := strconv.ParseFloat(*value, 64)

	rec := bodymetrics.Record{Metric: *metricID, Value: v}
	if *at != "" {
		if msg := fields.ValidateNote(fields.KindDatetime, *at, true); msg != "" {
			return fmt.Errorf("at: %s", msg)
		}
		datetime, err := time.ParseInLocation(fields.DatetimeLayout, *at, time.Local)
		if err != nil {
			return fmt.Errorf("at: %s", fields.MsgDatetime)
		}
		rec.Datetime = datetime
	}

	if err := a.requireAuth(ctx); err != nil {
		return err
	}
	created, err := a.bodyMetrics.CreateRecord(ctx, rec)
	if err != nil {
		return describeAPIError(err)
	}
	fmt.Fprintf(a.out, "created record %d\n", created.ID)
	return nil
}

func printPageFooter[T any](w io.Writer, page int, res api.Page[T]) {
	if page < 1 {
		page = 1
	}
	fmt.Fprintf(w, "page %d, %d total", page, res.Count)
	if res.HasMore() {
		fmt.Fprintf(w, ", next: -page %d", res.NextPage())
	}
	fmt.Fprintln(w)
}

// describeAPIError appends the backend's per-field messages, if any.
func describeAPIError(err error) error {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	fieldErrs := apiErr.FieldErrors()
	if len(fieldErrs) == 0 {
		return err
	}

	names := make([]string, 0, len(fieldErrs))
	for name := range fieldErrs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(fieldErrs[name], " ")))
	}
	return fmt.Errorf("%w (%s)", err, strings.Join(parts, "; "))
}

func displayName(auth session.AuthData) string {
	if auth.User == nil {
		return "unknown user"
	}
	if auth.User.Username != "" {
		return auth.User.Username
	}
	return auth.User.Display
}

func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
