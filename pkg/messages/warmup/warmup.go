// Package warmup compiles every active message template ahead of time so the
// first real message of each kind does not pay for compilation.
package warmup

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Abraxas-365/courier/pkg/asyncx"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/metrics"
	"github.com/Abraxas-365/courier/pkg/render"
	"github.com/google/uuid"
)

const (
	// TaskName is the name the task is scheduled under.
	TaskName = "Precompile message templates"

	// JobType is the on-demand job type that runs the task.
	JobType = "messages.warmup"

	DefaultInterval = 60 * time.Second
)

const (
	titleStarted   = "Message template warm-up started"
	titleCompleted = "Message template warm-up completed"
	titleFailed    = "Message template warm-up completed with errors"
)

// Task renders every active template of every store in every published
// language of that store, against a placeholder model.
type Task struct {
	stores    messages.StoreDirectory
	templates messages.TemplateStore
	languages messages.LanguageStore
	renderer  *render.Renderer
	settings  messages.SettingStore
	sink      messages.LogSink
	history   *RunHistory
	now       func() time.Time
}

type Option func(*Task)

func WithHistory(h *RunHistory) Option {
	return func(t *Task) {
		t.history = h
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Task) {
		t.now = now
	}
}

func NewTask(
	stores messages.StoreDirectory,
	templates messages.TemplateStore,
	languages messages.LanguageStore,
	renderer *render.Renderer,
	settings messages.SettingStore,
	sink messages.LogSink,
	opts ...Option,
) *Task {
	t := &Task{
		stores:    stores,
		templates: templates,
		languages: languages,
		renderer:  renderer,
		settings:  settings,
		sink:      sink,
		history:   NewRunHistory(0),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Task) History() *RunHistory {
	return t.history
}

// Execute runs one sweep. Failures end up in the run log, never in the
// returned error.
func (t *Task) Execute(ctx context.Context) error {
	t.Run(ctx)
	return nil
}

// Run performs one sweep and returns its log. It never panics: a panic in a
// collaborator, the settings store and log sink included, ends up in the
// run's Error.
func (t *Task) Run(ctx context.Context) (run *Run) {
	run = &Run{ID: uuid.New(), StartedAt: t.now()}
	start := time.Now()
	logging := false

	defer func() {
		if p := recover(); p != nil {
			run.Error = fmt.Sprintf("panic: %v\n%s", p, debug.Stack())
		}
		run.FinishedAt = t.now()
		t.history.Add(run)

		metrics.WarmupRuns.Inc()
		metrics.WarmupFailures.Add(float64(run.Failures()))
		metrics.WarmupDuration.Observe(time.Since(start).Seconds())

		fields := logx.Fields{
			"run_id":   run.ID.String(),
			"lines":    len(run.Lines),
			"failures": run.Failures(),
		}
		if run.Error != "" {
			logx.WithFields(fields).Errorf("warmup: sweep aborted: %s", run.Error)
		} else {
			logx.WithFields(fields).Info("warmup: sweep finished")
		}

		if !logging {
			return
		}
		if run.Error != "" {
			t.record(ctx, logx.LevelError, titleFailed, run.Log())
			return
		}
		t.record(ctx, logx.LevelDebug, titleCompleted, run.Log())
	}()

	logging = t.settings.GetBool(ctx, messages.SettingWarmupLogging, false)
	if logging {
		t.record(ctx, logx.LevelDebug, titleStarted, "")
	}

	if err := t.sweep(ctx, run); err != nil {
		run.Error = err.Error()
	}
	return run
}

// record writes one entry to the log sink. Sink failures, panics included,
// are only logged.
func (t *Task) record(ctx context.Context, level logx.Level, title, details string) {
	defer func() {
		if p := recover(); p != nil {
			logx.WithField("panic", fmt.Sprint(p)).Warn("warmup: log sink panicked")
		}
	}()
	if err := t.sink.Log(ctx, level, title, details); err != nil {
		logx.WithError(err).Warn("warmup: failed to write log entry")
	}
}

type storeWork struct {
	templates []*messages.MessageTemplate
	languages []*messages.Language
}

func (t *Task) load(store *messages.Store) func(context.Context) (storeWork, error) {
	return func(ctx context.Context) (work storeWork, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("load store %d: panic: %v", store.ID, p)
			}
		}()

		templates, err := t.templates.GetAllTemplates(ctx, store.ID)
		if err != nil {
			return storeWork{}, fmt.Errorf("load templates: %w", err)
		}
		languages, err := t.languages.GetLanguages(ctx, store.ID)
		if err != nil {
			return storeWork{}, fmt.Errorf("load languages: %w", err)
		}

		active := templates[:0:0]
		for _, tmpl := range templates {
			if tmpl.IsActive {
				active = append(active, tmpl)
			}
		}
		return storeWork{templates: active, languages: languages}, nil
	}
}

func (t *Task) sweep(ctx context.Context, run *Run) error {
	stores, err := t.stores.GetAllStores(ctx)
	if err != nil {
		return fmt.Errorf("load stores: %w", err)
	}

	loaders := make([]func(context.Context) (storeWork, error), len(stores))
	for i, store := range stores {
		loaders[i] = t.load(store)
	}
	loaded := asyncx.AllSettled(ctx, loaders...)

	model := messages.PlaceholderModel()
	for i, store := range stores {
		if !loaded[i].OK() {
			run.Lines = append(run.Lines, LogLine{
				Time:    t.now(),
				StoreID: store.ID,
				Error:   loaded[i].Err.Error(),
			})
			continue
		}

		model.Store = store
		work := loaded[i].Value
		for _, tmpl := range work.templates {
			for _, lang := range work.languages {
				if err := ctx.Err(); err != nil {
					return err
				}
				run.Lines = append(run.Lines, t.warm(store, tmpl, lang, model))
			}
		}
	}
	return nil
}

// warm renders one template/language pair; a panic becomes the line's error.
func (t *Task) warm(store *messages.Store, tmpl *messages.MessageTemplate, lang *messages.Language, model *messages.Model) (line LogLine) {
	line = LogLine{
		Time:         t.now(),
		StoreID:      store.ID,
		TemplateID:   tmpl.ID,
		TemplateName: tmpl.Name,
		LanguageID:   lang.ID,
		LanguageName: lang.Name,
	}
	defer func() {
		if p := recover(); p != nil {
			line.Error = fmt.Sprint(p)
		}
	}()

	localized := tmpl.Localized(lang.ID)
	subject, body := t.renderer.RenderMessage(render.MessageRequest{
		Subject:  localized.Subject,
		Body:     localized.Body,
		Model:    model,
		CacheKey: tmpl.CacheIdentity(),
	})
	line.SubjectOK = subject.Success
	line.BodyOK = body.Success
	switch {
	case !subject.Success:
		line.Error = "subject: " + subject.Detail
	case !body.Success:
		line.Error = "body: " + body.Detail
	}
	return line
}
