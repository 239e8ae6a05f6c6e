package warmup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/messages/messagesinfra"
	"github.com/Abraxas-365/courier/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	stores    *messagesinfra.MemoryStoreDirectory
	templates *messagesinfra.MemoryTemplateStore
	languages *messagesinfra.MemoryLanguageStore
	settings  *messagesinfra.MemorySettingStore
	sink      *messagesinfra.MemoryLogSink
	cache     *render.Cache
}

func template(id kernel.TemplateID, store kernel.StoreID) *messages.MessageTemplate {
	return &messages.MessageTemplate{
		ID:       id,
		Name:     fmt.Sprintf("Template.%d", id),
		IsActive: true,
		StoreIDs: []kernel.StoreID{store},
		Subject:  fmt.Sprintf("Subject %d from {{.Store.Name}}", id),
		Body:     fmt.Sprintf("<p>Body %d for {{.Customer.FirstName}}</p>", id),
	}
}

// newFixture builds two stores with three active templates each and two
// published languages. Template 1 carries a malformed Spanish body.
func newFixture() *fixture {
	broken := template(1, 1)
	broken.Locales = map[kernel.LanguageID]messages.LocalizedTemplate{
		2: {Body: "<p>Hola {{.Customer.FirstName</p>"},
	}
	inactive := template(7, 1)
	inactive.IsActive = false

	return &fixture{
		stores: messagesinfra.NewMemoryStoreDirectory(
			&messages.Store{ID: 1, Name: "Acme", DisplayOrder: 1},
			&messages.Store{ID: 2, Name: "Globex", DisplayOrder: 2},
		),
		templates: messagesinfra.NewMemoryTemplateStore(
			broken, template(2, 1), template(3, 1),
			template(4, 2), template(5, 2), template(6, 2),
			inactive,
		),
		languages: messagesinfra.NewMemoryLanguageStore(
			&messages.Language{ID: 1, Name: "English", Published: true, DisplayOrder: 1},
			&messages.Language{ID: 2, Name: "Spanish", Published: true, DisplayOrder: 2},
			&messages.Language{ID: 3, Name: "German", Published: false, DisplayOrder: 3},
		),
		settings: messagesinfra.NewMemorySettingStore(nil),
		sink:     messagesinfra.NewMemoryLogSink(),
		cache:    render.NewCache(render.HTMLEngine{}),
	}
}

func (f *fixture) task() *Task {
	return NewTask(f.stores, f.templates, f.languages, render.NewRenderer(f.cache), f.settings, f.sink)
}

func linesFor(run *Run, store kernel.StoreID) []LogLine {
	var out []LogLine
	for _, l := range run.Lines {
		if l.StoreID == store {
			out = append(out, l)
		}
	}
	return out
}

func failures(lines []LogLine) int {
	n := 0
	for _, l := range lines {
		if l.Failed() {
			n++
		}
	}
	return n
}

func TestSweepIsolatesTheMalformedTemplate(t *testing.T) {
	f := newFixture()

	run := f.task().Run(context.Background())

	require.Empty(t, run.Error)
	require.Len(t, run.Lines, 12)
	assert.Equal(t, 1, run.Failures())

	acme := linesFor(run, 1)
	require.Len(t, acme, 6)
	assert.Equal(t, 1, failures(acme))

	globex := linesFor(run, 2)
	require.Len(t, globex, 6)
	assert.Zero(t, failures(globex))

	for _, l := range run.Lines {
		if !l.Failed() {
			continue
		}
		assert.Equal(t, kernel.TemplateID(1), l.TemplateID)
		assert.Equal(t, kernel.LanguageID(2), l.LanguageID)
		assert.True(t, l.SubjectOK)
		assert.False(t, l.BodyOK)
		assert.Contains(t, l.Error, "body: ")
	}
}

func TestSecondSweepCompilesNothing(t *testing.T) {
	f := newFixture()
	task := f.task()

	task.Run(context.Background())
	first := f.cache.Stats()
	// Six subjects and six bodies compile; the malformed body never does.
	assert.Equal(t, int64(12), first.Compiles)
	assert.Equal(t, int64(1), first.CompileErrors)

	task.Run(context.Background())
	second := f.cache.Stats()
	assert.Equal(t, first.Compiles, second.Compiles)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Greater(t, second.Hits, first.Hits)
	// Failed compilations are not cached, so the malformed body is tried again.
	assert.Equal(t, int64(2), second.CompileErrors)
}

func TestSweepKeepsHistory(t *testing.T) {
	f := newFixture()
	task := f.task()

	a := task.Run(context.Background())
	b := task.Run(context.Background())

	runs := task.History().List()
	require.Len(t, runs, 2)
	assert.Equal(t, b.ID, runs[0].ID)
	assert.Equal(t, a.ID, runs[1].ID)

	got, ok := task.History().Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestHistoryIsBounded(t *testing.T) {
	h := NewRunHistory(2)
	for i := 0; i < 5; i++ {
		h.Add(&Run{Lines: make([]LogLine, i)})
	}
	runs := h.List()
	require.Len(t, runs, 2)
	assert.Len(t, runs[0].Lines, 4)
	assert.Len(t, runs[1].Lines, 3)
}

func TestLoggingDisabledWritesNothing(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.task().Execute(context.Background()))
	assert.Empty(t, f.sink.Records())
}

func TestLoggingEnabledWritesStartAndCompletion(t *testing.T) {
	f := newFixture()
	f.settings.Set(messages.SettingWarmupLogging, true)

	require.NoError(t, f.task().Execute(context.Background()))

	records := f.sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, logx.LevelDebug, records[0].Level)
	assert.Equal(t, titleStarted, records[0].Title)
	assert.Equal(t, logx.LevelDebug, records[1].Level)
	assert.Equal(t, titleCompleted, records[1].Title)
	assert.Contains(t, records[1].Details, "template Template.1 (id 1) language Spanish (id 2)")
}

type failingStores struct {
	*messagesinfra.MemoryStoreDirectory
}

func (failingStores) GetAllStores(context.Context) ([]*messages.Store, error) {
	return nil, errors.New("connection reset")
}

func TestAbortedSweepIsLoggedAsError(t *testing.T) {
	f := newFixture()
	f.settings.Set(messages.SettingWarmupLogging, true)
	task := NewTask(failingStores{f.stores}, f.templates, f.languages, render.NewRenderer(f.cache), f.settings, f.sink)

	require.NoError(t, task.Execute(context.Background()))

	records := f.sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, logx.LevelError, records[1].Level)
	assert.Equal(t, titleFailed, records[1].Title)
	assert.Contains(t, records[1].Details, "connection reset")
	assert.False(t, task.History().List()[0].OK())
}

type panickingTemplates struct {
	*messagesinfra.MemoryTemplateStore
}

func (panickingTemplates) GetAllTemplates(context.Context, kernel.StoreID) ([]*messages.MessageTemplate, error) {
	panic("driver bug")
}

func TestLoaderPanicIsRecordedPerStore(t *testing.T) {
	f := newFixture()
	task := NewTask(f.stores, panickingTemplates{f.templates}, f.languages, render.NewRenderer(f.cache), f.settings, f.sink)

	var run *Run
	assert.NotPanics(t, func() { run = task.Run(context.Background()) })
	require.NotNil(t, run)
	assert.Empty(t, run.Error)
	require.Len(t, run.Lines, 2)
	for _, l := range run.Lines {
		assert.Contains(t, l.Error, "driver bug")
	}
}

type panickingStores struct {
	*messagesinfra.MemoryStoreDirectory
}

func (panickingStores) GetAllStores(context.Context) ([]*messages.Store, error) {
	panic("nil pointer")
}

func TestSweepPanicIsContained(t *testing.T) {
	f := newFixture()
	task := NewTask(panickingStores{f.stores}, f.templates, f.languages, render.NewRenderer(f.cache), f.settings, f.sink)

	var run *Run
	assert.NotPanics(t, func() { run = task.Run(context.Background()) })
	require.NotNil(t, run)
	assert.Contains(t, run.Error, "nil pointer")
	assert.Len(t, task.History().List(), 1)
}

type brokenLanguages struct {
	*messagesinfra.MemoryLanguageStore
}

func (b brokenLanguages) GetLanguages(ctx context.Context, store kernel.StoreID) ([]*messages.Language, error) {
	if store == 2 {
		return nil, errors.New("timeout")
	}
	return b.MemoryLanguageStore.GetLanguages(ctx, store)
}

func TestFailedStoreLoadSkipsOnlyThatStore(t *testing.T) {
	f := newFixture()
	task := NewTask(f.stores, f.templates, brokenLanguages{f.languages}, render.NewRenderer(f.cache), f.settings, f.sink)

	run := task.Run(context.Background())

	require.Empty(t, run.Error)
	assert.Len(t, linesFor(run, 1), 6)
	globex := linesFor(run, 2)
	require.Len(t, globex, 1)
	assert.Contains(t, globex[0].Error, "timeout")
	assert.Equal(t, 2, run.Failures())
}

type panickingSink struct{}

func (panickingSink) Log(context.Context, logx.Level, string, string) error {
	panic("log table missing")
}

func TestPanickingSinkDoesNotEscape(t *testing.T) {
	f := newFixture()
	f.settings.Set(messages.SettingWarmupLogging, true)
	task := NewTask(f.stores, f.templates, f.languages, render.NewRenderer(f.cache), f.settings, panickingSink{})

	assert.NotPanics(t, func() {
		require.NoError(t, task.Execute(context.Background()))
	})

	runs := task.History().List()
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].Error)
	assert.Len(t, runs[0].Lines, 12)
}

type panickingSettings struct{}

func (panickingSettings) GetBool(context.Context, string, bool) bool {
	panic("settings unavailable")
}

func TestPanickingSettingsAbortTheRun(t *testing.T) {
	f := newFixture()
	task := NewTask(f.stores, f.templates, f.languages, render.NewRenderer(f.cache), panickingSettings{}, f.sink)

	var run *Run
	assert.NotPanics(t, func() { run = task.Run(context.Background()) })
	require.NotNil(t, run)
	assert.Contains(t, run.Error, "settings unavailable")
	assert.Len(t, task.History().List(), 1)
	assert.Empty(t, f.sink.Records())
}
