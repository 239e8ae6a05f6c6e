package render

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/Abraxas-365/courier/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shop struct {
	Name string
}

type customer struct {
	FirstName string
	Email     string
}

type model struct {
	Store    *shop
	Customer *customer
}

func newModel() model {
	return model{
		Store:    &shop{Name: "Acme"},
		Customer: &customer{FirstName: "Ada", Email: "ada@example.com"},
	}
}

func TestRenderSubstitutesThenEvaluates(t *testing.T) {
	r := NewRenderer(NewCache(HTMLEngine{}))

	res := r.Render(Request{
		Text:     "Welcome to {{.Store.Name}}, %Customer.FirstName%!",
		Tokens:   []token.Token{token.New("Customer.FirstName", "Ada")},
		Model:    newModel(),
		CacheKey: "MailTemplate:1",
	})

	require.True(t, res.Success)
	assert.Equal(t, "Welcome to Acme, Ada!", res.Text)
	assert.Equal(t, ErrorNone, res.ErrorKind)
	assert.NoError(t, res.Err())
}

func TestRenderReusesCompiledTemplate(t *testing.T) {
	cache := NewCache(HTMLEngine{})
	r := NewRenderer(cache)
	req := Request{Text: "Hello {{.Customer.FirstName}}", Model: newModel(), CacheKey: "MailTemplate:1"}

	first := r.Render(req)
	second := r.Render(req)

	assert.Equal(t, first, second)
	stats := cache.Stats()
	assert.EqualValues(t, 1, stats.Compiles)
	assert.EqualValues(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Entries)
}

func TestRenderRecompilesEditedText(t *testing.T) {
	cache := NewCache(HTMLEngine{})
	r := NewRenderer(cache)

	r.Render(Request{Text: "Hello {{.Customer.FirstName}}", Model: newModel(), CacheKey: "MailTemplate:1"})
	res := r.Render(Request{Text: "Hi {{.Customer.FirstName}}", Model: newModel(), CacheKey: "MailTemplate:1"})

	assert.Equal(t, "Hi Ada", res.Text)
	assert.EqualValues(t, 2, cache.Stats().Compiles)
}

func TestRenderSeparatesIdentities(t *testing.T) {
	cache := NewCache(HTMLEngine{})
	r := NewRenderer(cache)
	text := "{{.Store.Name}}"

	r.Render(Request{Text: text, Model: newModel(), CacheKey: "MailTemplate:1"})
	r.Render(Request{Text: text, Model: newModel(), CacheKey: "MailTemplate:2"})

	assert.EqualValues(t, 2, cache.Stats().Compiles)
}

func TestRenderFailOpen(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind ErrorKind
	}{
		{"unclosed action", "Dear %Customer.FirstName%, {{.Store.Name", ErrorCompilation},
		{"unknown field", "Dear %Customer.FirstName%, {{.Store.Owner}}", ErrorExecution},
		{"unterminated attribute", `Dear %Customer.FirstName%, <a href="{{.Store.Name}}`, ErrorCompilation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(NewCache(HTMLEngine{}))

			var res Result
			assert.NotPanics(t, func() {
				res = r.Render(Request{
					Text:     tt.text,
					Tokens:   []token.Token{token.New("Customer.FirstName", "Ada")},
					Model:    newModel(),
					CacheKey: "MailTemplate:9",
				})
			})

			substituted := strings.Replace(tt.text, "%Customer.FirstName%", "Ada", 1)
			assert.False(t, res.Success)
			assert.Equal(t, tt.kind, res.ErrorKind)
			assert.True(t, strings.HasPrefix(res.Text, substituted))
			assert.Contains(t, res.Text, tt.kind.marker())
			assert.NotEmpty(t, res.Detail)
			assert.Equal(t, substituted, res.Output(false))
			assert.Equal(t, res.Text, res.Output(true))
			assert.Error(t, res.Err())
		})
	}
}

func TestCompileErrorsAreNotCached(t *testing.T) {
	cache := NewCache(HTMLEngine{})
	r := NewRenderer(cache)
	req := Request{Text: "{{if}}", CacheKey: "MailTemplate:3"}

	r.Render(req)
	r.Render(req)

	stats := cache.Stats()
	assert.EqualValues(t, 0, stats.Compiles)
	assert.EqualValues(t, 2, stats.CompileErrors)
	assert.Equal(t, 0, stats.Entries)
}

func TestRenderMessageEncodesBodyOnly(t *testing.T) {
	r := NewRenderer(NewCache(HTMLEngine{}))
	tokens := []token.Token{
		token.New("Customer.FullName", "Tom & Jerry"),
		token.NewRaw("Order.Product(s)", "<table></table>"),
	}

	subject, body := r.RenderMessage(MessageRequest{
		Subject:  "Order for %Customer.FullName%",
		Body:     "<p>%Customer.FullName%</p>%Order.Product(s)%",
		Tokens:   tokens,
		Model:    newModel(),
		CacheKey: "MailTemplate:4",
	})

	assert.Equal(t, "Order for Tom & Jerry", subject.Text)
	assert.Equal(t, "<p>Tom &amp; Jerry</p><table></table>", body.Text)
}

func TestRenderMessageSubjectFailureDoesNotBlockBody(t *testing.T) {
	r := NewRenderer(NewCache(HTMLEngine{}))

	subject, body := r.RenderMessage(MessageRequest{
		Subject:  "{{.Store.Name",
		Body:     "Thanks from {{.Store.Name}}",
		Model:    newModel(),
		CacheKey: "MailTemplate:5",
	})

	assert.False(t, subject.Success)
	assert.True(t, body.Success)
	assert.Equal(t, "Thanks from Acme", body.Text)
}

func TestRenderMessageSubjectIsPlainText(t *testing.T) {
	cache := NewCache(HTMLEngine{})
	r := NewRenderer(cache)
	m := newModel()
	m.Customer.FirstName = "O'Brien"

	subject, body := r.RenderMessage(MessageRequest{
		Subject:  "Hello %Customer.FirstName%, {{.Customer.FirstName}}",
		Body:     "<p>Hello %Customer.FirstName% from {{.Store.Name}}</p>",
		Tokens:   []token.Token{token.New("Customer.FirstName", "<Ada")},
		Model:    m,
		CacheKey: "MailTemplate:9",
	})

	require.True(t, subject.Success, subject.Detail)
	assert.Equal(t, "Hello <Ada, O'Brien", subject.Text)
	require.True(t, body.Success, body.Detail)
	assert.Equal(t, "<p>Hello &lt;Ada from Acme</p>", body.Text)
	assert.Equal(t, 2, cache.Len())
}

func TestBalancedMarkup(t *testing.T) {
	assert.True(t, BalancedMarkup("<i>look</i>"))
	assert.True(t, BalancedMarkup("plain {{ braces"))
	assert.False(t, BalancedMarkup(`see <a href="x`))
	assert.False(t, BalancedMarkup("<Ada"))
}

func TestTokenValuesAreNeverEvaluated(t *testing.T) {
	r := NewRenderer(NewCache(HTMLEngine{}))

	res := r.Render(Request{
		Text:     "Note: %Note%",
		Tokens:   []token.Token{token.New("Note", "{{.Customer.Email}}")},
		Model:    newModel(),
		CacheKey: "MailTemplate:6",
	})

	require.True(t, res.Success, res.Detail)
	assert.Equal(t, "Note: {{.Customer.Email}}", res.Text)
}

func TestCaseInsensitiveKeys(t *testing.T) {
	r := NewRenderer(NewCache(TextEngine{}), WithCaseInsensitiveKeys(true))

	res := r.Render(Request{
		Text:   "%store.name%",
		Tokens: []token.Token{token.New("Store.Name", "Acme")},
	})

	assert.Equal(t, "Acme", res.Text)
}

func TestHelperFuncs(t *testing.T) {
	r := NewRenderer(NewCache(TextEngine{}))

	res := r.Render(Request{
		Text:  `{{upper .Store.Name}} {{default "n/a" .Customer.FirstName}} {{money 12.5 "EUR"}}`,
		Model: model{Store: &shop{Name: "acme"}, Customer: &customer{}},
	})

	require.True(t, res.Success, res.Detail)
	assert.Equal(t, "ACME n/a 12.50 EUR", res.Text)
}

type panicEngine struct{ HTMLEngine }

type panicEvaluator struct{}

func (panicEvaluator) Execute(io.Writer, any) error { panic("engine blew up") }

func (panicEngine) Compile(string, string) (Evaluator, error) { return panicEvaluator{}, nil }

func TestRenderRecoversEnginePanics(t *testing.T) {
	r := NewRenderer(NewCache(panicEngine{}))

	res := r.Render(Request{Text: "x %A%", Tokens: []token.Token{token.New("A", "1")}, CacheKey: "k"})

	assert.False(t, res.Success)
	assert.Equal(t, ErrorExecution, res.ErrorKind)
	assert.Equal(t, "x 1"+ExecutionMarker+"panic: engine blew up", res.Text)
}

func TestCacheConcurrentResolveCompilesOnce(t *testing.T) {
	cache := NewCache(HTMLEngine{})

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eval, err := cache.Resolve("MailTemplate:7", "{{.Store.Name}}")
			assert.NoError(t, err)
			assert.NotNil(t, eval)
		}()
	}
	wg.Wait()

	stats := cache.Stats()
	assert.EqualValues(t, 1, stats.Compiles)
	assert.Equal(t, 1, stats.Entries)
}

func TestCacheReset(t *testing.T) {
	cache := NewCache(nil)
	_, err := cache.Resolve("k", "text")
	require.NoError(t, err)

	cache.Reset()

	assert.Equal(t, Stats{Engine: "html"}, cache.Stats())
}

func TestKeyIsContentAddressed(t *testing.T) {
	assert.Equal(t, Key("MailTemplate:1", "a"), Key("MailTemplate:1", "a"))
	assert.NotEqual(t, Key("MailTemplate:1", "a"), Key("MailTemplate:1", "b"))
	assert.True(t, strings.HasPrefix(Key("MailTemplate:1", "a"), "MailTemplate:1:"))
	assert.Len(t, Hash("a"), 64)
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine("TEXT")
	require.NoError(t, err)
	assert.Equal(t, "text", e.Name())

	_, err = NewEngine("razor")
	assert.Error(t, err)
}
