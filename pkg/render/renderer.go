package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Abraxas-365/courier/pkg/metrics"
	"github.com/Abraxas-365/courier/pkg/token"
)

// Markers prefixed to the diagnostic appended to a failed render.
const (
	CompilationMarker = "TemplateCompilationError: "
	ExecutionMarker   = "TemplateExecutionError: "
)

type ErrorKind string

const (
	ErrorNone        ErrorKind = ""
	ErrorCompilation ErrorKind = "compilation"
	ErrorExecution   ErrorKind = "execution"
)

func (k ErrorKind) marker() string {
	if k == ErrorCompilation {
		return CompilationMarker
	}
	return ExecutionMarker
}

// Result is the outcome of one render. A failed render still carries text:
// the substituted input followed by a marker and the error detail.
type Result struct {
	Text        string    `json:"text"`
	Success     bool      `json:"success"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Substituted string    `json:"-"`
}

// Output returns the text to deliver. With embedErrors false a failed render
// yields the substituted text without diagnostics.
func (r Result) Output(embedErrors bool) string {
	if r.Success || embedErrors {
		return r.Text
	}
	return r.Substituted
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	switch r.ErrorKind {
	case ErrorNone:
		return nil
	case ErrorCompilation:
		return renderErrors.New(ErrCompile).WithDetail("detail", r.Detail)
	default:
		return renderErrors.New(ErrExecute).WithDetail("detail", r.Detail)
	}
}

func failed(substituted string, kind ErrorKind, detail string) Result {
	metrics.Renders.WithLabelValues(string(kind)).Inc()
	return Result{
		Text:        substituted + kind.marker() + detail,
		ErrorKind:   kind,
		Detail:      detail,
		Substituted: substituted,
	}
}

// Request is a single text to render.
type Request struct {
	Text         string
	Tokens       []token.Token
	EncodeTokens bool
	Model        any

	// Plain compiles the text with text/template. Output is not escaped and
	// markup in values cannot change how the rest of the text is parsed.
	Plain bool

	// CacheKey is the template identity the compiled text is cached under.
	CacheKey string
}

type Option func(*Renderer)

func WithCaseInsensitiveKeys(enabled bool) Option {
	return func(r *Renderer) {
		r.caseInsensitive = enabled
	}
}

// Renderer runs token substitution followed by template evaluation. It never
// returns an error: failures are reported in the Result.
type Renderer struct {
	cache           *Cache
	replacer        *token.Replacer
	caseInsensitive bool
}

func NewRenderer(cache *Cache, opts ...Option) *Renderer {
	r := &Renderer{cache: cache}
	for _, o := range opts {
		o(r)
	}
	r.replacer = token.NewReplacer(
		token.WithCaseInsensitiveKeys(r.caseInsensitive),
		token.WithLiteralEscaper(cache.Engine().Escape),
	)
	return r
}

func (r *Renderer) Cache() *Cache {
	return r.cache
}

func (r *Renderer) Render(req Request) (res Result) {
	substituted := req.Text
	defer func() {
		if p := recover(); p != nil {
			res = failed(substituted, ErrorExecution, fmt.Sprintf("panic: %v", p))
		}
	}()

	substituted = r.replacer.Replace(req.Text, req.Tokens, req.EncodeTokens)

	resolve := r.cache.Resolve
	if req.Plain {
		resolve = r.cache.ResolvePlain
	}
	eval, err := resolve(req.CacheKey, substituted)
	if err != nil {
		return failed(substituted, ErrorCompilation, err.Error())
	}

	var buf bytes.Buffer
	if err := eval.Execute(&buf, req.Model); err != nil {
		kind := ErrorExecution
		var ce *CompileError
		if errors.As(err, &ce) {
			kind = ErrorCompilation
		}
		return failed(substituted, kind, err.Error())
	}

	metrics.Renders.WithLabelValues("ok").Inc()
	return Result{
		Text:        buf.String(),
		Success:     true,
		Substituted: substituted,
	}
}

// MessageRequest is a subject and body rendered against the same tokens and
// model.
type MessageRequest struct {
	Subject  string
	Body     string
	Tokens   []token.Token
	Model    any
	CacheKey string
}

// RenderMessage renders subject and body independently; a failing subject
// does not prevent the body from rendering. The subject is plain text and
// never escaped. Token values are HTML encoded in the body only.
func (r *Renderer) RenderMessage(req MessageRequest) (subject, body Result) {
	subject = r.Render(Request{
		Text:         req.Subject,
		Tokens:       req.Tokens,
		EncodeTokens: false,
		Plain:        true,
		Model:        req.Model,
		CacheKey:     req.CacheKey,
	})
	body = r.Render(Request{
		Text:         req.Body,
		Tokens:       req.Tokens,
		EncodeTokens: true,
		Model:        req.Model,
		CacheKey:     req.CacheKey,
	})
	return subject, body
}
