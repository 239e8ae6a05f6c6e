package render

import (
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"reflect"
	"strings"
	texttemplate "text/template"
	"time"
)

// Evaluator is a compiled template, safe for concurrent use.
type Evaluator interface {
	Execute(w io.Writer, model any) error
}

// Engine compiles template text into evaluators.
type Engine interface {
	Name() string
	Compile(name, text string) (Evaluator, error)

	// Escape makes s render literally when embedded in template text.
	Escape(s string) string
}

// NewEngine returns the engine registered under name ("html" or "text").
func NewEngine(name string) (Engine, error) {
	switch strings.ToLower(name) {
	case "", "html":
		return HTMLEngine{}, nil
	case "text":
		return TextEngine{}, nil
	default:
		return nil, renderErrors.New(ErrEngine).WithDetail("engine", name)
	}
}

// Funcs available to every message template.
var Funcs = map[string]any{
	"default": func(def, v any) any {
		if v == nil {
			return def
		}
		rv := reflect.ValueOf(v)
		if rv.IsZero() {
			return def
		}
		return v
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"date": func(layout string, t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(layout)
	},
	"money": func(amount float64, currency string) string {
		return strings.TrimSpace(fmt.Sprintf("%.2f %s", amount, currency))
	},
}

func escapeDelims(s string) string {
	return strings.ReplaceAll(s, "{{", `{{"{{"}}`)
}

// HTMLEngine compiles with html/template, escaping model output for the
// context it appears in. Missing map keys are errors.
type HTMLEngine struct{}

func (HTMLEngine) Name() string { return "html" }

func (HTMLEngine) Compile(name, text string) (Evaluator, error) {
	t, err := htmltemplate.New(name).
		Option("missingkey=error").
		Funcs(htmltemplate.FuncMap(Funcs)).
		Parse(text)
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	return htmlEvaluator{t: t}, nil
}

func (HTMLEngine) Escape(s string) string { return escapeDelims(s) }

type htmlEvaluator struct {
	t *htmltemplate.Template
}

// Execute reports contextual escaping failures, which html/template only
// detects on first execution, as compile errors.
func (e htmlEvaluator) Execute(w io.Writer, model any) error {
	err := e.t.Execute(w, model)
	var escErr *htmltemplate.Error
	if errors.As(err, &escErr) {
		return &CompileError{Err: err}
	}
	return err
}

// BalancedMarkup reports whether s can be inserted raw into an HTML body
// without leaving html/template inside a tag, attribute or comment.
func BalancedMarkup(s string) bool {
	t, err := htmltemplate.New("fragment").Parse(escapeDelims(s))
	if err != nil {
		return false
	}
	return t.Execute(io.Discard, nil) == nil
}

// TextEngine compiles with text/template; output is not escaped.
type TextEngine struct{}

func (TextEngine) Name() string { return "text" }

func (TextEngine) Compile(name, text string) (Evaluator, error) {
	t, err := texttemplate.New(name).
		Option("missingkey=error").
		Funcs(texttemplate.FuncMap(Funcs)).
		Parse(text)
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	return t, nil
}

func (TextEngine) Escape(s string) string { return escapeDelims(s) }
