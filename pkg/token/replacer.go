package token

import (
	"strings"
)

// Replacer substitutes %Key% placeholders in a single left-to-right pass.
// Inserted values are never rescanned and unknown placeholders stay as
// written.
type Replacer struct {
	caseInsensitive bool
	escape          func(string) string
}

type ReplacerOption func(*Replacer)

// WithCaseInsensitiveKeys matches placeholder keys ignoring case.
func WithCaseInsensitiveKeys(enabled bool) ReplacerOption {
	return func(r *Replacer) {
		r.caseInsensitive = enabled
	}
}

// WithLiteralEscaper runs every inserted value through escape after HTML
// encoding, so a value can never introduce template actions. Markup in an
// unencoded value still reaches the next pass as markup.
func WithLiteralEscaper(escape func(string) string) ReplacerOption {
	return func(r *Replacer) {
		r.escape = escape
	}
}

func NewReplacer(opts ...ReplacerOption) *Replacer {
	r := &Replacer{}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Replacer) normalize(key string) string {
	if r.caseInsensitive {
		return strings.ToLower(key)
	}
	return key
}

// Replace returns text with every known placeholder replaced by its token's
// value, encoded according to ShouldEncode.
func (r *Replacer) Replace(text string, tokens []Token, encode bool) string {
	if len(tokens) == 0 || !strings.Contains(text, "%") {
		return text
	}

	values := make(map[string]string, len(tokens))
	for _, t := range tokens {
		v := t.Encoded(encode)
		if r.escape != nil {
			v = r.escape(v)
		}
		values[r.normalize(t.Key)] = v
	}

	var b strings.Builder
	b.Grow(len(text))

	rest := text
	for {
		open := strings.IndexByte(rest, '%')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		closing := strings.IndexByte(rest[open+1:], '%')
		if closing < 0 {
			b.WriteString(rest)
			break
		}
		closing += open + 1

		key := rest[open+1 : closing]
		if v, ok := values[r.normalize(key)]; ok && key != "" {
			b.WriteString(rest[:open])
			b.WriteString(v)
			rest = rest[closing+1:]
			continue
		}

		// Not a known key: keep the opening '%' and resume at the closing
		// one, which may start the next placeholder ("100% %Order.Total%").
		b.WriteString(rest[:closing])
		rest = rest[closing:]
	}

	return b.String()
}
