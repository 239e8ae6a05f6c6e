// Package token holds the flat key/value substitution layer of message
// rendering: tokens, ordered token lists and the %Key% replacer.
package token

import (
	"html"

	"github.com/Abraxas-365/courier/pkg/errx"
)

var tokenErrors = errx.NewRegistry("TOKEN")

var ErrEmptyKey = tokenErrors.Register("EMPTY_KEY", errx.TypeValidation, 400, "Token key must not be empty")

// Token is an immutable named substitution value.
type Token struct {
	Key   string `json:"key"`
	Value string `json:"value"`

	// NeverHTMLEncoded opts the value out of HTML encoding in passes that
	// encode by default (pre-rendered markup, URLs).
	NeverHTMLEncoded bool `json:"never_html_encoded,omitempty"`
}

// New returns a token whose value follows the pass-level encoding policy.
func New(key, value string) Token {
	return Token{Key: key, Value: value}
}

// NewRaw returns a token that is inserted verbatim even in encoding passes.
// The value is trusted markup: an unclosed tag or attribute in it breaks the
// HTML template it lands in.
func NewRaw(key, value string) Token {
	return Token{Key: key, Value: value, NeverHTMLEncoded: true}
}

// ShouldEncode decides whether t is HTML encoded in a pass. A pass that does
// not encode never encodes; a pass that encodes does so unless the token
// opted out.
func ShouldEncode(passEncodes bool, t Token) bool {
	return passEncodes && !t.NeverHTMLEncoded
}

// Encoded returns the value as it is inserted by a pass.
func (t Token) Encoded(passEncodes bool) string {
	if ShouldEncode(passEncodes, t) {
		return html.EscapeString(t.Value)
	}
	return t.Value
}
