package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldEncode(t *testing.T) {
	tests := []struct {
		name        string
		passEncodes bool
		token       Token
		want        bool
	}{
		{"subject pass never encodes", false, New("k", "<b>"), false},
		{"subject pass with raw token", false, NewRaw("k", "<b>"), false},
		{"body pass encodes by default", true, New("k", "<b>"), true},
		{"body pass respects opt-out", true, NewRaw("k", "<b>"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldEncode(tt.passEncodes, tt.token))
		})
	}
}

func TestListLastWriteWinsKeepsPosition(t *testing.T) {
	l := NewList(New("A", "1"), New("B", "2"))
	require.NoError(t, l.Add(New("A", "3")))

	assert.Equal(t, []Token{New("A", "3"), New("B", "2")}, l.Tokens())
	assert.Equal(t, 2, l.Len())

	got, ok := l.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "3", got.Value)
}

func TestListRejectsEmptyKey(t *testing.T) {
	l := NewList()
	err := l.Add(New("", "x"), New("B", "2"))

	assert.Error(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestNewListSkipsEmptyKeys(t *testing.T) {
	l := NewList(New("", "x"), New("B", "2"))

	assert.Equal(t, []Token{New("B", "2")}, l.Tokens())
	_, ok := l.Get("")
	assert.False(t, ok)
}

func TestReplaceIdentityWithoutPlaceholders(t *testing.T) {
	r := NewReplacer()
	tokens := []Token{New("Store.Name", "Acme"), New("Customer.Email", "a@b.c")}

	for _, text := range []string{
		"",
		"plain text",
		"50% off",
		"%Unknown% and %Other%",
		"100%% sure",
		"{{.Store.Name}} <b>%</b>",
	} {
		assert.Equal(t, text, r.Replace(text, tokens, true), text)
		assert.Equal(t, text, r.Replace(text, tokens, false), text)
	}
}

func TestReplaceBodyEncoding(t *testing.T) {
	r := NewReplacer()
	tokens := []Token{
		New("Customer.FullName", "Tom & <Jerry>"),
		NewRaw("Order.Products", "<table><tr><td>x</td></tr></table>"),
	}
	text := "Hi %Customer.FullName%: %Order.Products%"

	assert.Equal(t,
		"Hi Tom &amp; &lt;Jerry&gt;: <table><tr><td>x</td></tr></table>",
		r.Replace(text, tokens, true))
	assert.Equal(t,
		"Hi Tom & <Jerry>: <table><tr><td>x</td></tr></table>",
		r.Replace(text, tokens, false))
}

func TestReplaceIsSinglePass(t *testing.T) {
	r := NewReplacer()
	tokens := []Token{New("A", "%B%"), New("B", "nope")}

	assert.Equal(t, "%B% / nope", r.Replace("%A% / %B%", tokens, false))
}

func TestReplaceStrayPercentBeforePlaceholder(t *testing.T) {
	r := NewReplacer()
	tokens := []Token{New("Order.Total", "$10")}

	assert.Equal(t, "save 100% $10", r.Replace("save 100% %Order.Total%", tokens, false))
}

func TestReplaceCaseInsensitive(t *testing.T) {
	tokens := []Token{New("Store.Name", "Acme")}

	assert.Equal(t, "%store.name%", NewReplacer().Replace("%store.name%", tokens, false))
	assert.Equal(t, "Acme", NewReplacer(WithCaseInsensitiveKeys(true)).Replace("%store.name%", tokens, false))
}

func TestReplaceEscapesLiterals(t *testing.T) {
	escape := func(s string) string { return strings.ReplaceAll(s, "{{", "[[") }
	r := NewReplacer(WithLiteralEscaper(escape))

	got := r.Replace("Note: %Note%", []Token{New("Note", "{{.Secret}}")}, false)
	assert.Equal(t, "Note: [[.Secret}}", got)
}
