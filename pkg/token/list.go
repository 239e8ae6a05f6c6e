package token

// List is an ordered token collection. Adding a key that is already present
// replaces its value and keeps its original position.
type List struct {
	tokens []Token
	index  map[string]int
}

// NewList returns a list holding tokens. Tokens with an empty key are
// skipped; use Add to have them reported.
func NewList(tokens ...Token) *List {
	l := &List{index: make(map[string]int)}
	_ = l.Add(tokens...)
	return l
}

// Add appends tokens. Tokens with an empty key are skipped and reported.
func (l *List) Add(tokens ...Token) error {
	var err error
	for _, t := range tokens {
		if t.Key == "" {
			err = tokenErrors.New(ErrEmptyKey).WithDetail("value", t.Value)
			continue
		}
		if i, ok := l.index[t.Key]; ok {
			l.tokens[i] = t
			continue
		}
		l.index[t.Key] = len(l.tokens)
		l.tokens = append(l.tokens, t)
	}
	return err
}

// Tokens returns a copy of the tokens in insertion order.
func (l *List) Tokens() []Token {
	if l == nil {
		return nil
	}
	out := make([]Token, len(l.tokens))
	copy(out, l.tokens)
	return out
}

func (l *List) Get(key string) (Token, bool) {
	if l == nil {
		return Token{}, false
	}
	i, ok := l.index[key]
	if !ok {
		return Token{}, false
	}
	return l.tokens[i], true
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.tokens)
}
