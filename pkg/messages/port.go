package messages

import (
	"context"
	"time"

	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/token"
)

// Lookups by id return (nil, nil) when nothing matches; errors are reserved
// for storage failures.

// TemplateStore reads message templates.
type TemplateStore interface {
	// GetActiveTemplate returns the template named name that is available
	// in store, active or not. Callers decide what an inactive template means.
	GetActiveTemplate(ctx context.Context, name string, store kernel.StoreID) (*MessageTemplate, error)

	// GetAllTemplates returns every template available in store (0 = all).
	GetAllTemplates(ctx context.Context, store kernel.StoreID) ([]*MessageTemplate, error)
}

// LanguageStore reads languages.
type LanguageStore interface {
	GetLanguage(ctx context.Context, id kernel.LanguageID) (*Language, error)

	// GetLanguages returns the published languages available in store
	// (0 = all stores) in display order.
	GetLanguages(ctx context.Context, store kernel.StoreID) ([]*Language, error)
}

// AccountStore reads sender accounts.
type AccountStore interface {
	GetAccount(ctx context.Context, id kernel.AccountID) (*EmailAccount, error)
	GetAllAccounts(ctx context.Context) ([]*EmailAccount, error)
	DefaultAccountID() kernel.AccountID
}

// StoreDirectory reads stores. The store serving the current request travels
// in the context (kernel.WithCurrentStore).
type StoreDirectory interface {
	GetStore(ctx context.Context, id kernel.StoreID) (*Store, error)
	GetAllStores(ctx context.Context) ([]*Store, error)
}

// MailQueue persists rendered messages and returns their id.
type MailQueue interface {
	Enqueue(ctx context.Context, msg *QueuedMessage) (int64, error)
}

// Outbox is the read side of the mail queue used by the sender.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]*QueuedMessage, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// TokenHook observes, and may extend, the tokens built for a message before
// it is rendered.
type TokenHook interface {
	OnTokensBuilt(ctx context.Context, tmpl *MessageTemplate, tokens *token.List)
}

// TokenHookFunc adapts a function to TokenHook.
type TokenHookFunc func(ctx context.Context, tmpl *MessageTemplate, tokens *token.List)

func (f TokenHookFunc) OnTokensBuilt(ctx context.Context, tmpl *MessageTemplate, tokens *token.List) {
	f(ctx, tmpl, tokens)
}

// SettingStore reads boolean settings.
type SettingStore interface {
	GetBool(ctx context.Context, key string, def bool) bool
}

// LogSink records operational log entries.
type LogSink interface {
	Log(ctx context.Context, level logx.Level, title, details string) error
}

// Setting keys.
const (
	SettingWarmupLogging        = "messages.warmup.enable_logging"
	SettingCaseInvariantReplace = "messages.case_invariant_replacement"
)
