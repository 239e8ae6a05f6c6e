package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/metrics"
	"github.com/Abraxas-365/courier/pkg/render"
	"github.com/Abraxas-365/courier/pkg/token"
	"github.com/go-playground/validator/v10"
)

// Dispatcher turns business events into queued messages. Each Send* method
// resolves the store, language, template and sender account, builds tokens
// and a model, renders subject and body and queues the result. A missing or
// inactive template is not an error: the method returns 0 and queues nothing.
type Dispatcher struct {
	templates messages.TemplateStore
	languages messages.LanguageStore
	accounts  messages.AccountStore
	stores    messages.StoreDirectory
	queue     messages.MailQueue
	renderer  *render.Renderer

	tokens      *TokenProvider
	hooks       []messages.TokenHook
	validate    *validator.Validate
	embedErrors bool
	now         func() time.Time
}

type Option func(*Dispatcher)

// WithTokenHooks registers hooks called after tokens are built.
func WithTokenHooks(hooks ...messages.TokenHook) Option {
	return func(d *Dispatcher) {
		d.hooks = append(d.hooks, hooks...)
	}
}

// WithEmbedErrors controls whether render diagnostics stay in queued
// messages. It defaults to true.
func WithEmbedErrors(embed bool) Option {
	return func(d *Dispatcher) {
		d.embedErrors = embed
	}
}

func WithTokenProvider(p *TokenProvider) Option {
	return func(d *Dispatcher) {
		d.tokens = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(
	templates messages.TemplateStore,
	languages messages.LanguageStore,
	accounts messages.AccountStore,
	stores messages.StoreDirectory,
	queue messages.MailQueue,
	renderer *render.Renderer,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		templates:   templates,
		languages:   languages,
		accounts:    accounts,
		stores:      stores,
		queue:       queue,
		renderer:    renderer,
		tokens:      NewTokenProvider(),
		validate:    validator.New(),
		embedErrors: true,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ─── Resolution ─────────────────────────────────────────────────────────────

func storageErr(err error, op string) error {
	return messages.Errors.NewWithCause(messages.ErrStorage, err).WithDetail("op", op)
}

// ResolveStore returns the store with id, or the current store of ctx when
// id is zero or unknown.
func (d *Dispatcher) ResolveStore(ctx context.Context, id kernel.StoreID) (*messages.Store, error) {
	if !id.IsZero() {
		store, err := d.stores.GetStore(ctx, id)
		if err != nil {
			return nil, storageErr(err, "get_store")
		}
		if store != nil {
			return store, nil
		}
	}

	current, ok := kernel.CurrentStore(ctx)
	if !ok {
		return nil, messages.Errors.New(messages.ErrNoStore).WithDetail("store_id", id)
	}
	store, err := d.stores.GetStore(ctx, current)
	if err != nil {
		return nil, storageErr(err, "get_store")
	}
	if store == nil {
		return nil, messages.Errors.New(messages.ErrNoStore).WithDetail("store_id", current)
	}
	return store, nil
}

// EnsureActiveLanguage returns languageID when it names a published
// language, else the first published language of store, else the first
// published language overall.
func (d *Dispatcher) EnsureActiveLanguage(ctx context.Context, languageID kernel.LanguageID, store kernel.StoreID) (kernel.LanguageID, error) {
	lang, err := d.languages.GetLanguage(ctx, languageID)
	if err != nil {
		return 0, storageErr(err, "get_language")
	}
	if lang != nil && lang.Published {
		return lang.ID, nil
	}

	for _, scope := range []kernel.StoreID{store, 0} {
		langs, err := d.languages.GetLanguages(ctx, scope)
		if err != nil {
			return 0, storageErr(err, "get_languages")
		}
		for _, l := range langs {
			if l.Published {
				return l.ID, nil
			}
		}
	}

	return 0, messages.Errors.New(messages.ErrNoActiveLanguage).
		WithDetail("language_id", languageID).
		WithDetail("store_id", store)
}

// ActiveTemplate returns the named template when it exists for store and is
// active, nil otherwise.
func (d *Dispatcher) ActiveTemplate(ctx context.Context, name string, store kernel.StoreID) (*messages.MessageTemplate, error) {
	tmpl, err := d.templates.GetActiveTemplate(ctx, name, store)
	if err != nil {
		return nil, storageErr(err, "get_template")
	}
	if tmpl == nil || !tmpl.IsActive {
		return nil, nil
	}
	return tmpl, nil
}

// AccountForTemplate picks the sender: the template's account for the
// language, then the default account, then the first account.
func (d *Dispatcher) AccountForTemplate(ctx context.Context, tmpl *messages.MessageTemplate, languageID kernel.LanguageID) (*messages.EmailAccount, error) {
	candidates := []kernel.AccountID{tmpl.Localized(languageID).EmailAccountID, d.accounts.DefaultAccountID()}
	for _, id := range candidates {
		if id.IsZero() {
			continue
		}
		acc, err := d.accounts.GetAccount(ctx, id)
		if err != nil {
			return nil, storageErr(err, "get_account")
		}
		if acc != nil {
			return acc, nil
		}
	}

	all, err := d.accounts.GetAllAccounts(ctx)
	if err != nil {
		return nil, storageErr(err, "get_accounts")
	}
	if len(all) == 0 {
		return nil, messages.Errors.New(messages.ErrNoEmailAccount).WithDetail("template", tmpl.Name)
	}
	return all[0], nil
}

// ─── Pipeline ───────────────────────────────────────────────────────────────

// resolved is what the pipeline knows once a notification is known to be sent.
type resolved struct {
	store    *messages.Store
	language kernel.LanguageID
	template *messages.MessageTemplate
	account  *messages.EmailAccount
}

// notification describes one event-specific message.
type notification struct {
	template string
	storeID  kernel.StoreID
	language kernel.LanguageID

	tokens    func(l *token.List, r resolved)
	model     messages.Model
	recipient func(r resolved) (email, name string)

	attachment  messages.Attachment
	replyTo     string
	replyToName string
}

func toAccount(r resolved) (string, string) {
	return r.account.Email, r.account.DisplayName
}

func (d *Dispatcher) send(ctx context.Context, n notification) (id int64, err error) {
	defer func() {
		outcome := "queued"
		switch {
		case err != nil:
			outcome = "error"
		case id == 0:
			outcome = "skipped"
		}
		metrics.Dispatches.WithLabelValues(n.template, outcome).Inc()
	}()

	store, err := d.ResolveStore(ctx, n.storeID)
	if err != nil {
		return 0, err
	}

	language, err := d.EnsureActiveLanguage(ctx, n.language, store.ID)
	if err != nil {
		return 0, err
	}

	tmpl, err := d.ActiveTemplate(ctx, n.template, store.ID)
	if err != nil {
		return 0, err
	}
	if tmpl == nil {
		logx.WithFields(logx.Fields{"template": n.template, "store_id": store.ID}).
			Debug("workflow: template missing or inactive, skipping")
		return 0, nil
	}

	account, err := d.AccountForTemplate(ctx, tmpl, language)
	if err != nil {
		return 0, err
	}

	r := resolved{store: store, language: language, template: tmpl, account: account}

	tokens := token.NewList()
	d.tokens.AddStoreTokens(tokens, store, account)
	if n.tokens != nil {
		n.tokens(tokens, r)
	}
	d.publish(ctx, tmpl, tokens)

	model := n.model
	model.Event = n.template
	model.Store = store

	to, toName := n.recipient(r)
	return d.enqueue(ctx, r, tokens, &model, to, toName, n)
}

// publish calls every hook; a panicking hook is logged and skipped.
func (d *Dispatcher) publish(ctx context.Context, tmpl *messages.MessageTemplate, tokens *token.List) {
	for _, h := range d.hooks {
		func() {
			defer func() {
				if p := recover(); p != nil {
					logx.WithFields(logx.Fields{"template": tmpl.Name, "panic": p}).
						Error("workflow: token hook panicked")
				}
			}()
			h.OnTokensBuilt(ctx, tmpl, tokens)
		}()
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, r resolved, tokens *token.List, model *messages.Model, to, toName string, n notification) (int64, error) {
	localized := r.template.Localized(r.language)

	subject, body := d.renderer.RenderMessage(render.MessageRequest{
		Subject:  localized.Subject,
		Body:     localized.Body,
		Tokens:   tokens.Tokens(),
		Model:    model,
		CacheKey: r.template.CacheIdentity(),
	})
	warnRenderFailure(r.template.Name, "subject", subject)
	warnRenderFailure(r.template.Name, "body", body)

	msg := &messages.QueuedMessage{
		TemplateName:       r.template.Name,
		Priority:           messages.DefaultPriority,
		From:               r.account.Email,
		FromName:           r.account.DisplayName,
		To:                 to,
		ToName:             toName,
		ReplyTo:            n.replyTo,
		ReplyToName:        n.replyToName,
		Bcc:                localized.BccEmailAddresses,
		Subject:            subject.Output(d.embedErrors),
		Body:               body.Output(d.embedErrors),
		AttachmentFilePath: n.attachment.Path,
		AttachmentFileName: n.attachment.Name,
		EmailAccountID:     r.account.ID,
		CreatedOnUtc:       d.now(),
		Status:             messages.QueuedStatusPending,
	}

	if err := d.validate.Struct(msg); err != nil {
		return 0, invalidMessage(err, r.template.Name)
	}

	id, err := d.queue.Enqueue(ctx, msg)
	if err != nil {
		return 0, messages.Errors.NewWithCause(messages.ErrEnqueue, err).WithDetail("template", r.template.Name)
	}

	logx.WithFields(logx.Fields{
		"template":    r.template.Name,
		"store_id":    r.store.ID,
		"language_id": r.language,
		"queued_id":   id,
	}).Debug("workflow: message queued")
	return id, nil
}

func invalidMessage(err error, template string) error {
	e := messages.Errors.NewWithCause(messages.ErrInvalidMessage, err).WithDetail("template", template)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+":"+fe.Tag())
		}
		e.WithDetail("fields", fields)
	}
	return e
}

func missing(name string) error {
	return messages.Errors.New(messages.ErrInvalidArgument).WithDetail("argument", name)
}

func warnRenderFailure(template, part string, res render.Result) {
	if res.Success {
		return
	}
	logx.WithFields(logx.Fields{
		"template": template,
		"part":     part,
		"kind":     res.ErrorKind,
	}).Warnf("workflow: rendered with errors: %s", res.Detail)
}
