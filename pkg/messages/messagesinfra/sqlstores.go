package messagesinfra

import (
	"context"

	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/jmoiron/sqlx"
)

// ─── Templates ──────────────────────────────────────────────────────────────

const templateColumns = `t.id, t.name, t.subject, t.body, t.bcc_email_addresses,
	t.email_account_id, t.is_active, t.limited_to_stores`

type templateRow struct {
	messages.MessageTemplate
	LimitedToStores bool `db:"limited_to_stores"`
}

type localeRow struct {
	TemplateID int64 `db:"template_id"`
	messages.LocalizedTemplate
}

// SQLTemplateStore reads message_templates, their localized overrides and
// store mappings.
type SQLTemplateStore struct {
	db *sqlx.DB
}

func NewSQLTemplateStore(db *sqlx.DB) *SQLTemplateStore {
	return &SQLTemplateStore{db: db}
}

func (s *SQLTemplateStore) GetActiveTemplate(ctx context.Context, name string, store kernel.StoreID) (*messages.MessageTemplate, error) {
	filter, args := storeFilter("t", entityTemplate, store)
	query := `SELECT ` + templateColumns + ` FROM message_templates t WHERE t.name = ?` + filter + ` ORDER BY t.id LIMIT 1`

	var row templateRow
	found, err := getOne(ctx, s.db, &row, query, append([]any{name}, args...)...)
	if err != nil {
		return nil, storageError(err, "get_active_template").WithDetail("template", name)
	}
	if !found {
		return nil, nil
	}

	out, err := s.hydrate(ctx, []templateRow{row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *SQLTemplateStore) GetAllTemplates(ctx context.Context, store kernel.StoreID) ([]*messages.MessageTemplate, error) {
	filter, args := storeFilter("t", entityTemplate, store)
	query := `SELECT ` + templateColumns + ` FROM message_templates t WHERE 1 = 1` + filter + ` ORDER BY t.name, t.id`

	var rows []templateRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, storageError(err, "get_all_templates")
	}
	return s.hydrate(ctx, rows)
}

// hydrate attaches locales and store mappings.
func (s *SQLTemplateStore) hydrate(ctx context.Context, rows []templateRow) ([]*messages.MessageTemplate, error) {
	ids := make([]int64, len(rows))
	var limited []int64
	for i, r := range rows {
		ids[i] = int64(r.ID)
		if r.LimitedToStores {
			limited = append(limited, int64(r.ID))
		}
	}

	var locales []localeRow
	err := selectByIDs(ctx, s.db, &locales,
		`SELECT template_id, language_id, subject, body, bcc_email_addresses, email_account_id
		FROM localized_message_templates WHERE template_id = ANY(?)`,
		`SELECT template_id, language_id, subject, body, bcc_email_addresses, email_account_id
		FROM localized_message_templates WHERE template_id IN (?)`,
		ids)
	if err != nil {
		return nil, storageError(err, "get_template_locales")
	}

	mappings, err := storeMappings(ctx, s.db, entityTemplate, limited)
	if err != nil {
		return nil, storageError(err, "get_template_stores")
	}

	byTemplate := make(map[int64]map[kernel.LanguageID]messages.LocalizedTemplate)
	for _, l := range locales {
		if byTemplate[l.TemplateID] == nil {
			byTemplate[l.TemplateID] = make(map[kernel.LanguageID]messages.LocalizedTemplate)
		}
		byTemplate[l.TemplateID][l.LanguageID] = l.LocalizedTemplate
	}

	out := make([]*messages.MessageTemplate, len(rows))
	for i := range rows {
		t := rows[i].MessageTemplate
		t.Locales = byTemplate[int64(t.ID)]
		t.StoreIDs = mappings[int64(t.ID)]
		out[i] = &t
	}
	return out, nil
}

// ─── Languages ──────────────────────────────────────────────────────────────

const languageColumns = `l.id, l.name, l.language_culture, l.published, l.display_order, l.limited_to_stores`

type languageRow struct {
	messages.Language
	LimitedToStores bool `db:"limited_to_stores"`
}

type SQLLanguageStore struct {
	db *sqlx.DB
}

func NewSQLLanguageStore(db *sqlx.DB) *SQLLanguageStore {
	return &SQLLanguageStore{db: db}
}

func (s *SQLLanguageStore) GetLanguage(ctx context.Context, id kernel.LanguageID) (*messages.Language, error) {
	var row languageRow
	found, err := getOne(ctx, s.db, &row, `SELECT `+languageColumns+` FROM languages l WHERE l.id = ?`, id)
	if err != nil {
		return nil, storageError(err, "get_language").WithDetail("language_id", id)
	}
	if !found {
		return nil, nil
	}
	out, err := s.hydrate(ctx, []languageRow{row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *SQLLanguageStore) GetLanguages(ctx context.Context, store kernel.StoreID) ([]*messages.Language, error) {
	filter, args := storeFilter("l", entityLanguage, store)
	query := `SELECT ` + languageColumns + ` FROM languages l WHERE l.published = TRUE` + filter + ` ORDER BY l.display_order, l.id`

	var rows []languageRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, storageError(err, "get_languages")
	}
	return s.hydrate(ctx, rows)
}

func (s *SQLLanguageStore) hydrate(ctx context.Context, rows []languageRow) ([]*messages.Language, error) {
	var limited []int64
	for _, r := range rows {
		if r.LimitedToStores {
			limited = append(limited, int64(r.ID))
		}
	}
	mappings, err := storeMappings(ctx, s.db, entityLanguage, limited)
	if err != nil {
		return nil, storageError(err, "get_language_stores")
	}

	out := make([]*messages.Language, len(rows))
	for i := range rows {
		l := rows[i].Language
		l.StoreIDs = mappings[int64(l.ID)]
		out[i] = &l
	}
	return out, nil
}

// ─── Accounts ───────────────────────────────────────────────────────────────

type SQLAccountStore struct {
	db        *sqlx.DB
	defaultID kernel.AccountID
}

// NewSQLAccountStore reads email_accounts; defaultID is the configured
// default sender.
func NewSQLAccountStore(db *sqlx.DB, defaultID kernel.AccountID) *SQLAccountStore {
	return &SQLAccountStore{db: db, defaultID: defaultID}
}

func (s *SQLAccountStore) GetAccount(ctx context.Context, id kernel.AccountID) (*messages.EmailAccount, error) {
	var acc messages.EmailAccount
	found, err := getOne(ctx, s.db, &acc, `SELECT id, email, display_name FROM email_accounts WHERE id = ?`, id)
	if err != nil {
		return nil, storageError(err, "get_account").WithDetail("account_id", id)
	}
	if !found {
		return nil, nil
	}
	return &acc, nil
}

func (s *SQLAccountStore) GetAllAccounts(ctx context.Context) ([]*messages.EmailAccount, error) {
	var out []*messages.EmailAccount
	if err := s.db.SelectContext(ctx, &out, `SELECT id, email, display_name FROM email_accounts ORDER BY id`); err != nil {
		return nil, storageError(err, "get_all_accounts")
	}
	return out, nil
}

func (s *SQLAccountStore) DefaultAccountID() kernel.AccountID {
	return s.defaultID
}

// ─── Stores ─────────────────────────────────────────────────────────────────

const storeColumns = `id, name, url, company_name, company_address, company_phone_number, company_vat, display_order`

type SQLStoreDirectory struct {
	db *sqlx.DB
}

func NewSQLStoreDirectory(db *sqlx.DB) *SQLStoreDirectory {
	return &SQLStoreDirectory{db: db}
}

func (s *SQLStoreDirectory) GetStore(ctx context.Context, id kernel.StoreID) (*messages.Store, error) {
	var store messages.Store
	found, err := getOne(ctx, s.db, &store, `SELECT `+storeColumns+` FROM stores WHERE id = ?`, id)
	if err != nil {
		return nil, storageError(err, "get_store").WithDetail("store_id", id)
	}
	if !found {
		return nil, nil
	}
	return &store, nil
}

func (s *SQLStoreDirectory) GetAllStores(ctx context.Context) ([]*messages.Store, error) {
	var out []*messages.Store
	if err := s.db.SelectContext(ctx, &out, `SELECT `+storeColumns+` FROM stores ORDER BY display_order, id`); err != nil {
		return nil, storageError(err, "get_all_stores")
	}
	return out, nil
}

var (
	_ messages.TemplateStore  = (*SQLTemplateStore)(nil)
	_ messages.LanguageStore  = (*SQLLanguageStore)(nil)
	_ messages.AccountStore   = (*SQLAccountStore)(nil)
	_ messages.StoreDirectory = (*SQLStoreDirectory)(nil)
)
