package messagesinfra

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages"
)

// ─── Templates ──────────────────────────────────────────────────────────────

// MemoryTemplateStore keeps templates in memory, ordered by id.
type MemoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[kernel.TemplateID]*messages.MessageTemplate
}

func NewMemoryTemplateStore(templates ...*messages.MessageTemplate) *MemoryTemplateStore {
	s := &MemoryTemplateStore{templates: make(map[kernel.TemplateID]*messages.MessageTemplate)}
	for _, t := range templates {
		s.Save(t)
	}
	return s
}

func (s *MemoryTemplateStore) Save(t *messages.MessageTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
}

func (s *MemoryTemplateStore) sorted() []*messages.MessageTemplate {
	out := make([]*messages.MessageTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryTemplateStore) GetActiveTemplate(_ context.Context, name string, store kernel.StoreID) (*messages.MessageTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.sorted() {
		if t.Name == name && t.AvailableIn(store) {
			return t, nil
		}
	}
	return nil, nil
}

func (s *MemoryTemplateStore) GetAllTemplates(_ context.Context, store kernel.StoreID) ([]*messages.MessageTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*messages.MessageTemplate
	for _, t := range s.sorted() {
		if store.IsZero() || t.AvailableIn(store) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ─── Languages ──────────────────────────────────────────────────────────────

type MemoryLanguageStore struct {
	mu        sync.RWMutex
	languages map[kernel.LanguageID]*messages.Language
}

func NewMemoryLanguageStore(languages ...*messages.Language) *MemoryLanguageStore {
	s := &MemoryLanguageStore{languages: make(map[kernel.LanguageID]*messages.Language)}
	for _, l := range languages {
		s.Save(l)
	}
	return s
}

func (s *MemoryLanguageStore) Save(l *messages.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.languages[l.ID] = l
}

func (s *MemoryLanguageStore) GetLanguage(_ context.Context, id kernel.LanguageID) (*messages.Language, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.languages[id], nil
}

func (s *MemoryLanguageStore) GetLanguages(_ context.Context, store kernel.StoreID) ([]*messages.Language, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*messages.Language
	for _, l := range s.languages {
		if l.Published && l.AvailableIn(store) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ─── Accounts ───────────────────────────────────────────────────────────────

type MemoryAccountStore struct {
	mu        sync.RWMutex
	accounts  []*messages.EmailAccount
	defaultID kernel.AccountID
}

func NewMemoryAccountStore(defaultID kernel.AccountID, accounts ...*messages.EmailAccount) *MemoryAccountStore {
	return &MemoryAccountStore{accounts: accounts, defaultID: defaultID}
}

func (s *MemoryAccountStore) GetAccount(_ context.Context, id kernel.AccountID) (*messages.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (s *MemoryAccountStore) GetAllAccounts(context.Context) ([]*messages.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*messages.EmailAccount(nil), s.accounts...), nil
}

func (s *MemoryAccountStore) DefaultAccountID() kernel.AccountID {
	return s.defaultID
}

// ─── Stores ─────────────────────────────────────────────────────────────────

type MemoryStoreDirectory struct {
	mu     sync.RWMutex
	stores []*messages.Store
}

func NewMemoryStoreDirectory(stores ...*messages.Store) *MemoryStoreDirectory {
	return &MemoryStoreDirectory{stores: stores}
}

func (s *MemoryStoreDirectory) GetStore(_ context.Context, id kernel.StoreID) (*messages.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stores {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, nil
}

func (s *MemoryStoreDirectory) GetAllStores(context.Context) ([]*messages.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]*messages.Store(nil), s.stores...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

// ─── Mail queue ─────────────────────────────────────────────────────────────

// MemoryMailQueue implements both MailQueue and Outbox.
type MemoryMailQueue struct {
	mu     sync.Mutex
	nextID int64
	items  []*messages.QueuedMessage
}

func NewMemoryMailQueue() *MemoryMailQueue {
	return &MemoryMailQueue{}
}

func (q *MemoryMailQueue) Enqueue(_ context.Context, msg *messages.QueuedMessage) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	stored := *msg
	stored.ID = q.nextID
	if stored.Status == "" {
		stored.Status = messages.QueuedStatusPending
	}
	q.items = append(q.items, &stored)
	return stored.ID, nil
}

// Pending returns pending messages by priority (highest first), then age.
func (q *MemoryMailQueue) Pending(_ context.Context, limit int) ([]*messages.QueuedMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*messages.QueuedMessage
	for _, m := range q.items {
		if m.Status == messages.QueuedStatusPending {
			c := *m
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *MemoryMailQueue) find(id int64) (*messages.QueuedMessage, error) {
	for _, m := range q.items {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, messages.Errors.New(messages.ErrNotFound).WithDetail("queued_id", id)
}

func (q *MemoryMailQueue) MarkSent(_ context.Context, id int64, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	m, err := q.find(id)
	if err != nil {
		return err
	}
	m.Status = messages.QueuedStatusSent
	m.SentTries++
	m.SentOnUtc = &at
	m.LastError = ""
	return nil
}

func (q *MemoryMailQueue) MarkFailed(_ context.Context, id int64, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	m, err := q.find(id)
	if err != nil {
		return err
	}
	m.Status = messages.QueuedStatusFailed
	m.SentTries++
	m.LastError = reason
	return nil
}

// All returns a copy of every message ever queued, oldest first.
func (q *MemoryMailQueue) All() []messages.QueuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]messages.QueuedMessage, len(q.items))
	for i, m := range q.items {
		out[i] = *m
	}
	return out
}

// ─── Settings & log ─────────────────────────────────────────────────────────

type MemorySettingStore struct {
	mu     sync.RWMutex
	values map[string]bool
}

func NewMemorySettingStore(values map[string]bool) *MemorySettingStore {
	s := &MemorySettingStore{values: make(map[string]bool, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *MemorySettingStore) Set(key string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemorySettingStore) GetBool(_ context.Context, key string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// LogRecord is one entry written to a MemoryLogSink.
type LogRecord struct {
	Level   logx.Level
	Title   string
	Details string
}

type MemoryLogSink struct {
	mu      sync.Mutex
	records []LogRecord
}

func NewMemoryLogSink() *MemoryLogSink {
	return &MemoryLogSink{}
}

func (s *MemoryLogSink) Log(_ context.Context, level logx.Level, title, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, LogRecord{Level: level, Title: title, Details: details})
	return nil
}

func (s *MemoryLogSink) Records() []LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogRecord(nil), s.records...)
}

var (
	_ messages.TemplateStore  = (*MemoryTemplateStore)(nil)
	_ messages.LanguageStore  = (*MemoryLanguageStore)(nil)
	_ messages.AccountStore   = (*MemoryAccountStore)(nil)
	_ messages.StoreDirectory = (*MemoryStoreDirectory)(nil)
	_ messages.MailQueue      = (*MemoryMailQueue)(nil)
	_ messages.Outbox         = (*MemoryMailQueue)(nil)
	_ messages.SettingStore   = (*MemorySettingStore)(nil)
	_ messages.LogSink        = (*MemoryLogSink)(nil)
)
