package messagesinfra

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTemplateStore_StoreRestriction(t *testing.T) {
	s := NewMemoryTemplateStore(
		&messages.MessageTemplate{ID: 2, Name: "Customer.WelcomeMessage", StoreIDs: []kernel.StoreID{2}},
		&messages.MessageTemplate{ID: 1, Name: "Customer.WelcomeMessage", StoreIDs: []kernel.StoreID{1}},
		&messages.MessageTemplate{ID: 3, Name: "OrderPlaced.CustomerNotification"},
	)
	ctx := context.Background()

	tmpl, err := s.GetActiveTemplate(ctx, "Customer.WelcomeMessage", 2)
	require.NoError(t, err)
	require.NotNil(t, tmpl)
	assert.Equal(t, kernel.TemplateID(2), tmpl.ID)

	tmpl, err = s.GetActiveTemplate(ctx, "Customer.WelcomeMessage", 3)
	require.NoError(t, err)
	assert.Nil(t, tmpl)

	all, err := s.GetAllTemplates(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	forStore, err := s.GetAllTemplates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, forStore, 2)
	assert.Equal(t, kernel.TemplateID(1), forStore[0].ID)
}

func TestMemoryLanguageStore_PublishedInDisplayOrder(t *testing.T) {
	s := NewMemoryLanguageStore(
		&messages.Language{ID: 1, Name: "English", Published: true, DisplayOrder: 2},
		&messages.Language{ID: 2, Name: "Deutsch", Published: true, DisplayOrder: 1},
		&messages.Language{ID: 3, Name: "Hidden", Published: false},
		&messages.Language{ID: 4, Name: "Outlet only", Published: true, StoreIDs: []kernel.StoreID{9}},
	)

	langs, err := s.GetLanguages(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, langs, 2)
	assert.Equal(t, "Deutsch", langs[0].Name)
	assert.Equal(t, "English", langs[1].Name)

	hidden, err := s.GetLanguage(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, hidden)
	assert.False(t, hidden.Published)
}

func TestMemoryMailQueue_Lifecycle(t *testing.T) {
	q := NewMemoryMailQueue()
	ctx := context.Background()

	low := queuedFixture()
	low.Priority = 1
	_, err := q.Enqueue(ctx, low)
	require.NoError(t, err)
	id, err := q.Enqueue(ctx, queuedFixture())
	require.NoError(t, err)

	pending, err := q.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)

	require.NoError(t, q.MarkSent(ctx, id, time.Now()))
	require.NoError(t, q.MarkFailed(ctx, 1, "boom"))

	pending, err = q.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all := q.All()
	require.Len(t, all, 2)
	assert.Equal(t, messages.QueuedStatusFailed, all[0].Status)
	assert.Equal(t, messages.QueuedStatusSent, all[1].Status)

	err = q.MarkSent(ctx, 77, time.Now())
	assert.True(t, errx.HasCode(err, messages.ErrNotFound))
}
