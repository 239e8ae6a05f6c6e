package messagesinfra

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisMailQueue(t *testing.T) (*RedisMailQueue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisMailQueue(rdb, "test:mail"), rdb
}

func TestRedisMailQueue_EnqueueAndPending(t *testing.T) {
	q, rdb := newRedisMailQueue(t)
	ctx := context.Background()

	low := queuedFixture()
	low.Priority = 1
	id1, err := q.Enqueue(ctx, low)
	require.NoError(t, err)

	high := queuedFixture()
	high.Subject = "Urgent"
	id2, err := q.Enqueue(ctx, high)
	require.NoError(t, err)

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	n, err := rdb.LLen(ctx, "test:mail:pending").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	pending, err := q.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Urgent", pending[0].Subject)
	assert.Equal(t, id1, pending[1].ID)
	assert.Equal(t, messages.QueuedStatusPending, pending[1].Status)
}

func TestRedisMailQueue_PendingOldestFirst(t *testing.T) {
	q, _ := newRedisMailQueue(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, queuedFixture())
		require.NoError(t, err)
	}

	pending, err := q.Pending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(1), pending[0].ID)
	assert.Equal(t, int64(2), pending[1].ID)
}

func TestRedisMailQueue_MarkRemovesFromPending(t *testing.T) {
	q, _ := newRedisMailQueue(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	sent, err := q.Enqueue(ctx, queuedFixture())
	require.NoError(t, err)
	failed, err := q.Enqueue(ctx, queuedFixture())
	require.NoError(t, err)

	require.NoError(t, q.MarkSent(ctx, sent, at))
	require.NoError(t, q.MarkFailed(ctx, failed, "connection refused"))

	pending, err := q.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := q.Get(ctx, sent)
	require.NoError(t, err)
	assert.Equal(t, messages.QueuedStatusSent, got.Status)
	assert.Equal(t, 1, got.SentTries)
	require.NotNil(t, got.SentOnUtc)
	assert.True(t, at.Equal(*got.SentOnUtc))

	got, err = q.Get(ctx, failed)
	require.NoError(t, err)
	assert.Equal(t, messages.QueuedStatusFailed, got.Status)
	assert.Equal(t, "connection refused", got.LastError)
}

func TestRedisMailQueue_MarkUnknown(t *testing.T) {
	q, _ := newRedisMailQueue(t)

	err := q.MarkSent(context.Background(), 404, time.Now())
	require.Error(t, err)
	assert.True(t, errx.HasCode(err, messages.ErrNotFound))
}
