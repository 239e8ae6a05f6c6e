package jobxredis

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/jobx"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T) (*RedisQueue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisQueue(rdb, WithPrefix("test")), rdb
}

func TestEnqueueDequeueComplete(t *testing.T) {
	q, rdb := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, jobx.Job{Type: "messages.warmup", MaxRetries: 3})
	require.NoError(t, err)

	n, err := rdb.LLen(ctx, "test:queue:default").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	info, err := q.Dequeue(ctx, []string{jobx.DefaultQueue}, time.Second)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, id, info.ID)
	assert.Equal(t, jobx.JobStatusActive, info.Status)
	assert.Equal(t, 1, info.Attempts)

	require.NoError(t, q.Complete(ctx, id, []byte(`{"lines":12}`)))

	stored, err := q.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.JobStatusCompleted, stored.Status)
	assert.JSONEq(t, `{"lines":12}`, string(stored.Result))
}

func TestDequeueEmptyQueue(t *testing.T) {
	q, _ := newQueue(t)

	info, err := q.Dequeue(context.Background(), []string{jobx.DefaultQueue}, time.Second)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestFailSchedulesRetry(t *testing.T) {
	q, rdb := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, jobx.Job{Type: "send", MaxRetries: 2})
	require.NoError(t, err)
	_, err = q.Dequeue(ctx, []string{jobx.DefaultQueue}, time.Second)
	require.NoError(t, err)

	retry, err := q.Fail(ctx, id, "timeout")
	require.NoError(t, err)
	assert.True(t, retry)

	info, err := q.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.JobStatusRetrying, info.Status)
	assert.Equal(t, "timeout", info.Error)

	require.NoError(t, q.Retry(ctx, id, time.Hour))
	card, err := rdb.ZCard(ctx, "test:scheduled:default").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), card)

	// Not due yet.
	require.NoError(t, q.PromoteScheduled(ctx, []string{jobx.DefaultQueue}))
	n, err := rdb.LLen(ctx, "test:queue:default").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFailWithoutAttemptsLeft(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, jobx.Job{Type: "send", MaxRetries: 1})
	require.NoError(t, err)
	_, err = q.Dequeue(ctx, []string{jobx.DefaultQueue}, time.Second)
	require.NoError(t, err)

	retry, err := q.Fail(ctx, id, "rejected")
	require.NoError(t, err)
	assert.False(t, retry)

	info, err := q.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.JobStatusFailed, info.Status)
}

func TestPromoteScheduledMovesDueJobs(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	id, err := q.EnqueueDelayed(ctx, jobx.Job{Type: "later"}, -time.Minute)
	require.NoError(t, err)

	require.NoError(t, q.PromoteScheduled(ctx, []string{jobx.DefaultQueue}))

	info, err := q.Dequeue(ctx, []string{jobx.DefaultQueue}, time.Second)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, id, info.ID)
}

func TestGetJobNotFound(t *testing.T) {
	q, _ := newQueue(t)

	_, err := q.GetJob(context.Background(), "missing")
	assert.True(t, errx.HasCode(err, ErrNotFound))
}
