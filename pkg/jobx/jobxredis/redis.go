package jobxredis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Abraxas-365/courier/pkg/jobx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "courier:jobs"

// RedisQueue implements jobx.Queue. Ready jobs live in a list per queue,
// delayed jobs in a sorted set scored by due time, and job records as JSON
// strings.
type RedisQueue struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

type Option func(*RedisQueue)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(q *RedisQueue) {
		if prefix != "" {
			q.prefix = prefix
		}
	}
}

func NewRedisQueue(rdb redis.UniversalClient, opts ...Option) *RedisQueue {
	q := &RedisQueue{
		rdb:    rdb,
		prefix: DefaultPrefix,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

func (q *RedisQueue) queueKey(name string) string     { return q.prefix + ":queue:" + name }
func (q *RedisQueue) scheduledKey(name string) string { return q.prefix + ":scheduled:" + name }
func (q *RedisQueue) jobKey(id string) string         { return q.prefix + ":job:" + id }

func (q *RedisQueue) newInfo(job jobx.Job) ([]byte, jobx.JobInfo, error) {
	if job.Queue == "" {
		job.Queue = jobx.DefaultQueue
	}
	info := jobx.NewJobInfo(uuid.NewString(), job, q.now())
	data, err := json.Marshal(info)
	if err != nil {
		return nil, info, redisErrors.NewWithCause(ErrMarshal, err)
	}
	return data, info, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, job jobx.Job) (string, error) {
	data, info, err := q.newInfo(job)
	if err != nil {
		return "", err
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, q.jobKey(info.ID), data, 0)
	pipe.LPush(ctx, q.queueKey(info.Queue), info.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", redisErrors.NewWithCause(ErrEnqueue, err).WithDetail("queue", info.Queue)
	}
	return info.ID, nil
}

func (q *RedisQueue) EnqueueDelayed(ctx context.Context, job jobx.Job, delay time.Duration) (string, error) {
	data, info, err := q.newInfo(job)
	if err != nil {
		return "", err
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, q.jobKey(info.ID), data, 0)
	pipe.ZAdd(ctx, q.scheduledKey(info.Queue), redis.Z{
		Score:  float64(info.CreatedAt.Add(delay).Unix()),
		Member: info.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", redisErrors.NewWithCause(ErrEnqueue, err).
			WithDetail("queue", info.Queue).
			WithDetail("delay", delay.String())
	}
	return info.ID, nil
}

func (q *RedisQueue) GetJob(ctx context.Context, jobID string) (*jobx.JobInfo, error) {
	data, err := q.rdb.Get(ctx, q.jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redisErrors.New(ErrNotFound).WithDetail("job_id", jobID)
		}
		return nil, redisErrors.NewWithCause(ErrGetJob, err).WithDetail("job_id", jobID)
	}

	var info jobx.JobInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", jobID)
	}
	return &info, nil
}

func (q *RedisQueue) save(ctx context.Context, info *jobx.JobInfo) error {
	info.UpdatedAt = q.now()
	data, err := json.Marshal(info)
	if err != nil {
		return redisErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", info.ID)
	}
	if err := q.rdb.Set(ctx, q.jobKey(info.ID), data, 0).Err(); err != nil {
		return redisErrors.NewWithCause(ErrSave, err).WithDetail("job_id", info.ID)
	}
	return nil
}

// Dequeue blocks up to timeout for a job on any of queues. A timeout or a
// cancelled ctx yields (nil, nil).
func (q *RedisQueue) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*jobx.JobInfo, error) {
	keys := make([]string, len(queues))
	for i, name := range queues {
		keys[i] = q.queueKey(name)
	}

	result, err := q.rdb.BRPop(ctx, timeout, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, redisErrors.NewWithCause(ErrDequeue, err)
	}

	// result is [key, id]
	info, err := q.GetJob(ctx, result[1])
	if err != nil {
		return nil, err
	}
	info.Status = jobx.JobStatusActive
	info.Attempts++
	if err := q.save(ctx, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (q *RedisQueue) Complete(ctx context.Context, jobID string, result []byte) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	info.Status = jobx.JobStatusCompleted
	info.Result = result
	return q.save(ctx, info)
}

// Fail records errMsg and reports whether the job has attempts left.
func (q *RedisQueue) Fail(ctx context.Context, jobID string, errMsg string) (bool, error) {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}

	retry := info.ShouldRetry()
	info.Status = jobx.JobStatusFailed
	if retry {
		info.Status = jobx.JobStatusRetrying
	}
	info.Error = errMsg
	if err := q.save(ctx, info); err != nil {
		return false, err
	}
	return retry, nil
}

func (q *RedisQueue) Retry(ctx context.Context, jobID string, delay time.Duration) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	err = q.rdb.ZAdd(ctx, q.scheduledKey(info.Queue), redis.Z{
		Score:  float64(q.now().Add(delay).Unix()),
		Member: jobID,
	}).Err()
	if err != nil {
		return redisErrors.NewWithCause(ErrRetry, err).WithDetail("job_id", jobID)
	}
	return nil
}

// promoteScript moves due ids from the scheduled set to the ready list
// atomically.
var promoteScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(ids) do
    redis.call('LPUSH', KEYS[2], id)
end
if #ids > 0 then
    redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
end
return #ids
`)

func (q *RedisQueue) PromoteScheduled(ctx context.Context, queues []string) error {
	now := strconv.FormatInt(q.now().Unix(), 10)

	for _, name := range queues {
		err := promoteScript.Run(ctx, q.rdb, []string{q.scheduledKey(name), q.queueKey(name)}, now).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return redisErrors.NewWithCause(ErrPromote, err).WithDetail("queue", name)
		}
	}
	return nil
}

var _ jobx.Queue = (*RedisQueue)(nil)
