package messagesinfra

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/redis/go-redis/v9"
)

// RedisMailQueue keeps queued messages in Redis: an id counter, one JSON
// record per message and a list of pending ids (newest at the head).
type RedisMailQueue struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisMailQueue(rdb redis.UniversalClient, prefix string) *RedisMailQueue {
	if prefix == "" {
		prefix = "courier:mail"
	}
	return &RedisMailQueue{rdb: rdb, prefix: prefix}
}

func (q *RedisMailQueue) idKey() string      { return q.prefix + ":id" }
func (q *RedisMailQueue) pendingKey() string { return q.prefix + ":pending" }
func (q *RedisMailQueue) msgKey(id int64) string {
	return q.prefix + ":msg:" + strconv.FormatInt(id, 10)
}

func (q *RedisMailQueue) Enqueue(ctx context.Context, msg *messages.QueuedMessage) (int64, error) {
	id, err := q.rdb.Incr(ctx, q.idKey()).Result()
	if err != nil {
		return 0, storageError(err, "enqueue")
	}

	stored := *msg
	stored.ID = id
	if stored.Status == "" {
		stored.Status = messages.QueuedStatusPending
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return 0, storageError(err, "enqueue")
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, q.msgKey(id), data, 0)
	pipe.LPush(ctx, q.pendingKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, storageError(err, "enqueue")
	}
	msg.ID = id
	return id, nil
}

// Pending returns up to limit of the oldest pending messages, highest
// priority first.
func (q *RedisMailQueue) Pending(ctx context.Context, limit int) ([]*messages.QueuedMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := q.rdb.LRange(ctx, q.pendingKey(), int64(-limit), -1).Result()
	if err != nil {
		return nil, storageError(err, "pending")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		// The list tail holds the oldest id.
		keys[len(ids)-1-i] = q.prefix + ":msg:" + id
	}
	values, err := q.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storageError(err, "pending")
	}

	out := make([]*messages.QueuedMessage, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var msg messages.QueuedMessage
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			return nil, storageError(err, "pending")
		}
		out = append(out, &msg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (q *RedisMailQueue) Get(ctx context.Context, id int64) (*messages.QueuedMessage, error) {
	data, err := q.rdb.Get(ctx, q.msgKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, messages.Errors.New(messages.ErrNotFound).WithDetail("queued_id", id)
	}
	if err != nil {
		return nil, storageError(err, "get")
	}
	var msg messages.QueuedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, storageError(err, "get")
	}
	return &msg, nil
}

func (q *RedisMailQueue) settle(ctx context.Context, id int64, op string, update func(*messages.QueuedMessage)) error {
	msg, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	update(msg)
	msg.SentTries++

	data, err := json.Marshal(msg)
	if err != nil {
		return storageError(err, op)
	}
	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, q.msgKey(id), data, 0)
	pipe.LRem(ctx, q.pendingKey(), 0, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return storageError(err, op).WithDetail("queued_id", id)
	}
	return nil
}

func (q *RedisMailQueue) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return q.settle(ctx, id, "mark_sent", func(m *messages.QueuedMessage) {
		m.Status = messages.QueuedStatusSent
		m.SentOnUtc = &at
		m.LastError = ""
	})
}

func (q *RedisMailQueue) MarkFailed(ctx context.Context, id int64, reason string) error {
	return q.settle(ctx, id, "mark_failed", func(m *messages.QueuedMessage) {
		m.Status = messages.QueuedStatusFailed
		m.LastError = reason
	})
}

var (
	_ messages.MailQueue = (*RedisMailQueue)(nil)
	_ messages.Outbox    = (*RedisMailQueue)(nil)
)
