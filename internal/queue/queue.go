// Package queue moves texts awaiting analysis through a Redis list and
// runs the workers that drain it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Job is one text awaiting analysis.
type Job struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Source     string    `json:"source,omitempty"`
	URL        string    `json:"url,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RedisQueue is a FIFO of jobs on a Redis list (RPUSH to enqueue, BLPOP
// to dequeue). Producers and consumers may live in separate processes.
type RedisQueue struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// New returns a queue on key. popTimeout bounds each blocking Pop.
func New(client *redis.Client, key string, popTimeout time.Duration) *RedisQueue {
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	return &RedisQueue{client: client, key: key, timeout: popTimeout}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("queue: ping %s: %w", addr, err)
	}
	return client, nil
}

// Push enqueues job.
func (q *RedisQueue) Push(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: encode %s: %w", job.ID, err)
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("queue: push %s: %w", job.ID, err)
	}
	return nil
}

// Pop blocks until a job arrives or the pop timeout elapses. A timeout
// returns a nil job and a nil error.
func (q *RedisQueue) Pop(ctx context.Context) (*Job, error) {
	res, err := q.client.BLPop(ctx, q.timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: pop: %w", err)
	}
	// res is [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("queue: pop: unexpected reply %v", res)
	}
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("queue: decode job: %w", err)
	}
	return &job, nil
}

// Len reports the number of queued jobs.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
