// Package queue is the client side of the asynchronous file-conversion
// queue. Jobs are pushed onto a Redis list and picked up by the converter
// worker, which runs as a separate process.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/keepat/api/internal/models"
)

const (
	// FileConverterQueue is the queue the from/to mapping converter consumes.
	FileConverterQueue = "fileConverter"

	jobTTL = 7 * 24 * time.Hour
)

// Queue enqueues conversion jobs and reads back their state.
type Queue struct {
	rdb *redis.Client
}

// New constructs a queue client for the given Redis address.
func New(addr string) *Queue {
	return &Queue{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewFromClient wraps an existing Redis client.
func NewFromClient(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

func jobKey(queue, id string) string {
	return fmt.Sprintf("queue:%s:job:%s", queue, id)
}

func waitKey(queue string) string {
	return fmt.Sprintf("queue:%s:wait", queue)
}

// Enqueue stores the job payload and pushes its id onto the wait list. The
// returned job carries the generated id and the waiting state.
func (q *Queue) Enqueue(ctx context.Context, queue string, job models.ConversionJob) (models.ConversionJob, error) {
	job.ID = uuid.NewString()
	job.State = models.JobStateWaiting
	job.CreatedAt = time.Now().UnixMilli()

	payload, err := json.Marshal(job)
	if err != nil {
		return models.ConversionJob{}, fmt.Errorf("queue: marshal job: %w", err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, jobKey(queue, job.ID), payload, jobTTL)
	pipe.LPush(ctx, waitKey(queue), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.ConversionJob{}, fmt.Errorf("queue: enqueue: %w", err)
	}
	return job, nil
}

// Job reads a job's current state. A missing job returns redis.Nil wrapped.
func (q *Queue) Job(ctx context.Context, queue, id string) (models.ConversionJob, error) {
	raw, err := q.rdb.Get(ctx, jobKey(queue, id)).Bytes()
	if err != nil {
		return models.ConversionJob{}, fmt.Errorf("queue: get job %s: %w", id, err)
	}
	var job models.ConversionJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return models.ConversionJob{}, fmt.Errorf("queue: unmarshal job %s: %w", id, err)
	}
	return job, nil
}
