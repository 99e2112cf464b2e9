package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler processes one job. A returned error triggers the queue's own
// retry/backoff; after the final attempt the job payload lands in the failed
// tail and the delivery-attempt row keeps whatever the last attempt wrote.
type Handler func(ctx context.Context, job Job) error

// Worker is the out-of-process consumer draining the delivery queue.
type Worker struct {
	client  *redis.Client
	handler Handler
	logger  *zap.Logger
}

func NewWorker(client *redis.Client, handler Handler, logger *zap.Logger) *Worker {
	return &Worker{client: client, handler: handler, logger: logger}
}

// Run consumes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("delivery worker started")
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("delivery worker stopping")
			return nil
		}

		if err := w.promoteDueRetries(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("failed to promote retry jobs", zap.Error(err))
		}

		raw, err := w.client.BRPop(ctx, 5*time.Second, jobsKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Warn("failed to pop delivery job", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		// BRPop returns [key, value].
		if len(raw) < 2 {
			continue
		}
		w.process(ctx, []byte(raw[1]))
	}
}

func (w *Worker) process(ctx context.Context, payload []byte) {
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		w.logger.Error("discarding malformed delivery job", zap.Error(err))
		return
	}
	if job.Attempt == 0 {
		job.Attempt = 1
	}

	err := w.handler(ctx, job)
	if err == nil {
		w.record(ctx, completedKey, keepCompleted, job)
		return
	}

	w.logger.Warn("delivery job failed",
		zap.String("notification_id", job.NotificationID),
		zap.String("channel", string(job.Channel)),
		zap.Int("attempt", job.Attempt),
		zap.Error(err))

	if job.Attempt >= MaxAttempts {
		w.record(ctx, failedKey, keepFailed, job)
		return
	}

	readyAt := time.Now().Add(BackoffFor(job.Attempt))
	job.Attempt++
	next, marshalErr := json.Marshal(job)
	if marshalErr != nil {
		w.logger.Error("failed to marshal retry job", zap.Error(marshalErr))
		return
	}
	if err := w.client.ZAdd(ctx, retryKey, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: next,
	}).Err(); err != nil {
		w.logger.Warn("failed to schedule retry", zap.Error(err))
	}
}

// promoteDueRetries moves jobs whose backoff has elapsed back onto the main list.
func (w *Worker) promoteDueRetries(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := w.client.ZRangeByScore(ctx, retryKey, &redis.ZRangeBy{
		Min: "-inf", Max: now, Count: 50,
	}).Result()
	if err != nil {
		return err
	}
	for _, member := range due {
		removed, err := w.client.ZRem(ctx, retryKey, member).Result()
		if err != nil {
			return err
		}
		// Another worker may have promoted this job already.
		if removed == 0 {
			continue
		}
		if err := w.client.LPush(ctx, jobsKey, member).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) record(ctx context.Context, key string, keep int64, job Job) {
	payload, err := json.Marshal(job)
	if err != nil {
		return
	}
	pipe := w.client.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, keep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		w.logger.Warn("failed to record job outcome", zap.Error(err))
	}
}
