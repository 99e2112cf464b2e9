// Package queue implements the best-effort async delivery queue on Redis.
// Jobs live in a list, delayed retries in a sorted set scored by ready time,
// and a bounded tail of completed/failed payloads is kept for inspection.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/teamtide/workforce-backend/internal/models"
	"go.uber.org/zap"
)

const (
	jobsKey      = "delivery:jobs"
	retryKey     = "delivery:retry"
	completedKey = "delivery:completed"
	failedKey    = "delivery:failed"

	// Retry policy: 3 attempts with exponential backoff starting at 2s.
	MaxAttempts    = 3
	InitialBackoff = 2000 * time.Millisecond

	keepCompleted = 100
	keepFailed    = 500

	heartbeatInterval = 15 * time.Second
)

// Job is one outbound channel send. The worker locates the delivery-attempt
// row by NotificationID + Channel, so those two fields are mandatory.
type Job struct {
	NotificationID string         `json:"notificationId"`
	Channel        models.Channel `json:"channel"`
	To             string         `json:"to"`
	Subject        string         `json:"subject"`
	Text           string         `json:"text"`
	HTML           string         `json:"html,omitempty"`
	OrganisationID string         `json:"organisationId"`
	UserID         string         `json:"userId"`
	Attempt        int            `json:"attempt"`
}

// BackoffFor returns the delay before re-delivering a job that has already
// been attempted `attempt` times.
func BackoffFor(attempt int) time.Duration {
	d := InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Queue submits jobs to Redis. Availability is a cached flag refreshed by a
// background heartbeat, so a transient Redis outage stops forcing synchronous
// delivery once the broker comes back.
type Queue struct {
	client    *redis.Client
	logger    *zap.Logger
	available atomic.Bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New probes the Redis connection once; call Start to keep the availability
// flag fresh afterwards.
func New(client *redis.Client, logger *zap.Logger) *Queue {
	q := &Queue{
		client: client,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	q.probe(context.Background())
	return q
}

// Start launches the heartbeat goroutine. Stop must be called on shutdown.
func (q *Queue) Start() {
	go func() {
		defer close(q.done)
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-q.stop:
				return
			case <-ticker.C:
				q.probe(context.Background())
			}
		}
	}()
}

// Stop terminates the heartbeat.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stop)
		<-q.done
	})
}

func (q *Queue) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := q.client.Ping(ctx).Err()
	was := q.available.Swap(err == nil)
	if err != nil {
		if was {
			q.logger.Warn("delivery queue unreachable, falling back to synchronous delivery", zap.Error(err))
		}
		return
	}
	if !was {
		q.logger.Info("delivery queue reachable")
	}
}

// IsAvailable reports the cached health flag.
func (q *Queue) IsAvailable() bool {
	return q.available.Load()
}

// Enqueue submits a job, returning false when the queue is unavailable or the
// submission itself fails. Callers treat false as "deliver synchronously".
func (q *Queue) Enqueue(ctx context.Context, job Job) bool {
	if !q.IsAvailable() {
		return false
	}
	payload, err := json.Marshal(job)
	if err != nil {
		q.logger.Error("failed to marshal delivery job", zap.Error(err))
		return false
	}
	if err := q.client.LPush(ctx, jobsKey, payload).Err(); err != nil {
		q.logger.Warn("failed to enqueue delivery job", zap.Error(err))
		q.available.Store(false)
		return false
	}
	return true
}
