package queue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/teamtide/workforce-backend/internal/models"
	"go.uber.org/zap"
)

func TestBackoffFor(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 8 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BackoffFor(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestQueue_UnreachableRedisFallsBack(t *testing.T) {
	// Port 1 is never a Redis server; the initial probe must fail fast and
	// leave the queue marked unavailable.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	q := New(client, zap.NewNop())

	assert.False(t, q.IsAvailable())
	assert.False(t, q.Enqueue(context.Background(), Job{
		NotificationID: "n1",
		Channel:        models.ChannelEmail,
		To:             "w@example.com",
	}), "enqueue on an unavailable queue must report false")
}
