package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen[job.ID] = true
		return nil
	}, QueueConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	for _, id := range []string{"q1", "q2", "q3"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "audit"}))
	}

	assert.Eventually(t, func() bool { return q.Stats().Processed == 3 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Len(t, seen, 3)
	mu.Unlock()
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if job.Attempt == 0 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{ID: "q1", Type: "audit"}))

	assert.Eventually(t, func() bool { return q.Stats().Processed == 1 }, time.Second, 5*time.Millisecond)
	stats := q.Stats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Zero(t, stats.Dropped)
	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()
}

func TestQueueDropsAfterMaxRetries(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{ID: "q1", Type: "audit"}))

	assert.Eventually(t, func() bool { return q.Stats().Dropped == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(2), q.Stats().Failed)
	assert.Zero(t, q.Stats().Processed)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "q1"}))

	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job{ID: "q1"}))
}

func TestRetryDelayDoubles(t *testing.T) {
	base := 10 * time.Millisecond
	assert.Equal(t, base, retryDelay(base, 0))
	assert.Equal(t, base, retryDelay(base, 1))
	assert.Equal(t, 2*base, retryDelay(base, 2))
	assert.Equal(t, 4*base, retryDelay(base, 3))
	assert.Equal(t, 32*base, retryDelay(base, 20))
}
