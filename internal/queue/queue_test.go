package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	q := NewInMemoryQueue(0)
	defer q.Close()

	require.NoError(t, q.Push(&Task{ID: "low", Priority: 0}))
	require.NoError(t, q.Push(&Task{ID: "high", Priority: 5}))
	require.NoError(t, q.Push(&Task{ID: "mid", Priority: 3}))
	assert.Equal(t, 3, q.Size())

	ctx := context.Background()
	for _, want := range []string{"high", "mid", "low"} {
		task, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, task.ID)
	}
	assert.Equal(t, 0, q.Size())
}

func TestBoundedQueue(t *testing.T) {
	q := NewInMemoryQueue(2)
	defer q.Close()

	require.NoError(t, q.Push(&Task{ID: "1"}))
	require.NoError(t, q.Push(&Task{ID: "2"}))
	assert.ErrorIs(t, q.Push(&Task{ID: "3"}), ErrQueueFull)
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := NewInMemoryQueue(0)
	defer q.Close()

	done := make(chan *Task, 1)
	go func() {
		task, err := q.Pop(context.Background())
		if err == nil {
			done <- task
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(&Task{ID: "late"}))

	select {
	case task := <-done:
		assert.Equal(t, "late", task.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not wake up after Push")
	}
}

func TestPopContextCancellation(t *testing.T) {
	q := NewInMemoryQueue(0)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	q := NewInMemoryQueue(0)
	require.NoError(t, q.Push(&Task{ID: "leftover"}))
	require.NoError(t, q.Close())

	// Already queued tasks drain before the closed error surfaces.
	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "leftover", task.ID)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)

	assert.ErrorIs(t, q.Push(&Task{ID: "rejected"}), ErrQueueClosed)
}
