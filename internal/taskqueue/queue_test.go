package taskqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"legal_marketplace_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	m.Run()
}

func TestSubmitOrder(t *testing.T) {
	q := New(0)
	defer q.Close()

	var mu sync.Mutex
	var order []int

	results := make([]<-chan Result, 0, 3)
	for i := 1; i <= 3; i++ {
		i := i
		results = append(results, q.Submit(func(ctx context.Context) (interface{}, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
	}

	for i, res := range results {
		r := <-res
		assert.NoError(t, r.Err)
		assert.Equal(t, i+1, r.Value)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestNoOverlap(t *testing.T) {
	q := New(0)
	defer q.Close()

	var running int32
	var mu sync.Mutex
	maxSeen := 0

	done := make([]<-chan Result, 0, 5)
	for i := 0; i < 5; i++ {
		done = append(done, q.Submit(func(ctx context.Context) (interface{}, error) {
			mu.Lock()
			running++
			if int(running) > maxSeen {
				maxSeen = int(running)
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			return nil, nil
		}))
	}

	for _, res := range done {
		<-res
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxSeen)
}

func TestFailureDoesNotStopQueue(t *testing.T) {
	q := New(0)
	defer q.Close()

	boom := errors.New("boom")
	first := q.Submit(func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	second := q.Submit(func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})

	r1 := <-first
	assert.ErrorIs(t, r1.Err, boom)

	r2 := <-second
	assert.NoError(t, r2.Err)
	assert.Equal(t, "ok", r2.Value)
}

func TestHungTaskHitsDeadline(t *testing.T) {
	q := New(20 * time.Millisecond)
	defer q.Close()

	block := make(chan struct{})
	defer close(block)

	hung := q.Submit(func(ctx context.Context) (interface{}, error) {
		<-block
		return nil, nil
	})
	next := q.Submit(func(ctx context.Context) (interface{}, error) {
		return "alive", nil
	})

	r1 := <-hung
	assert.ErrorIs(t, r1.Err, context.DeadlineExceeded)

	// the queue must keep processing after the expired entry
	r2 := <-next
	assert.NoError(t, r2.Err)
	assert.Equal(t, "alive", r2.Value)
}

func TestPanicIsIsolated(t *testing.T) {
	q := New(0)
	defer q.Close()

	panicked := q.Submit(func(ctx context.Context) (interface{}, error) {
		panic("bang")
	})
	next := q.Submit(func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})

	r1 := <-panicked
	assert.Error(t, r1.Err)

	r2 := <-next
	assert.NoError(t, r2.Err)
	assert.Equal(t, 42, r2.Value)
}

func TestSubmitAfterClose(t *testing.T) {
	q := New(0)
	q.Close()

	res := <-q.Submit(func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.Error(t, res.Err)
}
