package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/service"
)

type fakeSweeper struct {
	mu      sync.Mutex
	calls   int
	batches []int
	result  service.SweepResult
	err     error
}

func (f *fakeSweeper) ExpireStale(_ context.Context, batchSize int) (service.SweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batches = append(f.batches, batchSize)
	return f.result, f.err
}

func (f *fakeSweeper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestExpiryWorker_RunsSweepsUntilCancelled(t *testing.T) {
	sweeper := &fakeSweeper{result: service.SweepResult{Expired: 2}}
	w := NewExpiryWorker(sweeper, 5*time.Millisecond, 50)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.callCount() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	sweeper.mu.Lock()
	defer sweeper.mu.Unlock()
	for _, batch := range sweeper.batches {
		assert.Equal(t, 50, batch)
	}
}

func TestExpiryWorker_SweepErrorDoesNotStopWorker(t *testing.T) {
	sweeper := &fakeSweeper{err: assert.AnError}
	w := NewExpiryWorker(sweeper, 5*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// Keeps ticking past failed runs.
	assert.Eventually(t, func() bool { return sweeper.callCount() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
