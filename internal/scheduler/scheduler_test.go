package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsTaskImmediatelyAndOnInterval(t *testing.T) {
	var runs atomic.Int32

	s := New()
	s.Add("counter", 20*time.Millisecond, func() {
		runs.Add(1)
	})
	s.Start()

	time.Sleep(110 * time.Millisecond)
	s.Stop()

	// One immediate run plus several ticks
	got := runs.Load()
	assert.GreaterOrEqual(t, got, int32(3))
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	var started atomic.Int32
	block := make(chan struct{})

	s := New()
	s.Add("slow", 10*time.Millisecond, func() {
		started.Add(1)
		<-block
	})
	s.Start()

	// The first run is still blocked while several ticks elapse
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), started.Load())

	close(block)
	s.Stop()
}

func TestSchedulerStopWaitsForInFlightRun(t *testing.T) {
	var mu sync.Mutex
	finished := false

	s := New()
	s.Add("slow", time.Hour, func() {
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		finished = true
		mu.Unlock()
	})
	s.Start()

	time.Sleep(5 * time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, finished)
}

func TestSchedulerRunsMultipleTasksIndependently(t *testing.T) {
	var first, second atomic.Int32

	s := New()
	s.Add("first", 15*time.Millisecond, func() { first.Add(1) })
	s.Add("second", 15*time.Millisecond, func() { second.Add(1) })
	s.Start()

	time.Sleep(60 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, first.Load(), int32(2))
	assert.GreaterOrEqual(t, second.Load(), int32(2))
}
