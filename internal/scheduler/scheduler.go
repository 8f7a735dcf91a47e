package scheduler

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Task is one named periodic job
type Task struct {
	Name     string
	Interval time.Duration
	Run      func()

	running atomic.Bool
}

// tryRun executes the task unless a previous run is still in flight
func (t *Task) tryRun() {
	if !t.running.CompareAndSwap(false, true) {
		log.Printf("⚠️  Task %s still running, skipping tick", t.Name)
		return
	}
	defer t.running.Store(false)
	t.Run()
}

// Scheduler drives a set of periodic tasks, each on its own ticker.
// Overlapping executions of the same task are skipped, not queued.
type Scheduler struct {
	tasks []*Task
	stop  chan struct{}
	wg    sync.WaitGroup
}

// New creates an empty scheduler
func New() *Scheduler {
	return &Scheduler{stop: make(chan struct{})}
}

// Add registers a periodic task. Must be called before Start.
func (s *Scheduler) Add(name string, interval time.Duration, run func()) {
	s.tasks = append(s.tasks, &Task{Name: name, Interval: interval, Run: run})
}

// Start launches every registered task. Each task runs once immediately,
// then on its interval.
func (s *Scheduler) Start() {
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(task)
		log.Printf("⏰ Scheduled task %s every %v", task.Name, task.Interval)
	}
}

func (s *Scheduler) loop(task *Task) {
	defer s.wg.Done()

	task.tryRun()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			task.tryRun()
		case <-s.stop:
			return
		}
	}
}

// Stop halts all tickers and waits for in-flight runs to finish
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	log.Println("⏰ Scheduler stopped")
}
