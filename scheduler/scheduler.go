package scheduler

import (
	"errors"
	"sync"
)

// ErrShutdown is returned by Post once the loop has been shut down.
var ErrShutdown = errors.New("scheduler is shut down")

// Config represents completion loop configuration
type Config struct {
	// InitialCapacity pre-sizes the task queue
	InitialCapacity int
}

// DefaultConfig returns the default loop configuration
func DefaultConfig() Config {
	return Config{
		InitialCapacity: 16,
	}
}

// Service is a single-driver cooperative loop.  Post enqueues work from any
// goroutine; the work runs on whichever goroutine calls Poll or Run.  The
// zero value is not usable - use New.
type Service struct {
	mu     sync.Mutex
	wake   *sync.Cond
	tasks  []func()
	holds  int
	closed bool
}

// New creates a new completion loop
func New(config Config) *Service {
	if config.InitialCapacity <= 0 {
		config.InitialCapacity = DefaultConfig().InitialCapacity
	}
	s := &Service{
		tasks: make([]func(), 0, config.InitialCapacity),
	}
	s.wake = sync.NewCond(&s.mu)
	return s
}

// Post enqueues a task for execution by the driving goroutine.  Tasks run in
// submission order.  Posting to a shut-down loop returns ErrShutdown and the
// task is dropped.
func (s *Service) Post(task func()) error {
	if task == nil {
		return errors.New("task is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrShutdown
	}
	s.tasks = append(s.tasks, task)
	s.wake.Broadcast()
	return nil
}

// Poll runs every task that is ready without blocking and returns the number
// executed.  Tasks posted while a batch runs are picked up before Poll
// returns.  A shut-down loop polls as zero.
func (s *Service) Poll() int {
	executed := 0
	for {
		batch := s.take()
		if len(batch) == 0 {
			return executed
		}
		for _, task := range batch {
			task()
			executed++
		}
	}
}

// Run drives the loop until the queue is empty and no outstanding holds
// remain, blocking while held work is pending.  It returns the number of
// tasks executed.
func (s *Service) Run() int {
	executed := 0
	for {
		s.mu.Lock()
		for !s.closed && len(s.tasks) == 0 && s.holds > 0 {
			s.wake.Wait()
		}
		if s.closed || len(s.tasks) == 0 {
			s.mu.Unlock()
			return executed
		}
		batch := s.tasks
		s.tasks = nil
		s.mu.Unlock()
		for _, task := range batch {
			task()
			executed++
		}
	}
}

// Hold registers outstanding work that keeps Run from returning while it is
// pending.  The returned release function is idempotent and safe to call from
// any goroutine.
func (s *Service) Hold() func() {
	s.mu.Lock()
	s.holds++
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.holds--
			s.wake.Broadcast()
			s.mu.Unlock()
		})
	}
}

// Shutdown closes the loop.  Queued tasks are retained but never executed,
// and subsequent Post calls fail with ErrShutdown.  Shutdown is idempotent.
func (s *Service) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.wake.Broadcast()
	s.mu.Unlock()
}

// Pending returns the number of queued tasks
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Held returns the number of outstanding holds
func (s *Service) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holds
}

// Closed reports whether Shutdown has been called
func (s *Service) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// take removes and returns the currently queued batch
func (s *Service) take() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.tasks) == 0 {
		return nil
	}
	batch := s.tasks
	s.tasks = nil
	return batch
}
