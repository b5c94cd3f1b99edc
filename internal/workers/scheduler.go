package workers

import (
	"context"
	"sync"
	"time"

	"eventpulse/internal/metrics"
	"eventpulse/pkg/errors"
	"eventpulse/pkg/logger"
)

// Scheduler manages and coordinates multiple workers
type Scheduler struct {
	workers []Worker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	log     *logger.Logger
	started bool
}

// NewScheduler creates a new worker scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		workers: make([]Worker, 0),
		log:     logger.Get(),
		started: false,
	}
}

// RegisterWorker adds a worker to the scheduler
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warn("Cannot register worker after scheduler has started", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Info("Worker registered", "worker", w.Name(), "interval", w.Interval())
}

// Start begins running all registered workers. Every worker gets a loop,
// disabled ones included; the enabled flag is checked per tick so a worker
// toggled at runtime picks up on its next interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}

	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Info("Starting worker scheduler", "workers", len(s.workers))

	for _, worker := range s.workers {
		s.wg.Add(1)
		go s.runWorker(worker)
	}

	s.log.Info("All workers started")
	return nil
}

// Stop gracefully shuts down all workers
// Uses a 2-minute timeout so in-flight batch iterations can finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler not started")
	}

	// Cancel context to signal all workers to stop
	s.cancel()

	// Release lock before waiting to allow workers to check s.started if needed
	s.mu.Unlock()

	s.log.Info("Stopping worker scheduler...")

	// Wait for all workers to finish with timeout; a stuck provider call
	// holding an iteration open should not hang shutdown forever
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var shutdownErr error
	select {
	case <-done:
		s.log.Info("All workers stopped gracefully")
	case <-time.After(2 * time.Minute):
		s.log.Warn("Worker shutdown timed out after 2 minutes")
		shutdownErr = errors.Wrapf(errors.ErrInternal, "shutdown timeout after 2 minutes")
	}

	// Re-acquire lock to update state
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return shutdownErr
}

// runWorker executes a single worker in a loop
func (s *Scheduler) runWorker(worker Worker) {
	defer s.wg.Done()

	s.log.Info("Worker started", "worker", worker.Name(), "enabled", worker.Enabled())

	ticker := time.NewTicker(worker.Interval())
	defer ticker.Stop()

	// Run immediately on start
	if worker.Enabled() {
		s.executeWorker(worker)
	}

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info("Worker stopping due to context cancellation", "worker", worker.Name())
			return

		case <-ticker.C:
			if !worker.Enabled() {
				continue
			}
			s.executeWorker(worker)
		}
	}
}

// executeWorker runs a single iteration of the worker with error handling
func (s *Scheduler) executeWorker(worker Worker) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Worker panicked",
				"worker", worker.Name(),
				"panic", r,
			)
			s.recordExecution(worker, errors.Newf("panic: %v", r), time.Since(start))
		}
	}()

	err := worker.Run(s.ctx)
	duration := time.Since(start)
	s.recordExecution(worker, err, duration)

	if err != nil {
		s.log.Error("Worker execution failed",
			"worker", worker.Name(),
			"error", err,
			"duration", duration,
		)
	} else {
		s.log.Debug("Worker execution completed",
			"worker", worker.Name(),
			"duration", duration,
		)
	}
}

// recordExecution feeds one iteration's outcome into the prometheus metrics
// and the worker's own health counters
func (s *Scheduler) recordExecution(worker Worker, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.WorkerExecutions.WithLabelValues(worker.Name(), status).Inc()
	metrics.WorkerDuration.WithLabelValues(worker.Name()).Observe(duration.Seconds())
	metrics.WorkerLastRun.WithLabelValues(worker.Name()).Set(float64(time.Now().Unix()))

	if hw, ok := worker.(WorkerWithHealth); ok {
		if err != nil {
			hw.RecordError(err, duration)
		} else {
			hw.RecordRun(duration)
		}
	}
}

// WorkerHealths returns a health snapshot per worker, keyed by name
func (s *Scheduler) WorkerHealths() map[string]WorkerHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]WorkerHealth, len(s.workers))
	for _, w := range s.workers {
		if hw, ok := w.(WorkerWithHealth); ok {
			out[w.Name()] = hw.Health()
		}
	}
	return out
}

// SetWorkerEnabled toggles a worker by name. Takes effect on the worker's
// next tick; an in-flight iteration is never interrupted.
func (s *Scheduler) SetWorkerEnabled(name string, enabled bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.workers {
		if w.Name() != name {
			continue
		}
		hw, ok := w.(WorkerWithHealth)
		if !ok {
			return errors.Wrapf(errors.ErrInvalidInput, "worker %s cannot be toggled", name)
		}
		hw.SetEnabled(enabled)
		return nil
	}
	return errors.Wrapf(errors.ErrNotFound, "worker %s", name)
}

// GetWorkers returns a list of all registered workers (for debugging/monitoring)
func (s *Scheduler) GetWorkers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]Worker, len(s.workers))
	copy(workers, s.workers)
	return workers
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
