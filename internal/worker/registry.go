// Package worker drives the full pipeline across a document, one page at
// a time, with durable checkpoints, pause/resume, and crash recovery.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry tracks live workers by exam id. It is an explicitly owned
// object rather than a process-wide singleton so tests can instantiate
// independent registries. Used for duplicate-start prevention and pause
// delivery only; workers themselves share no mutable state.
type Registry struct {
	mu      sync.Mutex
	workers map[string]*Worker
	logger  *slog.Logger
}

// NewRegistry creates an empty worker registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		workers: make(map[string]*Worker),
		logger:  logger,
	}
}

// Spawn starts a worker goroutine for an exam. Returns an error if a
// worker for the exam is already live.
func (r *Registry) Spawn(ctx context.Context, cfg Config) (*Worker, error) {
	w, err := New(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, exists := r.workers[cfg.ExamID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("worker already running for exam %s", cfg.ExamID)
	}
	r.workers[cfg.ExamID] = w
	r.mu.Unlock()

	go func() {
		defer r.remove(cfg.ExamID)
		w.Run(ctx)
	}()

	r.logger.Info("spawned worker", "exam_id", cfg.ExamID, "start_page", cfg.StartPage)
	return w, nil
}

// Get returns the live worker for an exam, or nil.
func (r *Registry) Get(examID string) *Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workers[examID]
}

// RequestPause signals the exam's worker to stop after the page in
// flight. Reports whether a live worker received the signal.
func (r *Registry) RequestPause(examID string) bool {
	r.mu.Lock()
	w := r.workers[examID]
	r.mu.Unlock()
	if w == nil {
		return false
	}
	w.RequestStop()
	return true
}

// PauseAll signals every live worker to stop and waits for them to exit,
// or until the context expires.
func (r *Registry) PauseAll(ctx context.Context) error {
	r.mu.Lock()
	live := make([]*Worker, 0, len(r.workers))
	for _, w := range r.workers {
		w.RequestStop()
		live = append(live, w)
	}
	r.mu.Unlock()

	for _, w := range live {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Active returns the number of live workers.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

func (r *Registry) remove(examID string) {
	r.mu.Lock()
	delete(r.workers, examID)
	r.mu.Unlock()
}
