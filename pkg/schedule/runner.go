// Package schedule runs capture jobs on cron expressions.
package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work
type Job func(ctx context.Context) error

// parser accepts five-field expressions and descriptors such as "@every 1h"
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseExpr validates a cron expression
func ParseExpr(expr string) (cron.Schedule, error) {
	s, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return s, nil
}

// Runner manages scheduled jobs
type Runner struct {
	cron   *cron.Cron
	jobs   map[string]registered
	mu     sync.RWMutex
	logger *log.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

type registered struct {
	entry cron.EntryID
	expr  string
	job   Job
}

// NewRunner creates a new schedule runner
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		jobs:   make(map[string]registered),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under name. Overlapping runs of the same job are skipped.
func (r *Runner) Add(name, expr string, job Job) error {
	if name == "" {
		return fmt.Errorf("job name cannot be empty")
	}
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if _, err := ParseExpr(expr); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	entryID, err := r.cron.AddFunc(expr, func() { r.execute(name, job) })
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	r.jobs[name] = registered{entry: entryID, expr: expr, job: job}

	r.logger.Printf("Registered job '%s' with cron expression: %s", name, expr)
	return nil
}

// Remove unregisters a job
func (r *Runner) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reg, exists := r.jobs[name]; exists {
		r.cron.Remove(reg.entry)
		delete(r.jobs, name)
		r.logger.Printf("Unregistered job '%s'", name)
	}
}

// RunNow executes a registered job synchronously
func (r *Runner) RunNow(name string) error {
	r.mu.RLock()
	reg, exists := r.jobs[name]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %q not found", name)
	}
	return r.run(name, reg.job)
}

// Start starts the scheduler
func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Printf("Scheduler started with %d jobs", len(r.ListJobs()))
}

// Stop stops the scheduler and waits up to timeout for running jobs
func (r *Runner) Stop(timeout time.Duration) {
	r.logger.Println("Stopping scheduler...")

	r.cancel()
	ctx := r.cron.Stop()

	select {
	case <-ctx.Done():
		r.logger.Println("All jobs completed")
	case <-time.After(timeout):
		r.logger.Println("Timeout waiting for jobs to complete")
	}
}

// ListJobs returns information about all scheduled jobs
func (r *Runner) ListJobs() []cron.Entry {
	return r.cron.Entries()
}

// Next returns when the named job fires next, or the zero time if unknown
func (r *Runner) Next(name string) time.Time {
	r.mu.RLock()
	reg, exists := r.jobs[name]
	r.mu.RUnlock()

	if !exists {
		return time.Time{}
	}
	return r.cron.Entry(reg.entry).Next
}

func (r *Runner) execute(name string, job Job) {
	select {
	case <-r.ctx.Done():
		return
	default:
	}

	if err := r.run(name, job); err != nil {
		r.logger.Printf("Failed to execute job %s: %v", name, err)
	}
}

// run executes job and turns a panic into an error
func (r *Runner) run(name string, job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in job %s: %v", name, p)
		}
	}()

	start := time.Now()
	r.logger.Printf("Executing job: %s", name)
	err = job(r.ctx)
	r.logger.Printf("Completed job %s in %s", name, time.Since(start).Round(time.Millisecond))
	return err
}
