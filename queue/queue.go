// Package queue runs page actions one at a time. There is a single worker,
// so two requests never drive the page concurrently.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned for work submitted to or pending on a closed queue.
var ErrClosed = errors.New("queue closed")

const (
	cleanupInterval = 5 * time.Minute
	retainFinished  = 30 * time.Minute
	backlog         = 64
)

// Observer is told about every job that reaches a terminal status.
type Observer interface {
	JobFinished(ctx context.Context, job Job)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, job Job)

func (f ObserverFunc) JobFinished(ctx context.Context, job Job) { f(ctx, job) }

// failureReporter is implemented by results that carry a page-level failure
// instead of returning an error.
type failureReporter interface {
	FailureReason() string
}

type outcome struct {
	value any
	err   error
}

type task struct {
	id     string
	ctx    context.Context
	fn     func(context.Context) (any, error)
	result chan outcome
}

type Queue struct {
	store     *JobStore
	tasks     chan *task
	observers []Observer
	logger    *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func New(logger *slog.Logger, observers ...Observer) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:     NewJobStore(),
		tasks:     make(chan *task, backlog),
		observers: observers,
		logger:    logger.With("component", "queue"),
		done:      make(chan struct{}),
	}
}

// Start launches the worker and the cleanup loop. Both stop on Close.
func (q *Queue) Start() {
	q.wg.Add(2)
	go q.worker()
	go q.cleanupWorker()
	q.logger.Info("started page worker")
}

// Close stops the worker after the job in progress. Jobs still queued are
// marked cancelled and their callers get ErrClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
	q.wg.Wait()
	for {
		select {
		case t := <-q.tasks:
			q.abandon(t.ctx, t.id)
		default:
			return
		}
	}
}

// Job returns a snapshot of one job.
func (q *Queue) Job(id string) (Job, bool) { return q.store.Get(id) }

// Pending is the number of jobs waiting for the worker.
func (q *Queue) Pending() int { return q.store.CountStatus(StatusPending) }

// Run submits fn and blocks until it has run, ctx ends, or the queue closes.
// A job whose ctx ends before the worker picks it up is skipped.
func Run[T any](ctx context.Context, q *Queue, action string, params map[string]any, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	select {
	case <-q.done:
		return zero, ErrClosed
	default:
	}

	job := q.store.Create(action, params)
	t := &task{
		id:  job.ID,
		ctx: ctx,
		fn: func(ctx context.Context) (any, error) {
			return fn(ctx)
		},
		result: make(chan outcome, 1),
	}

	select {
	case q.tasks <- t:
	case <-ctx.Done():
		q.finish(context.WithoutCancel(ctx), job.ID, StatusCancelled, ctx.Err().Error())
		return zero, ctx.Err()
	case <-q.done:
		q.finish(context.WithoutCancel(ctx), job.ID, StatusCancelled, ErrClosed.Error())
		return zero, ErrClosed
	}

	select {
	case out := <-t.result:
		if out.err != nil {
			return zero, out.err
		}
		v, _ := out.value.(T)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-q.done:
		q.abandon(ctx, job.ID)
		return zero, ErrClosed
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case t := <-q.tasks:
			select {
			case <-q.done:
				q.abandon(t.ctx, t.id)
				return
			default:
			}
			q.execute(t)
		}
	}
}

func (q *Queue) execute(t *task) {
	log := q.logger.With("job_id", t.id)
	if err := t.ctx.Err(); err != nil {
		log.Info("skipping job cancelled before start")
		q.finish(context.WithoutCancel(t.ctx), t.id, StatusCancelled, err.Error())
		t.result <- outcome{err: err}
		return
	}

	q.store.MarkRunning(t.id)
	value, err := q.call(t)

	status, msg := StatusCompleted, ""
	switch {
	case err != nil && t.ctx.Err() != nil:
		status, msg = StatusCancelled, err.Error()
	case err != nil:
		status, msg = StatusFailed, err.Error()
	default:
		if fr, ok := value.(failureReporter); ok {
			if reason := fr.FailureReason(); reason != "" {
				status, msg = StatusFailed, reason
			}
		}
	}
	job := q.store.Finish(t.id, status, msg)
	log.Info("job finished", "action", job.Action, "status", status, "duration_ms", job.DurationMs)

	// The caller gets its result before observers run.
	t.result <- outcome{value: value, err: err}
	q.notify(context.WithoutCancel(t.ctx), job)
}

// call runs the task, turning a panic into an error so the worker survives.
func (q *Queue) call(t *task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", "job_id", t.id, "panic", r)
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return t.fn(t.ctx)
}

func (q *Queue) finish(ctx context.Context, id, status, msg string) Job {
	job := q.store.Finish(id, status, msg)
	q.notify(ctx, job)
	return job
}

// abandon cancels a job the worker never started. Jobs already past pending
// are left alone.
func (q *Queue) abandon(ctx context.Context, id string) {
	if job, ok := q.store.FinishPending(id, StatusCancelled, ErrClosed.Error()); ok {
		q.notify(context.WithoutCancel(ctx), job)
	}
}

func (q *Queue) notify(ctx context.Context, job Job) {
	for _, o := range q.observers {
		o.JobFinished(ctx, job)
	}
}

func (q *Queue) cleanupWorker() {
	defer q.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			if n := q.store.CleanupOld(retainFinished); n > 0 {
				q.logger.Debug("removed finished jobs", "count", n)
			}
		}
	}
}
