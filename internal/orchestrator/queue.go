package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
)

// Job is one queued verification request.
type Job struct {
	ApplicationID int64
	Steps         []string
	Requester     string
}

// JobHandle tracks an enqueued job through completion. Callers poll
// Snapshot or block on Wait.
type JobHandle struct {
	ID  string
	Job Job

	mu     sync.Mutex
	status model.JobStatus
	result *model.JobResult
	err    error
	done   chan struct{}
}

func newHandle(job Job) *JobHandle {
	return &JobHandle{
		ID:     uuid.NewString(),
		Job:    job,
		status: model.JobStatusQueued,
		done:   make(chan struct{}),
	}
}

// Snapshot returns the current status plus, once the job has finished, its
// result or error.
func (h *JobHandle) Snapshot() (model.JobStatus, *model.JobResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, h.result, h.err
}

// Wait blocks until the job finishes or the context is done.
func (h *JobHandle) Wait(ctx context.Context) (*model.JobResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.err
}

func (h *JobHandle) setRunning() {
	h.mu.Lock()
	h.status = model.JobStatusRunning
	h.mu.Unlock()
}

func (h *JobHandle) finish(result *model.JobResult, err error) {
	h.mu.Lock()
	switch {
	case err != nil:
		h.status = model.JobStatusFailed
	default:
		h.status = result.Status
	}
	h.result = result
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// Queue runs verification jobs on a fixed worker pool. Jobs execute at
// least once and in-flight jobs run to completion on shutdown.
type Queue struct {
	orc     *Orchestrator
	jobs    chan *JobHandle
	baseCtx context.Context

	mu      sync.Mutex
	handles map[string]*JobHandle
	closed  bool

	// producers counts Enqueue calls between their closed check and their
	// channel send; Shutdown waits for it before closing jobs so a racing
	// send can never hit a closed channel.
	producers sync.WaitGroup

	wg sync.WaitGroup
}

// NewQueue starts workers goroutines consuming the queue. ctx bounds the
// lifetime of job execution; jobs still apply their own ceiling timeout.
func NewQueue(ctx context.Context, orc *Orchestrator, workers int) *Queue {
	if workers <= 0 {
		workers = 4
	}
	q := &Queue{
		orc:     orc,
		jobs:    make(chan *JobHandle, workers*4),
		baseCtx: ctx,
		handles: make(map[string]*JobHandle),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue registers the job and hands it to the worker pool.
func (q *Queue) Enqueue(job Job) (*JobHandle, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, eris.New("orchestrator: queue is shut down")
	}
	handle := newHandle(job)
	q.handles[handle.ID] = handle
	q.producers.Add(1)
	q.mu.Unlock()

	q.jobs <- handle
	q.producers.Done()
	zap.L().Info("orchestrator: job enqueued",
		zap.String("job_id", handle.ID),
		zap.Int64("application_id", job.ApplicationID),
	)
	return handle, nil
}

// Lookup returns the handle for a previously enqueued job.
func (q *Queue) Lookup(id string) (*JobHandle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	h, ok := q.handles[id]
	return h, ok
}

// Shutdown stops intake and waits for in-flight jobs to finish.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	// Workers keep draining until the channel closes, so a producer parked
	// on a full buffer always completes its send.
	q.producers.Wait()
	close(q.jobs)
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for handle := range q.jobs {
		handle.setRunning()
		result, err := q.orc.ProcessJob(q.baseCtx, handle.Job.ApplicationID, handle.Job.Steps, handle.Job.Requester)
		handle.finish(result, err)
	}
}
