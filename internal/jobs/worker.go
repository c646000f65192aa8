package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/crackedclub/internal/metrics"
	"github.com/garnizeh/crackedclub/pkg/models"
)

// DeadLetterFunc is called after a job has been moved to the dead-letter table.
type DeadLetterFunc func(ctx context.Context, j *models.BackgroundJob, cause error)

type Option func(*WorkerPool)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *WorkerPool) { p.metrics = m }
}

// WithPollInterval sets how long an idle worker waits before polling again.
func WithPollInterval(d time.Duration) Option {
	return func(p *WorkerPool) {
		if d > 0 {
			p.poll = d
		}
	}
}

func WithOnDeadLetter(fn DeadLetterFunc) Option {
	return func(p *WorkerPool) { p.onDead = fn }
}

// WithBackoff replaces BackoffDuration, mostly for tests.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(p *WorkerPool) {
		if fn != nil {
			p.backoff = fn
		}
	}
}

type WorkerPool struct {
	repo        Queue
	handlers    map[string]Handler
	logger      *slog.Logger
	workerCount int
	metrics     *metrics.Metrics
	poll        time.Duration
	backoff     func(int) time.Duration
	onDead      DeadLetterFunc

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWorkerPool(repo Queue, handlers map[string]Handler, logger *slog.Logger, workerCount int, opts ...Option) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &WorkerPool{
		repo:        repo,
		handlers:    handlers,
		logger:      logger,
		workerCount: workerCount,
		poll:        500 * time.Millisecond,
		backoff:     BackoffDuration,
		stop:        make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start requeues jobs abandoned by a previous process and launches the
// worker goroutines.
func (p *WorkerPool) Start(ctx context.Context) {
	if n, err := p.repo.RequeueRunning(ctx); err != nil {
		p.logger.Error("requeue running jobs", "err", err)
	} else if n > 0 {
		p.logger.Warn("requeued jobs left running", "count", n)
	}
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them. In-flight handlers finish
// first. Safe to call more than once.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// wait sleeps for d and reports false when the pool is stopping.
func (p *WorkerPool) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.stop:
		return false
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Debug("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Debug("context canceled, worker exiting", "id", id)
			return
		default:
		}

		job, err := p.repo.FetchNext(ctx)
		if err != nil {
			p.logger.Error("fetch job", "err", err)
			if !p.wait(ctx, time.Second) {
				return
			}
			continue
		}
		if job == nil {
			if !p.wait(ctx, p.poll) {
				return
			}
			continue
		}
		p.process(ctx, job)
	}
}

func (p *WorkerPool) process(ctx context.Context, job *models.BackgroundJob) {
	log := p.logger.With("job_id", job.ID, "job_type", job.Type)

	h, ok := p.handlers[job.Type]
	if !ok {
		job.Status = models.JobFailed
		job.LastError = "no handler"
		p.deadLetter(ctx, job, fmt.Errorf("no handler for %q", job.Type))
		return
	}

	err := p.run(ctx, h, job)
	if err == nil {
		job.Status = models.JobDone
		job.LastError = ""
		if upErr := p.repo.UpdateJob(ctx, job); upErr != nil {
			log.Error("mark job done", "err", upErr)
		}
		p.metrics.Job(job.Type, "done")
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	if IsPermanent(err) {
		job.Status = models.JobFailed
		p.deadLetter(ctx, job, err)
		return
	}
	if job.Attempts >= job.MaxAttempts {
		job.Status = models.JobFailed
		p.deadLetter(ctx, job, fmt.Errorf("%w: %v", ErrMaxAttempts, err))
		return
	}

	t := time.Now().Add(p.backoff(job.Attempts))
	job.NextTryAt = &t
	job.Status = models.JobRetry
	if upErr := p.repo.UpdateJob(ctx, job); upErr != nil {
		log.Error("update job for retry", "err", upErr)
	}
	p.metrics.Job(job.Type, "retry")
	log.Warn("job failed, retrying", "attempt", job.Attempts, "next_try_at", t, "err", err)
}

func (p *WorkerPool) run(ctx context.Context, h Handler, job *models.BackgroundJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

func (p *WorkerPool) deadLetter(ctx context.Context, job *models.BackgroundJob, cause error) {
	if err := p.repo.MoveToDeadLetter(ctx, job); err != nil {
		p.logger.Error("move to dead letter", "job_id", job.ID, "err", err)
		return
	}
	p.metrics.Job(job.Type, "dead")
	p.logger.Error("job dead-lettered", "job_id", job.ID, "job_type", job.Type, "attempts", job.Attempts, "err", cause)
	if p.onDead != nil {
		p.onDead(ctx, job, cause)
	}
}

// Enqueue convenience helper that creates a job and persists it
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	return Enqueue(ctx, p.repo, typ, payload, priority, maxAttempts)
}

// Enqueue marshals payload and persists a job on q.
func Enqueue(ctx context.Context, q Queue, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	j := &models.BackgroundJob{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()}
	return q.Enqueue(ctx, j)
}
