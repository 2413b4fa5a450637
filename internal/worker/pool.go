package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Job is one unit of pipeline work. Ctx, when set, carries the submitting
// request's cancellation into the executor; Result is whatever the executor
// produces, visible to the submitter after SubmitAndWait returns.
type Job struct {
	ID       string
	URL      string
	OrgName  string
	ClientIP string
	Ctx      context.Context
	Result   interface{}
	resultCh chan error
}

// Executor runs one job. The pool itself knows nothing about the pipeline.
type Executor func(ctx context.Context, job *Job) error

// Pool bounds how many vetting pipelines run at once. Everything beyond the
// worker count waits in the task channel.
type Pool struct {
	workers  int
	taskChan chan *Job
	executor Executor
	logger   *logrus.Logger
	wg       sync.WaitGroup
	active   int32
}

func NewPool(workers, queueSize int, executor Executor, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Pool{
		workers:  workers,
		taskChan: make(chan *Job, queueSize),
		executor: executor,
		logger:   logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.WithField("workers", p.workers).Info("Starting worker pool")

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.WithField("worker_id", id).Info("Worker started")

	for {
		select {
		case <-ctx.Done():
			p.logger.WithField("worker_id", id).Info("Worker shutting down")
			return

		case job, ok := <-p.taskChan:
			if !ok {
				p.logger.WithField("worker_id", id).Info("Job channel closed, worker exiting")
				return
			}

			p.logger.WithFields(logrus.Fields{
				"worker_id": id,
				"job_id":    job.ID,
				"url":       job.URL,
			}).Info("Processing job")

			atomic.AddInt32(&p.active, 1)
			err := p.executor(ctx, job)
			atomic.AddInt32(&p.active, -1)

			if err != nil {
				p.logger.WithError(err).WithFields(logrus.Fields{
					"worker_id": id,
					"job_id":    job.ID,
				}).Error("Job execution failed")
			} else {
				p.logger.WithFields(logrus.Fields{
					"worker_id": id,
					"job_id":    job.ID,
				}).Info("Job completed successfully")
			}

			if job.resultCh != nil {
				job.resultCh <- err
				close(job.resultCh)
			}
		}
	}
}

// Submit enqueues a job without waiting for it.
func (p *Pool) Submit(job *Job) error {
	select {
	case p.taskChan <- job:
		p.logger.WithField("job_id", job.ID).Debug("Job submitted to pool")
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

// SubmitAndWait enqueues a job and blocks until it finishes or the context
// is canceled.
func (p *Pool) SubmitAndWait(ctx context.Context, job *Job) error {
	job.resultCh = make(chan error, 1)

	select {
	case p.taskChan <- job:
		p.logger.WithField("job_id", job.ID).Debug("Job submitted to pool (sync)")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-job.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool")
	close(p.taskChan)
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// Stats reports pool dimensions for metrics and /api/status.
func (p *Pool) Stats() (size, active, queued int) {
	return p.workers, int(atomic.LoadInt32(&p.active)), len(p.taskChan)
}
