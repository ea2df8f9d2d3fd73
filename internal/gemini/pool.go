package gemini

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrQueueFull = errors.New("gemini: job queue full, please try again later")

// Job is one model call waiting for a worker.
type Job struct {
	ctx  context.Context
	run  func(ctx context.Context) error
	done chan error
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				if job.ctx.Err() != nil {
					job.done <- job.ctx.Err()
					continue
				}
				w.Logger.Debug("worker processing job", "worker_id", w.ID)
				job.done <- job.run(job.ctx)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Pool bounds how many model calls run at once. Submissions beyond the queue
// capacity are rejected instead of piling up.
type Pool struct {
	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewPool(maxWorkers, queueSize int, logger *slog.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		maxWorkers: maxWorkers,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			NewWorker(i, p.workerPool, p.logger).Start(p.ctx, &p.wg)
		}
		p.wg.Add(1)
		go p.dispatch()
		p.logger.Info("ai worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *Pool) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					job.done <- p.ctx.Err()
					return
				}
			case <-p.ctx.Done():
				job.done <- p.ctx.Err()
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// Do queues fn and waits for it to finish or for ctx to end.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	job := Job{ctx: ctx, run: fn, done: make(chan error, 1)}
	select {
	case p.jobQueue <- job:
	default:
		p.logger.Warn("ai job queue full", "queue_capacity", cap(p.jobQueue))
		return ErrQueueFull
	}
	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Shutdown() {
	p.logger.Info("shutting down ai worker pool")
	p.cancel()
	p.wg.Wait()
}
