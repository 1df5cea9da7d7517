package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikogura/resume-optimizer/pkg/pipeline"
	"github.com/nikogura/resume-optimizer/pkg/request"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Pool defaults.
const (
	DefaultWorkers   = 2
	DefaultQueueSize = 32
)

// ErrQueueFull is returned by Submit when every queue slot is taken.
var ErrQueueFull = errors.New("generation queue is full")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("generation pool is closed")

// Producer turns a request into output files.
type Producer interface {
	ProduceFiles(ctx context.Context, req request.GenerationRequest)
}

// Options sizes a Pool.
type Options struct {
	Workers   int
	QueueSize int
	// RatePerMinute paces task starts across all workers. Zero means unlimited.
	RatePerMinute int
}

// Task is one queued request.
type Task struct {
	ID      string
	Request request.GenerationRequest
	done    chan struct{}
}

// Pool runs generation requests on a fixed set of workers draining a bounded queue.
type Pool struct {
	producer Producer
	queue    chan *Task
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts the workers.
func NewPool(producer Producer, opts Options, logger *slog.Logger) (p *Pool) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	p = &Pool{
		producer: producer,
		queue:    make(chan *Task, opts.QueueSize),
		logger:   logger,
	}

	if opts.RatePerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), 1)
	}

	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.work(i)
	}

	logger.Info("generation pool started",
		slog.Int("workers", opts.Workers),
		slog.Int("queue", opts.QueueSize),
		slog.Int("rate_per_minute", opts.RatePerMinute))

	return p
}

// Submit queues req under a fresh ID. The returned channel closes when its files are produced.
func (p *Pool) Submit(req request.GenerationRequest) (done <-chan struct{}, err error) {
	done, err = p.SubmitWithID(uuid.New().String(), req)
	return done, err
}

// SubmitWithID queues req under id, which tags its log lines and history entries.
func (p *Pool) SubmitWithID(id string, req request.GenerationRequest) (done <-chan struct{}, err error) {
	task := &Task{
		ID:      id,
		Request: req,
		done:    make(chan struct{}),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		err = ErrClosed
		return done, err
	}

	select {
	case p.queue <- task:
		done = task.done
		p.logger.Info("request queued", slog.String("request_id", id), slog.Int("pending", len(p.queue)))
	default:
		err = ErrQueueFull
	}

	return done, err
}

// Pending reports how many tasks are waiting for a worker.
func (p *Pool) Pending() (n int) {
	n = len(p.queue)
	return n
}

// Close stops intake and waits for queued and running tasks to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("generation pool stopped")
}

func (p *Pool) work(worker int) {
	defer p.wg.Done()

	for task := range p.queue {
		if p.limiter != nil {
			_ = p.limiter.Wait(context.Background())
		}
		p.run(worker, task)
	}
}

// run executes one task. A panic is logged and the worker carries on.
func (p *Pool) run(worker int, task *Task) {
	logger := p.logger.With(slog.String("request_id", task.ID), slog.Int("worker", worker))

	defer close(task.done)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("generation panicked", slog.Any("panic", r))
		}
	}()

	started := time.Now()
	logger.Info("generation started")

	p.producer.ProduceFiles(pipeline.WithRequestID(context.Background(), task.ID), task.Request)

	logger.Info("generation finished", slog.Duration("elapsed", time.Since(started)))
}
