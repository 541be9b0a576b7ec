package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/metrics"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

var ErrPoolStopped = errors.New("worker pool stopped")

// Task is one unit of background work. Ctx carries the trace id and the
// cancellation owned by whoever submitted it.
type Task struct {
	Name string
	Ctx  context.Context
	Run  func(ctx context.Context)
	// Heavy tasks ask the dispatcher for another worker straight away.
	Heavy bool
}

type Options struct {
	MinWorkers        int64
	MaxWorkers        int64
	RequestsPerWorker int64
	IdleTimeout       time.Duration
	Buffer            int
}

func DefaultOptions() Options {
	return Options{
		MinWorkers:        config.MinWorkerCount,
		MaxWorkers:        config.MaxWorkerCount,
		RequestsPerWorker: config.RequestsPerNewWorkerCount,
		IdleTimeout:       config.IdleWorkerTimeout,
		Buffer:            config.BufferLimit,
	}
}

// Pool grows on demand up to MaxWorkers and retires idle workers down to
// MinWorkers.
type Pool struct {
	opts       Options
	tasks      chan Task
	dispatcher chan bool
	stop       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	logger     *logger_i.Logger

	workerCount  int64
	requestCount int64
	stopped      atomic.Bool
}

func NewPool(opts Options) *Pool {
	if opts.MinWorkers < 1 {
		opts.MinWorkers = 1
	}
	if opts.MaxWorkers < opts.MinWorkers {
		opts.MaxWorkers = opts.MinWorkers
	}
	if opts.RequestsPerWorker < 1 {
		opts.RequestsPerWorker = 1
	}
	return &Pool{
		opts:       opts,
		tasks:      make(chan Task, opts.Buffer),
		dispatcher: make(chan bool, 1),
		stop:       make(chan struct{}),
		logger:     logger_i.NewLogger("WorkerPool"),
	}
}

func (p *Pool) Start() {
	p.logger.Info("Initializing worker pool", "min", p.opts.MinWorkers, "max", p.opts.MaxWorkers)
	for i := int64(0); i < p.opts.MinWorkers; i++ {
		p.createWorker()
	}
	go p.dispatch()
}

// Submit queues task, blocking while the queue is full.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if p.stopped.Load() {
		return ErrPoolStopped
	}
	if task.Ctx == nil {
		task.Ctx = context.WithoutCancel(ctx)
	}

	select {
	case p.tasks <- task:
	case <-p.stop:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	metrics.IncrementTasksInQueue()

	count := atomic.AddInt64(&p.requestCount, 1)
	if count%p.opts.RequestsPerWorker == 0 || task.Heavy {
		metrics.StartDispatcherSignalCount()
		select {
		case p.dispatcher <- true:
		default:
		}
	}
	return nil
}

func (p *Pool) WorkerCount() int64 {
	return atomic.LoadInt64(&p.workerCount)
}

// Stop signals every worker and waits for running tasks to return. Queued
// tasks that never started are dropped.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		close(p.stop)
	})
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) dispatch() {
	p.logger.Info("Dispatcher started")
	for {
		select {
		case <-p.stop:
			return
		case <-p.dispatcher:
			if p.WorkerCount() < p.opts.MaxWorkers {
				p.logger.Debug("Creating new worker", "workerCount", p.WorkerCount())
				p.createWorker()
			}
		}
	}
}

func (p *Pool) createWorker() {
	p.wg.Add(1)
	atomic.AddInt64(&p.workerCount, 1)
	metrics.IncrementActiveWorkerCount()
	go p.work()
}

func (p *Pool) work() {
	idle := time.NewTimer(p.opts.IdleTimeout)
	defer idle.Stop()
	for {
		select {
		case task := <-p.tasks:
			metrics.DecrementTasksInQueue()
			p.execute(task)
			idle.Reset(p.opts.IdleTimeout)

		case <-p.stop:
			atomic.AddInt64(&p.workerCount, -1)
			p.removeWorker("Stop worker signal received")
			return

		case <-idle.C:
			if p.tryRetire() {
				p.removeWorker("Idle worker timeout")
				return
			}
			idle.Reset(p.opts.IdleTimeout)
		}
	}
}

// tryRetire keeps at least MinWorkers alive.
func (p *Pool) tryRetire() bool {
	for {
		current := atomic.LoadInt64(&p.workerCount)
		if current <= p.opts.MinWorkers {
			return false
		}
		if atomic.CompareAndSwapInt64(&p.workerCount, current, current-1) {
			return true
		}
	}
}

// removeWorker runs after the worker count was already decremented.
func (p *Pool) removeWorker(reason string) {
	metrics.DecrementActiveWorkerCount()
	p.logger.Debug("Removed worker", "reason", reason, "workerCount", p.WorkerCount())
	p.wg.Done()
}
