package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/liuran001/LFGBot-Go/bot"
)

var ErrPoolClosed = errors.New("worker pool closed")

// Pool runs chat updates with bounded concurrency. A panicking task is
// logged and does not take its worker down.
type Pool struct {
	tasks    chan func()
	wg       sync.WaitGroup
	closing  chan struct{} // wakes submitters blocked on a full queue
	shutdown chan struct{} // tells workers to drain and exit
	once     sync.Once
	mu       sync.RWMutex // held for reading while a Submit may enqueue
	closed   bool
	drain    atomic.Bool
	size     int
	logger   bot.Logger
}

// New creates a worker pool with the given size.
func New(size int, logger bot.Logger) *Pool {
	if size <= 0 {
		size = 1
	}

	queueSize := size * 8
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		tasks:    make(chan func(), queueSize),
		closing:  make(chan struct{}),
		shutdown: make(chan struct{}),
		size:     size,
		logger:   logger,
	}
	p.drain.Store(true)

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.work()
	}

	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.tasks:
			p.run(task)
		case <-p.shutdown:
			if !p.drain.Load() {
				return
			}
			for {
				select {
				case task := <-p.tasks:
					p.run(task)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(task func()) {
	if task == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && p.logger != nil {
			p.logger.Error("worker task panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	task()
}

// Submit enqueues a task for execution. It blocks while the queue is full.
// A task it accepts is always in the queue before the workers drain it.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case <-p.closing:
		return ErrPoolClosed
	case p.tasks <- task:
		return nil
	}
}

// SubmitWait enqueues a task and waits for it to complete.
func (p *Pool) SubmitWait(task func() error) error {
	return p.SubmitWaitContext(context.Background(), task)
}

// SubmitWaitContext is SubmitWait bounded by ctx. The task keeps running
// when ctx ends first; only the wait is abandoned.
func (p *Pool) SubmitWaitContext(ctx context.Context, task func() error) error {
	if task == nil {
		return nil
	}

	result := make(chan error, 1)
	submitted := make(chan error, 1)
	go func() {
		submitted <- p.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					result <- fmt.Errorf("task panicked: %v", r)
				}
			}()
			result <- task()
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-submitted:
		if err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-result:
		return err
	}
}

// Shutdown stops accepting tasks, runs what is queued and waits for the
// workers until ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// StopNow closes the pool without waiting; queued tasks are dropped.
func (p *Pool) StopNow() {
	p.drain.Store(false)
	p.close()
}

// close rejects new submissions, waits out the ones already enqueueing and
// only then releases the workers.
func (p *Pool) close() {
	p.once.Do(func() {
		close(p.closing)
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.shutdown)
	})
}

// Size returns the worker count.
func (p *Pool) Size() int {
	return p.size
}
