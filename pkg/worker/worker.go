package worker

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/nimasrn/campaign-mailer/pkg/logger"
)

var ErrTerminated = errors.New("workers terminated")

type Handler[T any] func(workerIndex int, job T)

// PanicHandler is told about a job whose handler panicked.
type PanicHandler[T any] func(workerIndex int, job T, err error)

type Manager[T any] struct {
	jobs     chan T
	workers  int
	quit     chan struct{}
	quitOnce sync.Once
	do       Handler[T]
	onPanic  PanicHandler[T]
	waiter   sync.WaitGroup
}

// New is a job manager based on goroutines. Jobs published with Enqueue are
// distributed among workers goroutines until Exit is called. A nil jobs
// channel gets a buffered channel of bufferSize; an external channel is
// never closed by the manager.
func New[T any](bufferSize, workers int, jobs chan T) *Manager[T] {
	if jobs == nil {
		jobs = make(chan T, bufferSize)
	}
	if workers <= 0 {
		workers = 1
	}
	return &Manager[T]{
		workers: workers,
		jobs:    jobs,
		quit:    make(chan struct{}),
	}
}

func (w *Manager[T]) Unread() int {
	return len(w.jobs)
}

func (w *Manager[T]) SetWorker(h Handler[T]) {
	w.do = h
}

func (w *Manager[T]) SetPanicHandler(h PanicHandler[T]) {
	w.onPanic = h
}

// Enqueue publishes a job; it blocks while the buffer is full and gives up
// once the manager is exiting.
func (w *Manager[T]) Enqueue(job T) bool {
	select {
	case w.jobs <- job:
		return true
	case <-w.quit:
		return false
	}
}

// Start runs the workers and blocks until Exit is called.
func (w *Manager[T]) Start() error {
	if w.do == nil {
		return errors.New("worker handler is not set")
	}
	w.waiter.Add(w.workers)
	for i := 0; i < w.workers; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobs:
					w.run(index, job)
				case <-w.quit:
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()

	return ErrTerminated
}

// run keeps a panicking job from taking its worker down.
func (w *Manager[T]) run(index int, job T) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("worker panic: %v", r)
			logger.Error("worker recovered from panic", "worker", index, "panic", r, "stack", string(debug.Stack()))
			if w.onPanic != nil {
				w.onPanic(index, job, err)
			}
		}
	}()
	w.do(index, job)
}

// Exit stops every worker after its current job.
func (w *Manager[T]) Exit() {
	w.quitOnce.Do(func() {
		logger.Info("worker manager is shutting down", "workers", w.workers, "unread", w.Unread())
		close(w.quit)
	})
}
