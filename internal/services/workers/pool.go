package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
)

// ErrPoolClosed is returned by Submit once Wait has been called or the context is done
var ErrPoolClosed = errors.New("worker pool is closed")

// Job is one unit of work. A returned error is collected, it does not stop the pool.
type Job func(ctx context.Context) error

// Pool runs submitted jobs on a fixed number of goroutines
type Pool struct {
	ctx        context.Context
	jobs       chan Job
	maxWorkers int
	wg         sync.WaitGroup
	closeOnce  sync.Once
	closed     chan struct{}
	errors     []error
	errorsMu   sync.Mutex
	logger     arbor.ILogger
}

// NewPool starts maxWorkers workers bound to ctx
func NewPool(ctx context.Context, maxWorkers int, logger arbor.ILogger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	p := &Pool{
		ctx:        ctx,
		jobs:       make(chan Job),
		maxWorkers: maxWorkers,
		closed:     make(chan struct{}),
		logger:     logger,
	}

	for i := 0; i < maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit blocks until a worker accepts the job. It must not race with Wait.
func (p *Pool) Submit(job Job) error {
	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Wait stops accepting jobs and blocks until accepted jobs finish.
// It returns the context error when the pool was cancelled.
func (p *Pool) Wait() error {
	p.closeOnce.Do(func() {
		close(p.closed)
		close(p.jobs)
	})
	p.wg.Wait()
	return p.ctx.Err()
}

// Errors returns the errors collected from failed jobs
func (p *Pool) Errors() []error {
	p.errorsMu.Lock()
	defer p.errorsMu.Unlock()
	return append([]error(nil), p.errors...)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.run(id, job)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.record(id, fmt.Errorf("job panicked: %v", r))
		}
	}()

	if err := job(p.ctx); err != nil {
		p.record(id, err)
	}
}

func (p *Pool) record(id int, err error) {
	p.errorsMu.Lock()
	p.errors = append(p.errors, err)
	p.errorsMu.Unlock()

	p.logger.Debug().
		Err(err).
		Int("worker_id", id).
		Msg("Job failed")
}
