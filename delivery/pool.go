package delivery

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

// DefaultWorkers is the default pool size.
const DefaultWorkers = 3

// PoolConfig configures a Pool.
type PoolConfig struct {
	ExecutorConfig
	Workers int
}

// Pool is the threaded backend. Enqueue appends to an unbounded FIFO queue
// and returns at once; a fixed set of workers block on the queue and make
// the HTTP calls outside the lock. Each queued request runs exactly once.
type Pool struct {
	exec    *Executor
	workers int
	logger  *slog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*Request
	inflight int
	started  bool
	closed   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Dispatcher = (*Pool)(nil)

// NewPool creates a pool. Requests enqueued before Start wait in the queue.
func NewPool(cfg PoolConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	p := &Pool{
		exec:    NewExecutor(cfg.ExecutorConfig, logger),
		workers: cfg.Workers,
		logger:  logger,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the workers. Workers inherit ctx's values but not its
// cancellation: queued requests keep running until Stop, and only Stop's
// deadline aborts them.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.work(ctx)
		}()
	}
	p.logger.DebugContext(ctx, "resthook: delivery pool started", "workers", p.workers)
}

// Enqueue queues req. It never blocks on I/O.
func (p *Pool) Enqueue(ctx context.Context, req *Request) error {
	if !req.Parent.IsValid() {
		req.Parent = trace.SpanContextFromContext(ctx)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrDispatcherClosed
	}
	p.queue = append(p.queue, req)
	depth := len(p.queue)
	// Drain waits on the same condition, so a single Signal could be lost.
	p.cond.Broadcast()
	p.mu.Unlock()

	p.exec.config.Metrics.SetPending(depth)
	return nil
}

// Stop refuses new requests and waits for the workers to drain the queue.
// If ctx ends first, in-flight requests are cancelled and queued ones are
// dropped.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	started := p.started
	p.cond.Broadcast()
	p.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.mu.Lock()
		dropped := len(p.queue)
		p.queue = nil
		p.mu.Unlock()
		p.cancel()
		<-done
		p.logger.WarnContext(ctx, "resthook: delivery pool stopped before draining", "dropped", dropped)
		return ctx.Err()
	}
}

// Drain blocks until the queue is empty and no request is in flight, or
// ctx ends.
func (p *Pool) Drain(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) > 0 || p.inflight > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.cond.Wait()
	}
	return nil
}

// Pending returns the number of queued requests.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Sent returns the number of completed attempts.
func (p *Pool) Sent() int64 { return p.exec.Sent() }

func (p *Pool) work(ctx context.Context) {
	for {
		req, ok := p.next()
		if !ok {
			return
		}
		p.exec.Execute(ctx, req)

		p.mu.Lock()
		p.inflight--
		if len(p.queue) == 0 && p.inflight == 0 {
			p.cond.Broadcast()
		}
		p.mu.Unlock()
	}
}

// next blocks for the oldest queued request. It reports false once the pool
// is closed and the queue is empty.
func (p *Pool) next() (*Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}
	req := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.inflight++
	p.exec.config.Metrics.SetPending(len(p.queue))
	return req, true
}
