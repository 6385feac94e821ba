package delivery

import (
	"context"
	"log/slog"
)

// Sync executes every request on the caller's goroutine before Enqueue
// returns. Use it where background goroutines are unwanted, or in tests.
type Sync struct {
	exec *Executor
}

var _ Dispatcher = (*Sync)(nil)

// NewSync creates a synchronous dispatcher.
func NewSync(cfg ExecutorConfig, logger *slog.Logger) *Sync {
	return &Sync{exec: NewExecutor(cfg, logger)}
}

// Enqueue performs req immediately. Delivery failures are not returned.
func (s *Sync) Enqueue(ctx context.Context, req *Request) error {
	s.exec.Execute(ctx, req)
	return nil
}

// Sent returns the number of completed attempts.
func (s *Sync) Sent() int64 { return s.exec.Sent() }
