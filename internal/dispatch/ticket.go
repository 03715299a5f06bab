package dispatch

import (
	"context"
	"sync"

	"fieldrelay/internal/model"
)

// Ticket carries the eventual outcome of one submitted capture event.
// It resolves exactly once: with a result, with an analysis failure, or
// with ErrSuperseded when a newer frame replaced the event before it was
// dispatched.
type Ticket struct {
	done   chan struct{}
	once   sync.Once
	result *model.AnalysisResult
	err    error
}

func newTicket() *Ticket {
	return &Ticket{done: make(chan struct{})}
}

func (t *Ticket) resolve(result *model.AnalysisResult, err error) {
	t.once.Do(func() {
		t.result = result
		t.err = err
		close(t.done)
	})
}

// Wait blocks until the ticket resolves or ctx is done.
func (t *Ticket) Wait(ctx context.Context) (*model.AnalysisResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done returns a channel closed when the ticket has resolved.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}
