// Package local provides an in-process job dispatcher backed by a buffered
// channel. Delivery is at-least-once within the process; the pipeline's
// atomic claim makes duplicate deliveries harmless.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/vision/internal/core/ports/driven"
	"github.com/custodia-labs/vision/internal/logger"
)

// Ensure Dispatcher implements the interface.
var _ driven.Dispatcher = (*Dispatcher)(nil)

// DefaultBufferSize is how many dispatched jobs can queue before Dispatch
// blocks.
const DefaultBufferSize = 256

// Dispatcher queues job IDs for in-process workers.
type Dispatcher struct {
	ch chan string

	mu     sync.RWMutex
	closed bool
}

// Option configures the dispatcher.
type Option func(*options)

type options struct {
	bufferSize int
}

// WithBufferSize sets the queue depth.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// NewDispatcher creates a new local dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	o := options{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Dispatcher{ch: make(chan string, o.bufferSize)}
}

// Dispatch enqueues a job ID. It blocks when the buffer is full and
// returns the context error if the caller gives up first.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return fmt.Errorf("dispatcher is closed")
	}

	select {
	case d.ch <- jobID:
		logger.Debug("Dispatched job %s", jobID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns the delivery channel workers consume from. The channel is
// closed by Close once no more deliveries will arrive.
func (d *Dispatcher) Jobs() <-chan string {
	return d.ch
}

// Close stops delivery. It waits for in-flight Dispatch calls to return;
// queued jobs can still be drained afterwards.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	close(d.ch)
	return nil
}
