package registry

import (
	"context"
	"sync"
	"time"

	"github.com/arihq/ari/internal/stream"
	"github.com/arihq/ari/pkg/models"
)

// cancelGrace is how long a cancelled root task gets to wind down before the
// multiplexer closes the stream without it.
const cancelGrace = 2 * time.Second

// Multiplexer merges every registered agent's stream events into one
// unbounded FIFO sequence. Events are never dropped: producers never block
// and consumers drain at their own pace. The sequence ends when the root task
// given to Run completes and all buffered events are consumed.
type Multiplexer struct {
	reg   *Registry
	queue *stream.Queue[models.StreamEvent]

	done chan struct{}

	mu  sync.Mutex
	err error
}

// NewMultiplexer creates a multiplexer over the given registry. From this
// point on, every agent registered (now or later) feeds the merged sequence.
func NewMultiplexer(reg *Registry) *Multiplexer {
	m := &Multiplexer{
		reg:   reg,
		queue: stream.NewQueue[models.StreamEvent](),
		done:  make(chan struct{}),
	}
	reg.AttachSink(func(ev models.StreamEvent) {
		m.queue.Push(ev)
	})
	return m
}

// Run starts the root task in the background. When it returns, the merged
// sequence is closed; already buffered events remain consumable. If ctx is
// cancelled, the root task gets a short grace period to finish before the
// sequence is closed without it.
func (m *Multiplexer) Run(ctx context.Context, root func(context.Context) error) {
	go func() {
		defer close(m.done)
		defer m.queue.Close()

		errCh := make(chan error, 1)
		go func() {
			errCh <- root(ctx)
		}()

		select {
		case err := <-errCh:
			m.setErr(err)
		case <-ctx.Done():
			select {
			case err := <-errCh:
				m.setErr(err)
			case <-time.After(cancelGrace):
				m.setErr(ctx.Err())
			}
		}
	}()
}

// Next returns the next event in arrival order. ok is false once the root
// task has completed and every buffered event was delivered, or when ctx is
// cancelled.
func (m *Multiplexer) Next(ctx context.Context) (models.StreamEvent, bool) {
	return m.queue.Pop(ctx)
}

// Done is closed when the root task has completed.
func (m *Multiplexer) Done() <-chan struct{} {
	return m.done
}

// Err reports the root task's failure, if any. It is meaningful once Next
// has returned ok=false or Done is closed.
func (m *Multiplexer) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Multiplexer) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		m.err = err
	}
}
