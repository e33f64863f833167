package notification

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.uber.org/zap"
)

const defaultQueueSize = 256

// Handler handles a dispatched message.
type Handler func(context.Context, Message) error

// Dispatcher enqueues mail for asynchronous delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) (string, error)
}

// MemoryDispatcher queues messages in process and hands them to the
// subscribed handlers from Run. It backs single-instance deployments and
// tests; queued messages do not survive a restart.
type MemoryDispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
	queue    chan Message
	logger   *zap.Logger
}

// NewMemoryDispatcher creates a dispatcher with room for queueSize pending
// messages.
func NewMemoryDispatcher(queueSize int, logger *zap.Logger) *MemoryDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &MemoryDispatcher{queue: make(chan Message, queueSize), logger: logger}
}

// Dispatch queues msg and returns its id without waiting for the handlers.
// A full queue is reported as MAIL_QUEUE_FULL.
func (d *MemoryDispatcher) Dispatch(_ context.Context, msg Message) (string, error) {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	select {
	case d.queue <- msg:
		return msg.ID, nil
	default:
		return "", oops.Code("MAIL_QUEUE_FULL").
			With("message_id", msg.ID).
			With("capacity", cap(d.queue)).
			Errorf("mail queue is full")
	}
}

// Subscribe registers a handler.
func (d *MemoryDispatcher) Subscribe(handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
}

// Run delivers queued messages until ctx is cancelled, then drains what is
// already queued. Handlers see ctx values but not its cancellation, so a
// shutdown does not abort a send in progress.
func (d *MemoryDispatcher) Run(ctx context.Context) {
	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case msg := <-d.queue:
			d.deliver(handlerCtx, msg)
		case <-ctx.Done():
			for {
				select {
				case msg := <-d.queue:
					d.deliver(handlerCtx, msg)
				default:
					return
				}
			}
		}
	}
}

// deliver invokes every handler. Handler failures are logged, never returned.
func (d *MemoryDispatcher) deliver(ctx context.Context, msg Message) {
	d.mu.RLock()
	handlers := append([]Handler{}, d.handlers...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, msg); err != nil {
			d.logger.Warn("mail handler failed",
				zap.String("message_id", msg.ID),
				zap.String("type", string(msg.Type)),
				zap.Error(err))
		}
	}
}
