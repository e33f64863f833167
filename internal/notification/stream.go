package notification

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// Stream entry fields.
const (
	FieldID   = "id"
	FieldBody = "body"
)

// StreamDispatcher appends messages to a capped redis stream.
type StreamDispatcher struct {
	client  redis.Cmdable
	stream  string
	maxLen  int64
	timeout time.Duration
}

// NewStreamDispatcher builds a dispatcher writing to stream.
func NewStreamDispatcher(client redis.Cmdable, stream string, maxLen int64, timeout time.Duration) *StreamDispatcher {
	return &StreamDispatcher{client: client, stream: stream, maxLen: maxLen, timeout: timeout}
}

// Dispatch enqueues msg and returns its message id. It does not wait for
// delivery.
func (d *StreamDispatcher) Dispatch(ctx context.Context, msg Message) (string, error) {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	body, err := msg.Encode()
	if err != nil {
		return "", oops.Code("MAIL_ENCODE_FAILED").With("message_id", msg.ID).Wrap(err)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	args := &redis.XAddArgs{
		Stream: d.stream,
		Values: map[string]interface{}{FieldID: msg.ID, FieldBody: string(body)},
	}
	if d.maxLen > 0 {
		args.MaxLen = d.maxLen
		args.Approx = true
	}
	if err := d.client.XAdd(ctx, args).Err(); err != nil {
		return "", oops.Code("MAIL_ENQUEUE_FAILED").
			With("stream", d.stream).
			With("message_id", msg.ID).
			Wrap(err)
	}
	return msg.ID, nil
}
