package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/dormmanager/backend/internal/config"
	"github.com/dormmanager/backend/internal/notification"
	"github.com/dormmanager/backend/pkg/util"
)

const (
	defaultBlock       = 5 * time.Second
	defaultBatch       = 16
	defaultRetryEvery  = 30 * time.Second
	defaultMaxAttempts = 5
	readRetryDelay     = time.Second
)

// StreamReader is the consumer group subset of redis.Cmdable.
type StreamReader interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Deliverer sends one decoded message.
type Deliverer interface {
	Deliver(ctx context.Context, msg notification.Message) error
}

// MailWorker consumes the mail stream through a consumer group. Entries are
// acknowledged once delivered or once they prove undecodable. Failed sends
// stay pending and are retried by a periodic sweep of this consumer's pending
// list; an entry that fails maxAttempts times is acknowledged and dropped.
type MailWorker struct {
	reader      StreamReader
	deliverer   Deliverer
	stream      string
	group       string
	consumer    string
	block       time.Duration
	retryEvery  time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// NewMailWorker builds a worker.
func NewMailWorker(reader StreamReader, deliverer Deliverer, cfg config.NotificationConfig, logger *zap.Logger) *MailWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	consumer := cfg.Consumer
	if consumer == "" {
		consumer = "mailer-1"
	}
	w := &MailWorker{
		reader:      reader,
		deliverer:   deliverer,
		stream:      cfg.Stream,
		group:       cfg.Group,
		consumer:    consumer,
		block:       defaultBlock,
		retryEvery:  defaultRetryEvery,
		maxAttempts: defaultMaxAttempts,
		logger:      logger.With(zap.String("stream", cfg.Stream), zap.String("consumer", consumer)),
	}
	return w.WithRetry(cfg.RetryEvery(), cfg.MaxAttempts)
}

// WithBlock overrides how long a single read waits for new entries.
func (w *MailWorker) WithBlock(block time.Duration) *MailWorker {
	w.block = block
	return w
}

// WithRetry sets how often pending entries are swept for redelivery and how
// many delivery attempts an entry gets before it is dropped.
func (w *MailWorker) WithRetry(every time.Duration, maxAttempts int) *MailWorker {
	if every > 0 {
		w.retryEvery = every
	}
	if maxAttempts > 0 {
		w.maxAttempts = maxAttempts
	}
	return w
}

// Run processes entries until ctx is cancelled. Entries left pending by a
// previous run of this consumer are replayed first, and again on every
// retry sweep.
func (w *MailWorker) Run(ctx context.Context) error {
	if err := w.ensureGroup(ctx); err != nil {
		return err
	}
	w.logger.Info("mail worker started")
	defer w.logger.Info("mail worker stopped")

	attempts := map[string]int{}
	cursor := "0"
	lastSweep := time.Now()
	for {
		if ctx.Err() != nil {
			return nil
		}
		if cursor == ">" && time.Since(lastSweep) >= w.retryEvery {
			cursor = "0"
			lastSweep = time.Now()
		}

		streams, err := w.reader.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.group,
			Consumer: w.consumer,
			Streams:  []string{w.stream, cursor},
			Count:    defaultBatch,
			Block:    w.block,
		}).Result()
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, redis.Nil):
			cursor = ">"
			continue
		case err != nil:
			util.LogError(w.logger, "mail stream read failed", err)
			if !sleep(ctx, readRetryDelay) {
				return nil
			}
			continue
		}

		lastID := ""
		for _, stream := range streams {
			for _, entry := range stream.Messages {
				lastID = entry.ID
				w.handle(ctx, entry, attempts)
			}
		}
		if cursor != ">" {
			// page through our own pending entries, then switch to new ones
			if lastID == "" {
				cursor = ">"
			} else {
				cursor = lastID
			}
		}
	}
}

// handle processes entry and counts failed attempts. Once the limit is
// reached the entry is acknowledged so it leaves the pending list.
func (w *MailWorker) handle(ctx context.Context, entry redis.XMessage, attempts map[string]int) {
	err := w.Process(ctx, entry)
	if err == nil {
		delete(attempts, entry.ID)
		return
	}
	util.LogError(w.logger, "mail delivery failed", err)

	attempts[entry.ID]++
	if attempts[entry.ID] < w.maxAttempts {
		return
	}
	delete(attempts, entry.ID)
	w.logger.Error("giving up on mail entry",
		zap.String("entry_id", entry.ID),
		zap.Int("attempts", w.maxAttempts))
	if err := w.ack(ctx, entry.ID); err != nil {
		util.LogError(w.logger, "mail drop failed", err)
	}
}

// Process handles a single stream entry.
func (w *MailWorker) Process(ctx context.Context, entry redis.XMessage) error {
	msg, err := decodeEntry(entry)
	if err != nil {
		w.logger.Error("dropping undecodable mail entry", zap.String("entry_id", entry.ID), zap.Error(err))
		return w.ack(ctx, entry.ID)
	}

	if err := w.deliverer.Deliver(ctx, msg); err != nil {
		return oops.Code("MAIL_DELIVERY_FAILED").
			With("entry_id", entry.ID).
			With("message_id", msg.ID).
			Wrap(err)
	}
	return w.ack(ctx, entry.ID)
}

func (w *MailWorker) ensureGroup(ctx context.Context) error {
	err := w.reader.XGroupCreateMkStream(ctx, w.stream, w.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return oops.Code("MAIL_GROUP_CREATE_FAILED").
			With("stream", w.stream).
			With("group", w.group).
			Wrap(err)
	}
	return nil
}

func (w *MailWorker) ack(ctx context.Context, id string) error {
	if err := w.reader.XAck(ctx, w.stream, w.group, id).Err(); err != nil {
		return oops.Code("MAIL_ACK_FAILED").With("entry_id", id).Wrap(err)
	}
	return nil
}

func decodeEntry(entry redis.XMessage) (notification.Message, error) {
	body, ok := entry.Values[notification.FieldBody].(string)
	if !ok {
		return notification.Message{}, notification.ErrUndecodable
	}
	id, _ := entry.Values[notification.FieldID].(string)
	if id == "" {
		id = entry.ID
	}
	return notification.DecodeMessage(id, []byte(body))
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
