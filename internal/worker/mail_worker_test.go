package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dormmanager/backend/internal/config"
	"github.com/dormmanager/backend/internal/domain"
	"github.com/dormmanager/backend/internal/notification"
	"github.com/dormmanager/backend/internal/worker"
	"github.com/dormmanager/backend/pkg/util"
)

var testCfg = config.NotificationConfig{Stream: "mail", Group: "mailer", Consumer: "c1"}

type fakeReader struct {
	mu       sync.Mutex
	groupErr error
	pending  [][]redis.XMessage
	fresh    chan []redis.XMessage
	cursors  []string
	acked    []string
	ackErr   error
}

func newFakeReader() *fakeReader {
	return &fakeReader{fresh: make(chan []redis.XMessage, 4)}
}

func (f *fakeReader) XGroupCreateMkStream(context.Context, string, string, string) *redis.StatusCmd {
	if f.groupErr != nil {
		return redis.NewStatusResult("", f.groupErr)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeReader) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	cursor := a.Streams[1]
	f.mu.Lock()
	f.cursors = append(f.cursors, cursor)
	if cursor != ">" {
		var batch []redis.XMessage
		if len(f.pending) > 0 {
			batch, f.pending = f.pending[0], f.pending[1:]
		}
		f.mu.Unlock()
		return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: batch}}, nil)
	}
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return redis.NewXStreamSliceCmdResult(nil, ctx.Err())
	case batch := <-f.fresh:
		return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: batch}}, nil)
	}
}

func (f *fakeReader) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ackErr != nil {
		return redis.NewIntResult(0, f.ackErr)
	}
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func (f *fakeReader) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.acked...)
}

func (f *fakeReader) seenCursors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.cursors...)
}

type fakeDeliverer struct {
	mu        sync.Mutex
	failFor   string
	failFirst int
	attempts  chan notification.Message
	got       []notification.Message
}

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{attempts: make(chan notification.Message, 16)}
}

func (d *fakeDeliverer) Deliver(_ context.Context, msg notification.Message) error {
	d.mu.Lock()
	fail := msg.Email == d.failFor || d.failFirst > 0
	if d.failFirst > 0 {
		d.failFirst--
	}
	if !fail {
		d.got = append(d.got, msg)
	}
	d.mu.Unlock()

	d.attempts <- msg
	if fail {
		return errors.New("smtp down")
	}
	return nil
}

func (d *fakeDeliverer) delivered() []notification.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.Message{}, d.got...)
}

func entry(id, body string) redis.XMessage {
	return redis.XMessage{ID: id, Values: map[string]interface{}{notification.FieldID: "msg-" + id, notification.FieldBody: body}}
}

func waitAttempt(t *testing.T, d *fakeDeliverer) notification.Message {
	t.Helper()
	select {
	case msg := <-d.attempts:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery attempt")
		return notification.Message{}
	}
}

func TestMailWorker_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("delivered entries are acked", func(t *testing.T) {
		reader, deliverer := newFakeReader(), newFakeDeliverer()
		w := worker.NewMailWorker(reader, deliverer, testCfg, nil)

		require.NoError(t, w.Process(ctx, entry("1-0", `{"type":"register","email":"a@x.com","code":123456}`)))
		assert.Equal(t, []string{"1-0"}, reader.ackedIDs())
		got := deliverer.delivered()
		require.Len(t, got, 1)
		assert.Equal(t, "msg-1-0", got[0].ID)
		assert.Equal(t, domain.CodeKindRegister, got[0].Type)
	})

	t.Run("undecodable entries are acked and dropped", func(t *testing.T) {
		reader, deliverer := newFakeReader(), newFakeDeliverer()
		w := worker.NewMailWorker(reader, deliverer, testCfg, nil)

		require.NoError(t, w.Process(ctx, entry("2-0", `not json`)))
		require.NoError(t, w.Process(ctx, redis.XMessage{ID: "3-0", Values: map[string]interface{}{}}))
		assert.Equal(t, []string{"2-0", "3-0"}, reader.ackedIDs())
		assert.Empty(t, deliverer.delivered())
	})

	t.Run("failed sends stay pending", func(t *testing.T) {
		reader, deliverer := newFakeReader(), newFakeDeliverer()
		deliverer.failFor = "a@x.com"
		w := worker.NewMailWorker(reader, deliverer, testCfg, nil)

		err := w.Process(ctx, entry("4-0", `{"type":"reset","email":"a@x.com","code":123456}`))
		require.Error(t, err)
		util.AssertErrorCode(t, err, "MAIL_DELIVERY_FAILED")
		assert.Empty(t, reader.ackedIDs())
	})

	t.Run("ack failure is reported", func(t *testing.T) {
		reader, deliverer := newFakeReader(), newFakeDeliverer()
		reader.ackErr = errors.New("redis down")
		w := worker.NewMailWorker(reader, deliverer, testCfg, nil)

		err := w.Process(ctx, entry("5-0", `{"type":"reset","email":"a@x.com","code":123456}`))
		util.AssertErrorCode(t, err, "MAIL_ACK_FAILED")
	})
}

func TestMailWorker_Run(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	reader, deliverer := newFakeReader(), newFakeDeliverer()
	deliverer.failFor = "fail@x.com"
	reader.pending = [][]redis.XMessage{{entry("1-0", `{"type":"register","email":"old@x.com","code":111111}`)}}
	w := worker.NewMailWorker(reader, deliverer, testCfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Equal(t, "old@x.com", waitAttempt(t, deliverer).Email)

	reader.fresh <- []redis.XMessage{
		entry("2-0", `{"type":"register","email":"a@x.com","code":222222}`),
		entry("3-0", `garbage`),
		entry("4-0", `{"type":"reset","email":"fail@x.com","code":333333}`),
	}
	assert.Equal(t, "a@x.com", waitAttempt(t, deliverer).Email)
	assert.Equal(t, "fail@x.com", waitAttempt(t, deliverer).Email)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, []string{"1-0", "2-0", "3-0"}, reader.ackedIDs())
	cursors := reader.seenCursors()
	require.GreaterOrEqual(t, len(cursors), 3)
	assert.Equal(t, []string{"0", "1-0", ">"}, cursors[:3])
}

func TestMailWorker_GroupCreation(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	t.Run("existing group is reused", func(t *testing.T) {
		reader := newFakeReader()
		reader.groupErr = errors.New("BUSYGROUP Consumer Group name already exists")
		w := worker.NewMailWorker(reader, newFakeDeliverer(), testCfg, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, w.Run(ctx))
	})

	t.Run("other failures stop the worker", func(t *testing.T) {
		reader := newFakeReader()
		reader.groupErr = errors.New("NOPERM")
		w := worker.NewMailWorker(reader, newFakeDeliverer(), testCfg, nil)

		err := w.Run(context.Background())
		util.AssertErrorCode(t, err, "MAIL_GROUP_CREATE_FAILED")
	})
}

func TestMailWorker_RedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	deliverer := newFakeDeliverer()
	w := worker.NewMailWorker(client, deliverer, testCfg, nil).WithBlock(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	dispatcher := notification.NewStreamDispatcher(client, "mail", 100, time.Second)
	id, err := dispatcher.Dispatch(context.Background(), notification.Message{Type: domain.CodeKindRegister, Email: "a@x.com", Code: 123456})
	require.NoError(t, err)

	msg := waitAttempt(t, deliverer)
	assert.Equal(t, id, msg.ID)
	assert.Equal(t, 123456, msg.Code)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func runWorker(t *testing.T, w *worker.MailWorker) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not stop")
		}
	}
}

func nothingPending(client *redis.Client) func() bool {
	return func() bool {
		pending, err := client.XPending(context.Background(), "mail", "mailer").Result()
		return err == nil && pending.Count == 0
	}
}

func TestMailWorker_RetriesPendingWhileRunning(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	deliverer := newFakeDeliverer()
	deliverer.failFirst = 1
	w := worker.NewMailWorker(client, deliverer, testCfg, nil).
		WithBlock(20*time.Millisecond).
		WithRetry(50*time.Millisecond, 3)
	stop := runWorker(t, w)
	defer stop()

	dispatcher := notification.NewStreamDispatcher(client, "mail", 100, time.Second)
	id, err := dispatcher.Dispatch(context.Background(), notification.Message{Type: domain.CodeKindRegister, Email: "a@x.com", Code: 123456})
	require.NoError(t, err)

	assert.Equal(t, id, waitAttempt(t, deliverer).ID)
	assert.Equal(t, id, waitAttempt(t, deliverer).ID)

	assert.Eventually(t, nothingPending(client), 2*time.Second, 20*time.Millisecond)
	got := deliverer.delivered()
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
}

func TestMailWorker_DropsEntryAfterMaxAttempts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	deliverer := newFakeDeliverer()
	deliverer.failFor = "a@x.com"
	w := worker.NewMailWorker(client, deliverer, testCfg, nil).
		WithBlock(20*time.Millisecond).
		WithRetry(50*time.Millisecond, 2)
	stop := runWorker(t, w)
	defer stop()

	dispatcher := notification.NewStreamDispatcher(client, "mail", 100, time.Second)
	_, err := dispatcher.Dispatch(context.Background(), notification.Message{Type: domain.CodeKindReset, Email: "a@x.com", Code: 123456})
	require.NoError(t, err)

	waitAttempt(t, deliverer)
	waitAttempt(t, deliverer)
	assert.Eventually(t, nothingPending(client), 2*time.Second, 20*time.Millisecond)

	select {
	case <-deliverer.attempts:
		t.Fatal("dropped entry was delivered again")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Empty(t, deliverer.delivered())
}
