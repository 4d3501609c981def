package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/kafka"
	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/service/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sliceSource struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
}

func (s *sliceSource) Fetch(ctx context.Context) (kafka.Message, error) {
	s.mu.Lock()
	if len(s.msgs) > 0 {
		m := s.msgs[0]
		s.msgs = s.msgs[1:]
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (s *sliceSource) Commit(_ context.Context, m kafka.Message) error {
	s.mu.Lock()
	s.committed = append(s.committed, m.Offset)
	s.mu.Unlock()
	return nil
}

func (s *sliceSource) Committed() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.committed...)
}

type notifyCall struct {
	id     int64
	status model.StatusKind
}

// stubNotifier: 404 is unknown, 500 always fails, 503 fails twice then succeeds.
type stubNotifier struct {
	mu       sync.Mutex
	calls    []notifyCall
	attempts map[int64]int
}

func (n *stubNotifier) Notify(_ context.Context, id int64, status model.StatusKind) (model.Result, model.NotificationLog, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.attempts == nil {
		n.attempts = make(map[int64]int)
	}
	n.attempts[id]++
	n.calls = append(n.calls, notifyCall{id, status})

	switch {
	case id == 404:
		return model.Result{}, model.NotificationLog{}, notify.ErrTransactionNotFound
	case id == 500, id == 503 && n.attempts[id] <= 2:
		return model.Result{}, model.NotificationLog{}, errors.New("db down")
	}
	res := model.Result{Success: true, Reason: model.ReasonSent}
	return res, model.NotificationLog{ID: "fresh", TransactionID: id, Status: status, Success: true}, nil
}

func (n *stubNotifier) Attempts(id int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attempts[id]
}

func (n *stubNotifier) StatusesOf(id int64) []model.StatusKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []model.StatusKind
	for _, c := range n.calls {
		if c.id == id {
			out = append(out, c.status)
		}
	}
	return out
}

type memLogRepo struct {
	mu      sync.Mutex
	rows    []model.NotificationLog
	batches int
}

func (r *memLogRepo) InsertBatch(_ context.Context, rows []model.NotificationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, rows...)
	r.batches++
	return nil
}

func envelopeMsg(t *testing.T, offset int64, env model.StatusChangedEnvelope) kafka.Message {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte(strconv.FormatInt(env.TransactionID, 10)), Value: b}
}

func lastCommitted(src *sliceSource) int64 {
	c := src.Committed()
	if len(c) == 0 {
		return -1
	}
	return c[len(c)-1]
}

func newTestNotifier(t *testing.T, src Source, n Notifier, logs *memLogRepo) *NotifierKafka {
	w := NewNotifierKafka(src, n, logs, zaptest.NewLogger(t))
	w.Workers = 3
	w.BatchSize = 10
	w.BatchWait = 10 * time.Millisecond
	w.RetryBackoff = time.Millisecond
	w.MaxBackoff = 5 * time.Millisecond
	return w
}

func runUntil(t *testing.T, w *NotifierKafka, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)
}

func TestNotifierKafkaRun(t *testing.T) {
	src := &sliceSource{msgs: []kafka.Message{
		envelopeMsg(t, 1, model.StatusChangedEnvelope{ID: "e1", TransactionID: 10, Status: model.StatusInProgress}),
		envelopeMsg(t, 2, model.StatusChangedEnvelope{ID: "e2", TransactionID: 11, Status: model.StatusCompleted}),
		{Offset: 3, Value: []byte(`{not json`)},
		envelopeMsg(t, 4, model.StatusChangedEnvelope{ID: "e4", TransactionID: 404, Status: model.StatusCompleted}),
		envelopeMsg(t, 5, model.StatusChangedEnvelope{ID: "e5", TransactionID: 503, Status: model.StatusCompleted}),
	}}
	n := &stubNotifier{}
	logs := &memLogRepo{}

	runUntil(t, newTestNotifier(t, src, n, logs), func() bool { return lastCommitted(src) == 5 })

	assert.IsIncreasing(t, src.Committed(), "commits never go backwards")
	assert.Equal(t, 3, n.Attempts(503), "transient failure retried until it succeeds")
	assert.Equal(t, 1, n.Attempts(404), "unknown transaction is not retried")

	logs.mu.Lock()
	defer logs.mu.Unlock()
	require.Len(t, logs.rows, 3, "only successful notify calls produce log rows")
	byTx := map[int64]string{}
	for _, r := range logs.rows {
		byTx[r.TransactionID] = r.ID
	}
	assert.Equal(t, map[int64]string{10: "e1", 11: "e2", 503: "e5"}, byTx, "row id is the event id")

	assert.Equal(t, []model.StatusKind{model.StatusInProgress}, n.StatusesOf(10))
	assert.Equal(t, []model.StatusKind{model.StatusCompleted}, n.StatusesOf(11))
}

func TestNotifierKafkaTransientFailureIsNotCommitted(t *testing.T) {
	src := &sliceSource{msgs: []kafka.Message{
		envelopeMsg(t, 1, model.StatusChangedEnvelope{ID: "e1", TransactionID: 10, Status: model.StatusCompleted}),
		envelopeMsg(t, 2, model.StatusChangedEnvelope{ID: "e2", TransactionID: 500, Status: model.StatusCompleted}),
		envelopeMsg(t, 3, model.StatusChangedEnvelope{ID: "e3", TransactionID: 11, Status: model.StatusCompleted}),
	}}
	n := &stubNotifier{}
	logs := &memLogRepo{}

	runUntil(t, newTestNotifier(t, src, n, logs), func() bool {
		return lastCommitted(src) == 1 && n.Attempts(500) >= 3
	})

	assert.Equal(t, []int64{1}, src.Committed(),
		"the failing event and everything fetched after it stay uncommitted")
}

func TestNotifierKafkaKeepsPerTransactionOrder(t *testing.T) {
	statuses := []model.StatusKind{model.StatusPending, model.StatusInProgress, model.StatusCompleted}
	var msgs []kafka.Message
	off := int64(0)
	for _, st := range statuses {
		for _, id := range []int64{21, 22, 23, 24} {
			off++
			msgs = append(msgs, envelopeMsg(t, off, model.StatusChangedEnvelope{
				ID: "e" + strconv.FormatInt(off, 10), TransactionID: id, Status: st,
			}))
		}
	}
	src := &sliceSource{msgs: msgs}
	n := &stubNotifier{}

	runUntil(t, newTestNotifier(t, src, n, &memLogRepo{}), func() bool { return lastCommitted(src) == off })

	for _, id := range []int64{21, 22, 23, 24} {
		assert.Equal(t, statuses, n.StatusesOf(id), "transaction %d", id)
	}
}

func TestOffsetTrackerCommitsContiguousPrefix(t *testing.T) {
	tr := newOffsetTracker()
	msg := func(p int, off int64) kafka.Message { return kafka.Message{Partition: p, Offset: off} }

	for _, m := range []kafka.Message{msg(0, 1), msg(0, 2), msg(1, 7), msg(0, 3)} {
		tr.Start(m)
	}

	var got []kafka.Message
	commit := func(m kafka.Message) { got = append(got, m) }

	tr.Done(msg(0, 2), commit)
	assert.Empty(t, got, "offset 1 still in flight")

	tr.Done(msg(1, 7), commit)
	tr.Done(msg(0, 1), commit)
	tr.Done(msg(0, 3), commit)

	assert.Equal(t, []kafka.Message{msg(1, 7), msg(0, 2), msg(0, 3)}, got)
}

func TestLaneOf(t *testing.T) {
	a := kafka.Message{Key: []byte("42"), Partition: 0}
	b := kafka.Message{Key: []byte("42"), Partition: 5}
	assert.Equal(t, laneOf(a, 4), laneOf(b, 4), "same key, same lane")
	assert.Equal(t, 3, laneOf(kafka.Message{Partition: 7}, 4))
	assert.Equal(t, 0, laneOf(a, 1))
}

func TestRunBatchWriterFlushesOnSize(t *testing.T) {
	logs := &memLogRepo{}
	w := NewNotifierKafka(&sliceSource{}, &stubNotifier{}, logs, nil)
	w.BatchSize = 2
	w.BatchWait = time.Hour

	in := make(chan model.NotificationLog)
	done := make(chan struct{})
	go func() {
		w.runBatchWriter(in)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		in <- model.NotificationLog{TransactionID: int64(i)}
	}
	close(in)
	<-done

	assert.Len(t, logs.rows, 5)
	assert.Equal(t, 3, logs.batches, "2 + 2 + final 1")
}

func TestRunRequiresDependencies(t *testing.T) {
	w := &NotifierKafka{}
	assert.Error(t, w.Run(context.Background()))
}
