package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jmehdipour/washcorner-notify/internal/kafka"
	"github.com/jmehdipour/washcorner-notify/internal/metrics"
	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/repository"
	"github.com/jmehdipour/washcorner-notify/internal/service/notify"
	"go.uber.org/zap"
)

// Source is the subset of *kafka.Consumer the worker needs.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// Notifier is satisfied by *notify.Service.
type Notifier interface {
	Notify(ctx context.Context, id int64, status model.StatusKind) (model.Result, model.NotificationLog, error)
}

// NotifierKafka:
// - fetches status-change envelopes from Kafka,
// - routes them to processors by message key so one transaction's events stay in order,
// - sends the customer notification through the dispatch router, retrying transient failures,
// - commits offsets per partition only once every earlier event is done,
// - batches notification_log inserts by size/time.
type NotifierKafka struct {
	// Dependencies
	Source  Source
	Notify  Notifier
	LogRepo repository.NotificationLogRepository
	Log     *zap.Logger

	// Behavior
	Workers      int           // number of goroutines processing events
	BatchSize    int           // max buffered log rows per flush
	BatchWait    time.Duration // max time to wait before flush
	RetryBackoff time.Duration // first wait after a transient notify error
	MaxBackoff   time.Duration // cap for the doubling backoff

	offsets *offsetTracker
}

func NewNotifierKafka(src Source, n Notifier, logRepo repository.NotificationLogRepository, log *zap.Logger) *NotifierKafka {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotifierKafka{
		Source:       src,
		Notify:       n,
		LogRepo:      logRepo,
		Log:          log,
		Workers:      8,
		BatchSize:    100,
		BatchWait:    500 * time.Millisecond,
		RetryBackoff: 200 * time.Millisecond,
		MaxBackoff:   10 * time.Second,
	}
}

// Run starts the worker and blocks until ctx is cancelled and the last batch
// has been flushed. Events still failing at shutdown stay uncommitted and are
// redelivered to the next consumer.
func (w *NotifierKafka) Run(ctx context.Context) error {
	if w.Source == nil || w.Notify == nil || w.LogRepo == nil {
		return errors.New("notifier-kafka: missing dependency")
	}
	if w.Workers <= 0 {
		w.Workers = 8
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 100
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 500 * time.Millisecond
	}
	if w.RetryBackoff <= 0 {
		w.RetryBackoff = 200 * time.Millisecond
	}
	if w.MaxBackoff < w.RetryBackoff {
		w.MaxBackoff = w.RetryBackoff
	}
	w.offsets = newOffsetTracker()

	rows := make(chan model.NotificationLog, w.BatchSize*2)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		w.runBatchWriter(rows)
	}()

	lanes := make([]chan kafka.Message, w.Workers)
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 16)
	}

	go func() {
		defer func() {
			for _, l := range lanes {
				close(l)
			}
		}()
		for {
			m, err := w.Source.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.Log.Warn("kafka fetch", zap.Error(err))
				time.Sleep(200 * time.Millisecond)
				continue
			}
			w.offsets.Start(m)
			select {
			case lanes[laneOf(m, len(lanes))] <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for _, l := range lanes {
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if ctx.Err() != nil {
					continue // leave uncommitted for redelivery
				}
				w.processOne(ctx, m, rows)
			}
		}(l)
	}

	wg.Wait()
	close(rows)
	<-writerDone

	return nil
}

// laneOf picks a processor by message key (the transaction id), falling back
// to the partition for keyless messages.
func laneOf(m kafka.Message, n int) int {
	if n <= 1 {
		return 0
	}
	if len(m.Key) == 0 {
		return m.Partition % n
	}
	return int(xxhash.Sum64(m.Key) % uint64(n))
}

// processOne parses an envelope, notifies and emits a log row. Poison and
// processed events are committed; a transient error is retried with backoff
// until it succeeds or ctx ends, in which case the event is not committed.
func (w *NotifierKafka) processOne(ctx context.Context, m kafka.Message, out chan<- model.NotificationLog) {
	var env model.StatusChangedEnvelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.TransactionID <= 0 {
		metrics.WorkerEventsTotal.WithLabelValues("poison").Inc()
		w.Log.Warn("skip malformed status envelope",
			zap.Int64("offset", m.Offset),
			zap.Error(err),
		)
		w.done(ctx, m)
		return
	}

	backoff := w.RetryBackoff
	for attempt := 1; ; attempt++ {
		res, row, err := w.Notify.Notify(ctx, env.TransactionID, env.Status)
		switch {
		case errors.Is(err, notify.ErrTransactionNotFound):
			metrics.WorkerEventsTotal.WithLabelValues("poison").Inc()
			w.Log.Warn("status event for unknown transaction", zap.Int64("transaction_id", env.TransactionID))
			w.done(ctx, m)
			return
		case err != nil:
			metrics.WorkerEventsTotal.WithLabelValues("failed").Inc()
			w.Log.Error("notify transaction",
				zap.Int64("transaction_id", env.TransactionID),
				zap.String("event_id", env.ID),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > w.MaxBackoff {
				backoff = w.MaxBackoff
			}
			continue
		}

		metrics.WorkerEventsTotal.WithLabelValues("processed").Inc()
		w.Log.Debug("status event processed",
			zap.Int64("transaction_id", env.TransactionID),
			zap.Bool("success", res.Success),
			zap.String("reason", string(res.Reason)),
		)
		// a redelivered event maps to the same row id
		if env.ID != "" {
			row.ID = env.ID
		}
		out <- row
		w.done(ctx, m)
		return
	}
}

func (w *NotifierKafka) done(ctx context.Context, m kafka.Message) {
	w.offsets.Done(m, func(last kafka.Message) {
		if err := w.Source.Commit(ctx, last); err != nil {
			w.Log.Warn("kafka commit", zap.Int64("offset", last.Offset), zap.Error(err))
		}
	})
}

// runBatchWriter flushes on size, on tick and when in is closed.
func (w *NotifierKafka) runBatchWriter(in <-chan model.NotificationLog) {
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	batch := make([]model.NotificationLog, 0, w.BatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := w.LogRepo.InsertBatch(ctx, batch); err != nil {
			w.Log.Error("insert notification log batch", zap.Int("rows", len(batch)), zap.Error(err))
		} else {
			w.Log.Debug("notification log flushed", zap.Int("rows", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case row, ok := <-in:
			if !ok {
				flush()
				return
			}
			batch = append(batch, row)
			if len(batch) >= w.BatchSize {
				flush()
			}
		case <-tick.C:
			flush()
		}
	}
}
