package statuschange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/repository"
	"github.com/jmehdipour/washcorner-notify/internal/util"
	"github.com/jmoiron/sqlx"
)

const DefaultTopic = "transactions.status"

var (
	ErrInvalidStatus       = errors.New("invalid transaction status")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrStatusUnchanged     = errors.New("transaction already has this status")
)

// Service atomically updates a transaction's status and writes the
// status-changed event into the outbox.
type Service struct {
	db     *sqlx.DB
	txs    repository.TransactionsRepository
	outbox repository.OutboxRepository
	topic  string
	now    func() time.Time
}

func New(
	db *sqlx.DB,
	transactionsRepo repository.TransactionsRepository,
	outboxRepo repository.OutboxRepository,
	topic string,
) *Service {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Service{
		db:     db,
		txs:    transactionsRepo,
		outbox: outboxRepo,
		topic:  topic,
		now:    time.Now,
	}
}

// ChangeStatus moves transaction id to status and returns the event id.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status model.StatusKind) (string, error) {
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := s.txs.GetForUpdate(ctx, tx, id)
	if err != nil {
		return "", fmt.Errorf("load transaction: %w", err)
	}
	if cur == nil {
		return "", ErrTransactionNotFound
	}
	if cur.Status == status {
		return "", ErrStatusUnchanged
	}

	if err := s.txs.UpdateStatus(ctx, tx, id, status); err != nil {
		return "", fmt.Errorf("update status: %w", err)
	}

	now := s.now()
	env := model.StatusChangedEnvelope{
		ID:            util.NewIDAt(now),
		TransactionID: id,
		Status:        status,
		OccurredAt:    now.UTC(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	if err := s.outbox.Insert(ctx, tx, model.OutboxEvent{
		Aggregate:   "transaction",
		AggregateID: strconv.FormatInt(id, 10),
		Topic:       s.topic,
		Payload:     payload,
	}); err != nil {
		return "", fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return env.ID, nil
}
