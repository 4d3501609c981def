package repository

import (
	"context"
	"strings"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmoiron/sqlx"
)

// NotificationLogRepository persists the audit trail of dispatch attempts.
type NotificationLogRepository interface {
	InsertBatch(ctx context.Context, rows []model.NotificationLog) error
}

type NotificationLogRepositoryImpl struct {
	db *sqlx.DB
}

func NewNotificationLogRepository(db *sqlx.DB) *NotificationLogRepositoryImpl {
	return &NotificationLogRepositoryImpl{db: db}
}

var _ NotificationLogRepository = (*NotificationLogRepositoryImpl)(nil)

// InsertBatch writes all rows with one statement. Re-inserting an id is a
// no-op; the worker keys rows by event id so a redelivered event adds nothing.
func (r *NotificationLogRepositoryImpl) InsertBatch(ctx context.Context, rows []model.NotificationLog) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(rows)*10)

	sb.WriteString(`INSERT INTO notification_log
		(id, transaction_id, phone, status, channel, tracking_code, success, reason, message, created_at) VALUES `)
	for i, rw := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			rw.ID, rw.TransactionID, rw.Phone, rw.Status.String(), rw.Channel,
			rw.TrackingCode, rw.Success, string(rw.Reason), rw.Message, rw.CreatedAt,
		)
	}
	sb.WriteString(` ON DUPLICATE KEY UPDATE id = id`)

	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}
