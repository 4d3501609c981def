package repository

import (
	"context"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmoiron/sqlx"
)

// NotificationFilter narrows a report query. Zero values mean "any".
type NotificationFilter struct {
	Phone   string
	Status  model.StatusKind
	Success *bool
	Limit   int
	Offset  int
}

// CHNotificationsRepository reads the notification audit trail from ClickHouse.
type CHNotificationsRepository interface {
	List(ctx context.Context, f NotificationFilter) ([]model.NotificationLog, error)
}

type chNotificationsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHNotificationsRepository(ch *sqlx.DB) CHNotificationsRepository {
	return &chNotificationsRepository{ch: ch}
}

func (r *chNotificationsRepository) List(ctx context.Context, f NotificationFilter) ([]model.NotificationLog, error) {
	q, args := buildNotificationQuery(f)

	var rows []model.NotificationLog
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func buildNotificationQuery(f NotificationFilter) (string, []any) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `
		SELECT id, transaction_id, phone, status, channel, tracking_code, success, reason, message, created_at
		FROM washcorner.notification_log_latest
		WHERE 1 = 1
	`
	args := []any{}

	if f.Phone != "" {
		q += " AND phone = ?"
		args = append(args, f.Phone)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status.String())
	}
	if f.Success != nil {
		q += " AND success = ?"
		args = append(args, *f.Success)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	return q, args
}
