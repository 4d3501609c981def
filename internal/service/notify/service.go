// Package notify loads a stored transaction with its customer and services
// and hands it to the dispatch router.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/repository"
	"github.com/jmehdipour/washcorner-notify/internal/util"
	"go.uber.org/zap"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// Dispatcher is satisfied by *dispatcher.Router.
type Dispatcher interface {
	SendStatusNotification(ctx context.Context, tx model.Transaction, customer *model.Customer, services []model.Service, status model.StatusKind) model.Result
}

type Service struct {
	txs       repository.TransactionsRepository
	customers repository.CustomersRepository
	services  repository.ServicesRepository
	dispatch  Dispatcher
	log       *zap.Logger
	now       func() time.Time
}

func New(
	txs repository.TransactionsRepository,
	customers repository.CustomersRepository,
	services repository.ServicesRepository,
	dispatch Dispatcher,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		txs:       txs,
		customers: customers,
		services:  services,
		dispatch:  dispatch,
		log:       log,
		now:       time.Now,
	}
}

// Notify dispatches a status notification for transaction id. status may be
// empty to use the stored status. The returned log row is not persisted; the
// caller decides how to write it. A tracking code generated during dispatch is
// saved back to the transaction.
func (s *Service) Notify(ctx context.Context, id int64, status model.StatusKind) (model.Result, model.NotificationLog, error) {
	tx, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return model.Result{}, model.NotificationLog{}, fmt.Errorf("load transaction %d: %w", id, err)
	}
	if tx == nil {
		return model.Result{}, model.NotificationLog{}, ErrTransactionNotFound
	}

	customer, err := s.customers.GetByID(ctx, tx.CustomerID)
	if err != nil {
		return model.Result{}, model.NotificationLog{}, fmt.Errorf("load customer %d: %w", tx.CustomerID, err)
	}

	services, err := s.services.ListByTransaction(ctx, id)
	if err != nil {
		return model.Result{}, model.NotificationLog{}, fmt.Errorf("load services of %d: %w", id, err)
	}

	res := s.dispatch.SendStatusNotification(ctx, *tx, customer, services, status)

	switch {
	case tx.TrackingCode != "":
		if !util.IsTrackingCode(tx.TrackingCode) {
			s.log.Warn("stored tracking code has unexpected format",
				zap.Int64("transaction_id", id),
				zap.String("tracking_code", tx.TrackingCode),
			)
		}
	case util.IsTrackingCode(res.TrackingCode):
		if err := s.txs.SetTrackingCode(ctx, id, res.TrackingCode); err != nil {
			s.log.Warn("persist generated tracking code",
				zap.Int64("transaction_id", id),
				zap.String("tracking_code", res.TrackingCode),
				zap.Error(err),
			)
		}
	case res.TrackingCode != "":
		s.log.Warn("generated tracking code not persisted: unexpected format",
			zap.Int64("transaction_id", id),
			zap.String("tracking_code", res.TrackingCode),
		)
	}

	effective := tx.Status
	if status != "" {
		effective = status
	}
	phone := ""
	if customer != nil {
		phone = util.NormalizePhone(customer.Phone)
	}
	channel := res.Channel
	if channel == "" {
		channel = "none"
	}

	now := s.now()
	row := model.NotificationLog{
		ID:            util.NewIDAt(now),
		TransactionID: id,
		Phone:         phone,
		Status:        effective,
		Channel:       channel,
		TrackingCode:  res.TrackingCode,
		Success:       res.Success,
		Reason:        res.Reason,
		Message:       res.Message,
		CreatedAt:     now.UTC(),
	}

	return res, row, nil
}
