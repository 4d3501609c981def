package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/repository"
	"github.com/jmehdipour/washcorner-notify/internal/service/notify"
	"github.com/jmehdipour/washcorner-notify/internal/service/statuschange"
	echo "github.com/labstack/echo/v4"
)

// TransactionNotifier is satisfied by *notify.Service.
type TransactionNotifier interface {
	Notify(ctx context.Context, id int64, status model.StatusKind) (model.Result, model.NotificationLog, error)
}

// StatusChanger is satisfied by *statuschange.Service.
type StatusChanger interface {
	ChangeStatus(ctx context.Context, id int64, status model.StatusKind) (string, error)
}

type statusRequest struct {
	Status string `json:"status"`
}

func parseTransactionID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// notifyTransactionHandler dispatches synchronously and records the attempt
// in notification_log. The dispatch result is returned even if the audit
// write fails.
func notifyTransactionHandler(svc TransactionNotifier, logs repository.NotificationLogRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseTransactionID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
		}

		var req statusRequest
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&req); err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
			}
		}

		var status model.StatusKind
		if raw := strings.TrimSpace(req.Status); raw != "" {
			st, ok := model.ParseStatusKind(raw)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
			}
			status = st
		}

		ctx := c.Request().Context()
		res, row, err := svc.Notify(ctx, id, status)
		if err != nil {
			if errors.Is(err, notify.ErrTransactionNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "transaction not found"})
			}
			c.Logger().Errorf("notify transaction %d failed: %v", id, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "notify failed"})
		}

		if err := logs.InsertBatch(ctx, []model.NotificationLog{row}); err != nil {
			c.Logger().Errorf("notification log insert failed: %v", err)
		}

		return c.JSON(http.StatusOK, res)
	}
}

func changeStatusHandler(svc StatusChanger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseTransactionID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
		}

		var req statusRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
		}

		st, ok := model.ParseStatusKind(req.Status)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
		}

		eventID, err := svc.ChangeStatus(c.Request().Context(), id, st)
		switch {
		case errors.Is(err, statuschange.ErrTransactionNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "transaction not found"})
		case errors.Is(err, statuschange.ErrStatusUnchanged):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, statuschange.ErrInvalidStatus):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case err != nil:
			c.Logger().Errorf("change status of %d failed: %v", id, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
		}

		return c.JSON(http.StatusAccepted, map[string]any{
			"transaction_id": id,
			"status":         st,
			"event_id":       eventID,
		})
	}
}
