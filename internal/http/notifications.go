package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/dispatcher"
	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/util"
	echo "github.com/labstack/echo/v4"
)

// NotificationRouter is the part of *dispatcher.Router the API exposes.
type NotificationRouter interface {
	SendTestNotification(ctx context.Context, phone string) model.Result
	HasRecentNotification(ctx context.Context, phone string, status model.StatusKind, window time.Duration) (bool, error)
	LastNotification(ctx context.Context, phone string) (*model.LastNotification, error)
	Health() dispatcher.Health
}

type testNotificationRequest struct {
	Phone string `json:"phone"`
}

func testNotificationHandler(router NotificationRouter) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req testNotificationRequest
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&req); err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
			}
		}

		res := router.SendTestNotification(c.Request().Context(), req.Phone)
		return c.JSON(http.StatusOK, res)
	}
}

type lastNotificationResponse struct {
	Phone  string                  `json:"phone"`
	Last   *model.LastNotification `json:"last"`
	Recent *bool                   `json:"recent,omitempty"`
}

// lastNotificationHandler answers GET /notifications/last?phone=&status=&window_ms=.
// The recent flag is only computed when status is given.
func lastNotificationHandler(router NotificationRouter) echo.HandlerFunc {
	return func(c echo.Context) error {
		phone := strings.TrimSpace(c.QueryParam("phone"))
		if phone == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "phone is required"})
		}

		ctx := c.Request().Context()
		last, err := router.LastNotification(ctx, phone)
		if err != nil {
			c.Logger().Errorf("last notification lookup failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		}

		resp := lastNotificationResponse{Phone: util.NormalizePhone(phone), Last: last}

		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			st, ok := model.ParseStatusKind(raw)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
			}

			var window time.Duration
			if v := c.QueryParam("window_ms"); v != "" {
				n, err := strconv.ParseInt(v, 10, 64)
				if err != nil || n <= 0 {
					return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid window_ms"})
				}
				window = time.Duration(n) * time.Millisecond
			}

			recent, err := router.HasRecentNotification(ctx, phone, st, window)
			if err != nil {
				c.Logger().Errorf("recent notification lookup failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
			}
			resp.Recent = &recent
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func trackingCodeHandler(gen func() string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"tracking_code": gen()})
	}
}

// healthHandler always answers 200; an open breaker only marks the service degraded.
func healthHandler(router NotificationRouter) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := router.Health()
		status := "ok"
		if h.BreakerOpen {
			status = "degraded"
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":       status,
			"channel":      h.Channel,
			"breaker_open": h.BreakerOpen,
		})
	}
}
